package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/metrics"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/utils"
)

const (
	identityContextKey = "identity"
	userIDContextKey   = "user_id"
	userRoleContextKey = "user_role"
)

// AuthMiddleware maps bearer tokens to request identities
type AuthMiddleware struct {
	verifier *auth.TokenVerifier
	logger   utils.Logger
}

func NewAuthMiddleware(verifier *auth.TokenVerifier, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// OptionalAuthMiddleware never rejects. Requests without a usable token
// continue as anonymous and handlers decide whether that is enough.
func (am *AuthMiddleware) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := auth.Anonymous()

		if token, ok := auth.ExtractBearerToken(c.GetHeader("Authorization")); ok {
			verified, err := am.verifier.Verify(token)
			switch {
			case err != nil:
				utils.GetLogger(c, am.logger).Warn("Token verification failed", "error", err)
			case !verified.HasSubject():
				utils.GetLogger(c, am.logger).Warn("Token has no subject claim, continuing anonymously")
			default:
				identity = verified.Identity()
			}
		}

		c.Set(identityContextKey, identity)
		if identity.IsAuthenticated() {
			c.Set(userIDContextKey, identity.UserID)
			c.Set(userRoleContextKey, models.UserRole(identity.Role()))
		}

		c.Next()
	}
}

// RequireRoleMiddleware lets the request through when the identity holds
// any of the roles. Anonymous callers get 401.
func (am *AuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentityFromContext(c)
		if !identity.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authentication required",
			})
			return
		}

		for _, role := range requiredRoles {
			if identity.HasRole(role.String()) {
				c.Next()
				return
			}
		}

		metrics.AuthorizationDenied.WithLabelValues("require_role").Inc()
		utils.GetLogger(c, am.logger).Warn("Role check failed", "user_id", identity.UserID, "role", identity.Role())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

// GetIdentityFromContext returns the request identity, anonymous when the
// auth middleware did not run or found no subject
func GetIdentityFromContext(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityContextKey); ok {
		if identity, ok := v.(auth.Identity); ok {
			return identity
		}
	}
	return auth.Anonymous()
}
