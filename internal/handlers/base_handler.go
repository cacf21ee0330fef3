package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/services"
	"github.com/SAP-F-2025/enrollment-service/internal/utils"
	"github.com/SAP-F-2025/enrollment-service/internal/validator"
)

type ErrorResponse = models.ErrorResponse

// BaseHandler carries what every handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.Request.URL.Path)
	utils.GetLogger(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.Request.URL.Path)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

func (h *BaseHandler) writeError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

// requireIdentity writes 401 and returns false for anonymous callers
func (h *BaseHandler) requireIdentity(c *gin.Context) (auth.Identity, bool) {
	identity := GetIdentityFromContext(c)
	if !identity.IsAuthenticated() {
		h.writeError(c, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return identity, false
	}
	return identity, true
}

// parseIDParam writes 400 and returns false unless the param is a positive id
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, strconv.IntSize)
	if err != nil || id == 0 {
		h.writeError(c, http.StatusBadRequest, "bad_request", "Invalid "+param, fmt.Sprintf("%q is not a positive integer", c.Param(param)))
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		resp := ErrorResponse{
			Error:     "validation_failed",
			Message:   "Validation failed",
			Timestamp: time.Now().UTC(),
			Path:      c.Request.URL.Path,
		}
		for _, ve := range validationErrors {
			resp.ValidationErrors = append(resp.ValidationErrors, models.ValidationErrorResponse{
				Field:   ve.Field,
				Message: ve.Message,
				Value:   fmt.Sprint(ve.Value),
				Code:    ve.Rule,
			})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.writeError(c, http.StatusForbidden, "forbidden", "Access denied", map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		h.writeError(c, http.StatusBadRequest, "validation_failed", err.Error(), nil)
	case errors.Is(err, services.ErrUnauthenticated):
		h.writeError(c, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
	case errors.Is(err, services.ErrForbidden):
		h.writeError(c, http.StatusForbidden, "forbidden", "Access denied", nil)
	case errors.Is(err, services.ErrEnrollmentNotFound):
		h.writeError(c, http.StatusNotFound, "not_found", "Enrollment not found", nil)
	case errors.Is(err, services.ErrCertificateNotFound):
		h.writeError(c, http.StatusNotFound, "not_found", "Certificate not found", nil)
	case errors.Is(err, services.ErrNotFound):
		h.writeError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrDuplicateEnrollment):
		h.writeError(c, http.StatusConflict, "conflict", "Already enrolled in this course", nil)
	case errors.Is(err, services.ErrConflict):
		h.writeError(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		h.LogError(c, err, "Unhandled service error")
		h.writeError(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
