package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/metrics"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/services"
	"github.com/SAP-F-2025/enrollment-service/internal/utils"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	serviceManager    services.ServiceManager
	enrollmentHandler *EnrollmentHandler
	exportHandler     *ExportHandler
	authMiddleware    *AuthMiddleware
	logger            utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	verifier *auth.TokenVerifier,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:    serviceManager,
		enrollmentHandler: NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		exportHandler:     NewExportHandler(serviceManager.Export(), logger),
		authMiddleware:    NewAuthMiddleware(verifier, logger),
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.Use(hm.authMiddleware.OptionalAuthMiddleware())
	{
		enrollments := api.Group("/enrollments")
		{
			enrollments.POST("", hm.enrollmentHandler.Enroll)
			enrollments.GET("/me", hm.enrollmentHandler.ListMyEnrollments)
			enrollments.GET("/:enrollmentId", hm.enrollmentHandler.GetEnrollment)

			// Progress
			enrollments.POST("/:enrollmentId/lessons/:lessonId/complete", hm.enrollmentHandler.MarkLessonComplete)
			enrollments.GET("/:enrollmentId/progress", hm.enrollmentHandler.ListProgress)

			// Certificates
			enrollments.POST("/:enrollmentId/certificate", hm.enrollmentHandler.GenerateCertificate)
			enrollments.GET("/:enrollmentId/certificate", hm.enrollmentHandler.GetCertificate)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.GET("/courses/:courseId/enrollments/export", hm.exportHandler.ExportCourseEnrollments)
		}
	}
}

// HealthCheck reports whether the database (and cache, when configured) respond
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		utils.GetLogger(c, hm.logger).Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "enrollment-service",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "enrollment-service",
	})
}
