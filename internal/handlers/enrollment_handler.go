package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/enrollment-service/internal/services"
	"github.com/SAP-F-2025/enrollment-service/internal/utils"
)

type EnrollmentHandler struct {
	BaseHandler
	service services.EnrollmentService
}

func NewEnrollmentHandler(service services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Enroll enrolls the caller in a course
// @Summary Enroll in a course
// @Description Creates an IN_PROGRESS enrollment for the authenticated user
// @Tags enrollments
// @Accept json
// @Produce json
// @Param request body services.EnrollRequest true "Course to enroll in"
// @Success 201 {object} models.Enrollment
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already enrolled"
// @Failure 500 {object} ErrorResponse
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	var req services.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(c, http.StatusBadRequest, "bad_request", "Request body is required", nil)
			return
		}
		h.writeError(c, http.StatusBadRequest, "bad_request", "Invalid request body", err.Error())
		return
	}

	h.LogRequest(c, "Enrolling", "user_id", identity.UserID, "course_id", req.CourseID)

	enrollment, err := h.service.Enroll(c.Request.Context(), identity, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// ListMyEnrollments lists the caller's enrollments
// @Summary List my enrollments
// @Tags enrollments
// @Produce json
// @Success 200 {array} models.Enrollment
// @Failure 401 {object} ErrorResponse
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	enrollments, err := h.service.ListMyEnrollments(c.Request.Context(), identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// GetEnrollment returns one enrollment with its progress
// @Summary Get enrollment
// @Description Owner or admin only
// @Tags enrollments
// @Produce json
// @Param enrollmentId path int true "Enrollment ID"
// @Success 200 {object} models.Enrollment
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{enrollmentId} [get]
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := h.parseIDParam(c, "enrollmentId")
	if !ok {
		return
	}

	enrollment, err := h.service.GetEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := services.Authorize(identity.UserID, identity.Role(), enrollment.UserID); err != nil {
		utils.GetLogger(c, h.logger).Warn("Enrollment read denied", "user_id", identity.UserID, "enrollment_id", enrollmentID)
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollment)
}

// MarkLessonComplete records a completed lesson
// @Summary Complete a lesson
// @Description Idempotent; repeating the call returns the existing record
// @Tags progress
// @Produce json
// @Param enrollmentId path int true "Enrollment ID"
// @Param lessonId path int true "Lesson ID"
// @Success 200 {object} models.Progress
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{enrollmentId}/lessons/{lessonId}/complete [post]
func (h *EnrollmentHandler) MarkLessonComplete(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := h.parseIDParam(c, "enrollmentId")
	if !ok {
		return
	}
	lessonID, ok := h.parseIDParam(c, "lessonId")
	if !ok {
		return
	}

	h.LogRequest(c, "Completing lesson", "enrollment_id", enrollmentID, "lesson_id", lessonID)

	progress, err := h.service.MarkLessonComplete(c.Request.Context(), enrollmentID, lessonID, identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// ListProgress lists lesson progress of an enrollment
// @Summary List progress
// @Tags progress
// @Produce json
// @Param enrollmentId path int true "Enrollment ID"
// @Success 200 {array} models.Progress
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{enrollmentId}/progress [get]
func (h *EnrollmentHandler) ListProgress(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := h.parseIDParam(c, "enrollmentId")
	if !ok {
		return
	}

	progress, err := h.service.ListProgress(c.Request.Context(), enrollmentID, identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GenerateCertificate issues the completion certificate
// @Summary Issue certificate
// @Description Completes the enrollment; repeating the call returns the same certificate
// @Tags certificates
// @Produce json
// @Param enrollmentId path int true "Enrollment ID"
// @Success 200 {object} models.Certificate
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Enrollment cancelled"
// @Router /enrollments/{enrollmentId}/certificate [post]
func (h *EnrollmentHandler) GenerateCertificate(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := h.parseIDParam(c, "enrollmentId")
	if !ok {
		return
	}

	h.LogRequest(c, "Generating certificate", "enrollment_id", enrollmentID)

	certificate, err := h.service.GenerateCertificate(c.Request.Context(), enrollmentID, identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, certificate)
}

// GetCertificate returns an issued certificate
// @Summary Get certificate
// @Tags certificates
// @Produce json
// @Param enrollmentId path int true "Enrollment ID"
// @Success 200 {object} models.Certificate
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{enrollmentId}/certificate [get]
func (h *EnrollmentHandler) GetCertificate(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	enrollmentID, ok := h.parseIDParam(c, "enrollmentId")
	if !ok {
		return
	}

	certificate, err := h.service.GetCertificate(c.Request.Context(), enrollmentID, identity)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, certificate)
}
