package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/enrollment-service/internal/services"
	"github.com/SAP-F-2025/enrollment-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	BaseHandler
	service services.ExportService
}

func NewExportHandler(service services.ExportService, logger utils.Logger) *ExportHandler {
	return &ExportHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ExportCourseEnrollments downloads a course's enrollments as XLSX
// @Summary Export course enrollments
// @Description Admin only. Optional status filter.
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param courseId path int true "Course ID"
// @Param status query string false "IN_PROGRESS, COMPLETED or CANCELLED"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/courses/{courseId}/enrollments/export [get]
func (h *ExportHandler) ExportCourseEnrollments(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	courseID, ok := h.parseIDParam(c, "courseId")
	if !ok {
		return
	}

	var query services.ExportEnrollmentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.writeError(c, http.StatusBadRequest, "bad_request", "Invalid query parameters", err.Error())
		return
	}

	h.LogRequest(c, "Exporting course enrollments", "course_id", courseID, "status", query.Status)

	data, err := h.service.ExportCourseEnrollments(c.Request.Context(), identity, courseID, &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="course-%d-enrollments.xlsx"`, courseID))
	c.Data(http.StatusOK, xlsxContentType, data)
}
