package repositories

import (
	"time"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type EnrollmentFilters struct {
	Status    *models.EnrollmentStatus `json:"status"`
	UserID    *string                  `json:"user_id"`
	CourseID  *uint                    `json:"course_id"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "enrolled_at", "id", "status"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}
