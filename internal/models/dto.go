package models

import (
	"time"
)

// ===== SUMMARY DTOs =====

// EnrollmentSummary is one row of the course enrollment export.
type EnrollmentSummary struct {
	EnrollmentID     uint             `json:"enrollmentId"`
	UserID           string           `json:"userId"`
	CourseID         uint             `json:"courseId"`
	Status           EnrollmentStatus `json:"status"`
	EnrolledAt       time.Time        `json:"enrolledAt"`
	LessonsCompleted int              `json:"lessonsCompleted"`
	CertificateURL   *string          `json:"certificateUrl,omitempty"`
	CertificateAt    *time.Time       `json:"certificateIssuedAt,omitempty"`
}

// ===== VALIDATION RESPONSES =====

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
	Code    string `json:"code"`
}

// ===== ERROR RESPONSES =====

type ErrorResponse struct {
	Error            string                    `json:"error"`
	Message          string                    `json:"message"`
	Details          interface{}               `json:"details,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
	Path             string                    `json:"path"`
	ValidationErrors []ValidationErrorResponse `json:"validationErrors,omitempty"`
}
