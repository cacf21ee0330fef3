package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories"
	"github.com/SAP-F-2025/enrollment-service/internal/validator"
)

const enrollmentSheet = "Enrollments"

var enrollmentSheetHeader = []interface{}{
	"Enrollment ID", "User ID", "Course ID", "Status", "Enrolled At", "Lessons Completed", "Certificate URL", "Certificate Issued At",
}

type exportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ExportService {
	return &exportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ListCourseEnrollments summarizes every enrollment of a course. Admin only.
func (s *exportService) ListCourseEnrollments(ctx context.Context, identity auth.Identity, courseID uint, query *ExportEnrollmentsQuery) ([]*models.EnrollmentSummary, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if err := Authorize(identity.UserID, identity.Role(), ""); err != nil {
		s.logger.WarnContext(ctx, "Export denied", "user_id", identity.UserID, "course_id", courseID)
		return nil, NewPermissionError(identity.UserID, courseID, "course", "export_enrollments", "admin role required")
	}
	if courseID == 0 {
		return nil, fmt.Errorf("%w: courseId must be greater than 0", ErrValidationFailed)
	}

	filters := repositories.EnrollmentFilters{
		CourseID:  &courseID,
		SortBy:    "id",
		SortOrder: "asc",
	}
	if query != nil {
		if errs := s.validator.Validate(query); errs != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
		}
		if query.Status != "" {
			status := models.EnrollmentStatus(query.Status)
			filters.Status = &status
		}
	}

	enrollments, _, err := s.repo.Enrollment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list course enrollments: %w", err)
	}

	ids := make([]uint, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.ID
	}

	completed, err := s.repo.Progress().CountCompletedByEnrollments(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	certificates, err := s.repo.Certificate().GetByEnrollments(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]*models.EnrollmentSummary, 0, len(enrollments))
	for _, e := range enrollments {
		summary := &models.EnrollmentSummary{
			EnrollmentID:     e.ID,
			UserID:           e.UserID,
			CourseID:         e.CourseID,
			Status:           e.Status,
			EnrolledAt:       e.EnrolledAt,
			LessonsCompleted: completed[e.ID],
		}
		if cert, ok := certificates[e.ID]; ok {
			url, issuedAt := cert.URL, cert.IssuedAt
			summary.CertificateURL = &url
			summary.CertificateAt = &issuedAt
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// ExportCourseEnrollments renders ListCourseEnrollments as an XLSX workbook
func (s *exportService) ExportCourseEnrollments(ctx context.Context, identity auth.Identity, courseID uint, query *ExportEnrollmentsQuery) ([]byte, error) {
	summaries, err := s.ListCourseEnrollments(ctx, identity, courseID, query)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", enrollmentSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(enrollmentSheet, "A1", &enrollmentSheetHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, summary := range summaries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}

		certificateURL, certificateAt := "", ""
		if summary.CertificateURL != nil {
			certificateURL = *summary.CertificateURL
		}
		if summary.CertificateAt != nil {
			certificateAt = summary.CertificateAt.Format(time.RFC3339)
		}

		row := []interface{}{
			summary.EnrollmentID,
			summary.UserID,
			summary.CourseID,
			string(summary.Status),
			summary.EnrolledAt.Format(time.RFC3339),
			summary.LessonsCompleted,
			certificateURL,
			certificateAt,
		}
		if err := f.SetSheetRow(enrollmentSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Course enrollments exported",
		"course_id", courseID,
		"rows", len(summaries),
		"user_id", identity.UserID)

	return buf.Bytes(), nil
}
