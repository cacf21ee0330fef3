package services

import (
	"context"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type EnrollRequest = validator.EnrollRequest
type ExportEnrollmentsQuery = validator.ExportEnrollmentsQuery

// ===== SERVICES =====

// EnrollmentService drives the enrollment lifecycle. Identity is always an
// explicit argument; anonymous identities fail with ErrUnauthenticated.
type EnrollmentService interface {
	Enroll(ctx context.Context, identity auth.Identity, req *EnrollRequest) (*models.Enrollment, error)
	ListMyEnrollments(ctx context.Context, identity auth.Identity) ([]*models.Enrollment, error)

	// GetEnrollment does not authorize; callers check ownership with Authorize.
	GetEnrollment(ctx context.Context, enrollmentID uint) (*models.Enrollment, error)

	MarkLessonComplete(ctx context.Context, enrollmentID, lessonID uint, identity auth.Identity) (*models.Progress, error)
	ListProgress(ctx context.Context, enrollmentID uint, identity auth.Identity) ([]*models.Progress, error)

	GenerateCertificate(ctx context.Context, enrollmentID uint, identity auth.Identity) (*models.Certificate, error)
	GetCertificate(ctx context.Context, enrollmentID uint, identity auth.Identity) (*models.Certificate, error)
}

// ExportService builds admin reports over course enrollments
type ExportService interface {
	ListCourseEnrollments(ctx context.Context, identity auth.Identity, courseID uint, query *ExportEnrollmentsQuery) ([]*models.EnrollmentSummary, error)
	ExportCourseEnrollments(ctx context.Context, identity auth.Identity, courseID uint, query *ExportEnrollmentsQuery) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Enrollment() EnrollmentService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
