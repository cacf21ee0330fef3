package repositories

import (
	"context"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"gorm.io/gorm"
)

// EnrollmentRepository persists enrollments. A nil tx uses the repository's
// own connection.
type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	GetByIDWithProgress(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	Update(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error

	// Natural key lookups
	GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.Enrollment, error)

	// Query operations
	GetByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error)
	List(ctx context.Context, tx *gorm.DB, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)

	// InvalidateCache drops cached reads of the enrollment; call after commit
	InvalidateCache(ctx context.Context, id uint)
}

// ProgressRepository persists per-lesson progress rows.
type ProgressRepository interface {
	Create(ctx context.Context, tx *gorm.DB, progress *models.Progress) error
	Update(ctx context.Context, tx *gorm.DB, progress *models.Progress) error
	GetByEnrollmentAndLesson(ctx context.Context, tx *gorm.DB, enrollmentID, lessonID uint) (*models.Progress, error)
	GetByEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uint) ([]*models.Progress, error)
	CountCompletedByEnrollments(ctx context.Context, tx *gorm.DB, enrollmentIDs []uint) (map[uint]int, error)
}

// CertificateRepository persists issued certificates.
type CertificateRepository interface {
	Create(ctx context.Context, tx *gorm.DB, certificate *models.Certificate) error
	GetByEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uint) (*models.Certificate, error)
	GetByEnrollments(ctx context.Context, tx *gorm.DB, enrollmentIDs []uint) (map[uint]*models.Certificate, error)
}
