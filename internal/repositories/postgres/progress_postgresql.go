package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories"
	"gorm.io/gorm"
)

type ProgressPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *ProgressPostgreSQL) Create(ctx context.Context, tx *gorm.DB, progress *models.Progress) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Create(progress).Error
}

func (r *ProgressPostgreSQL) Update(ctx context.Context, tx *gorm.DB, progress *models.Progress) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Save(progress).Error
}

func (r *ProgressPostgreSQL) GetByEnrollmentAndLesson(ctx context.Context, tx *gorm.DB, enrollmentID, lessonID uint) (*models.Progress, error) {
	db := r.helpers.getDB(tx)
	var progress models.Progress
	if err := db.WithContext(ctx).
		Where("enrollment_id = ? AND lesson_id = ?", enrollmentID, lessonID).
		First(&progress).Error; err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

func (r *ProgressPostgreSQL) GetByEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uint) ([]*models.Progress, error) {
	db := r.helpers.getDB(tx)
	var progress []*models.Progress
	if err := db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("lesson_id ASC").
		Find(&progress).Error; err != nil {
		return nil, fmt.Errorf("failed to get progress by enrollment: %w", err)
	}
	return progress, nil
}

// CountCompletedByEnrollments returns completed lesson counts keyed by
// enrollment. Enrollments without completed lessons are absent.
func (r *ProgressPostgreSQL) CountCompletedByEnrollments(ctx context.Context, tx *gorm.DB, enrollmentIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int)
	if len(enrollmentIDs) == 0 {
		return counts, nil
	}

	type row struct {
		EnrollmentID uint
		Total        int
	}
	var rows []row

	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).
		Model(&models.Progress{}).
		Select("enrollment_id, COUNT(*) AS total").
		Where("enrollment_id IN ? AND completed = ?", enrollmentIDs, true).
		Group("enrollment_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed lessons: %w", err)
	}

	for _, rw := range rows {
		counts[rw.EnrollmentID] = rw.Total
	}
	return counts, nil
}
