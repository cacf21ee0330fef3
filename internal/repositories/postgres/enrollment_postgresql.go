package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/enrollment-service/internal/cache"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories"
	"gorm.io/gorm"
)

type EnrollmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager

	// set when db is a transaction; reads then skip the cache
	txBound bool
}

func newEnrollmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager, txBound bool) *EnrollmentPostgreSQL {
	return &EnrollmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
		txBound:      txBound,
	}
}

func (r *EnrollmentPostgreSQL) cacheable(tx *gorm.DB) bool {
	return tx == nil && !r.txBound && r.cacheManager.Enrollment.Enabled()
}

func (r *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Create(enrollment).Error
}

// GetByID reads through the cache unless called inside a transaction.
func (r *EnrollmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	if !r.cacheable(tx) {
		return r.findByID(ctx, r.helpers.getDB(tx), id, false)
	}

	var enrollment models.Enrollment
	err := r.cacheManager.Enrollment.CacheOrExecute(ctx, cache.EnrollmentKey(id), cache.EnrollmentVersionKey(id), &enrollment, cache.EnrollmentCacheConfig.TTL, func() (interface{}, error) {
		return r.findByID(ctx, r.db, id, false)
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) GetByIDWithProgress(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	if !r.cacheable(tx) {
		return r.findByID(ctx, r.helpers.getDB(tx), id, true)
	}

	var enrollment models.Enrollment
	err := r.cacheManager.Enrollment.CacheOrExecute(ctx, cache.EnrollmentDetailsKey(id), cache.EnrollmentVersionKey(id), &enrollment, cache.EnrollmentCacheConfig.TTL, func() (interface{}, error) {
		return r.findByID(ctx, r.db, id, true)
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) findByID(ctx context.Context, db *gorm.DB, id uint, withProgress bool) (*models.Enrollment, error) {
	query := db.WithContext(ctx)
	if withProgress {
		query = query.Preload("Progress", func(db *gorm.DB) *gorm.DB {
			return db.Order("lesson_id ASC")
		})
	}

	var enrollment models.Enrollment
	if err := query.First(&enrollment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return &enrollment, nil
}

// Update saves the enrollment without touching its progress collection.
func (r *EnrollmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Omit("Progress").Save(enrollment).Error
}

func (r *EnrollmentPostgreSQL) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.Enrollment, error) {
	db := r.helpers.getDB(tx)
	var enrollments []*models.Enrollment
	if err := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("id ASC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to get enrollments by user and course: %w", err)
	}
	return enrollments, nil
}

func (r *EnrollmentPostgreSQL) GetByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error) {
	enrollments, _, err := r.List(ctx, tx, repositories.EnrollmentFilters{UserID: &userID})
	return enrollments, err
}

func (r *EnrollmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	db := r.helpers.getDB(tx)
	var enrollments []*models.Enrollment
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.Enrollment{})
	query = r.helpers.ApplyEnrollmentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&enrollments).Error; err != nil {
		return nil, 0, err
	}

	return enrollments, total, nil
}

func (r *EnrollmentPostgreSQL) InvalidateCache(ctx context.Context, id uint) {
	cache.InvalidateEnrollmentCache(ctx, r.cacheManager, id)
}
