package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories"
	"gorm.io/gorm"
)

type CertificatePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewCertificatePostgreSQL(db *gorm.DB) repositories.CertificateRepository {
	return &CertificatePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *CertificatePostgreSQL) Create(ctx context.Context, tx *gorm.DB, certificate *models.Certificate) error {
	db := r.helpers.getDB(tx)
	return db.WithContext(ctx).Create(certificate).Error
}

func (r *CertificatePostgreSQL) GetByEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uint) (*models.Certificate, error) {
	db := r.helpers.getDB(tx)
	var certificate models.Certificate
	if err := db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		First(&certificate).Error; err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &certificate, nil
}

func (r *CertificatePostgreSQL) GetByEnrollments(ctx context.Context, tx *gorm.DB, enrollmentIDs []uint) (map[uint]*models.Certificate, error) {
	result := make(map[uint]*models.Certificate)
	if len(enrollmentIDs) == 0 {
		return result, nil
	}

	db := r.helpers.getDB(tx)
	var certificates []*models.Certificate
	if err := db.WithContext(ctx).
		Where("enrollment_id IN ?", enrollmentIDs).
		Find(&certificates).Error; err != nil {
		return nil, fmt.Errorf("failed to get certificates: %w", err)
	}

	for _, c := range certificates {
		result[c.EnrollmentID] = c
	}
	return result, nil
}
