package pkg

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/enrollment-service/internal/config"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
)

// InitDatabase opens the PostgreSQL pool and migrates the enrollment schema
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         NewGormLogger(os.Stdout, cfg.IsProduction()),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// NewGormLogger logs slow queries and errors to w. Record-not-found is an
// expected outcome of lookups and is not logged.
func NewGormLogger(w io.Writer, production bool) logger.Interface {
	logLevel := logger.Warn
	if !production {
		logLevel = logger.Info
	}

	return logger.New(log.New(w, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  !production,
	})
}

// Migrate creates the enrollment tables and their unique indexes
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Enrollment{}, &models.Progress{}, &models.Certificate{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
