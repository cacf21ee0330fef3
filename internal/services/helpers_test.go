package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/events"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/enrollment-service/internal/validator"
)

var (
	alice = auth.NewIdentity("42", "USER")
	bob   = auth.NewIdentity("77", "USER")
	admin = auth.NewIdentity("1", "ADMIN")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Enrollment{}, &models.Progress{}, &models.Certificate{}))
	return db
}

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	service   *enrollmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})
	return newTestEnvWithRepo(t, db, repo)
}

func newTestEnvWithRepo(t *testing.T, db *gorm.DB, repo repositories.Repository) *testEnv {
	t.Helper()

	publisher := events.NewMockEventPublisher(discardLogger())
	svc := NewEnrollmentService(repo, publisher, discardLogger(), validator.New(), EnrollmentServiceConfig{
		CertificateBaseURL: "https://example.com/certs/",
	}).(*enrollmentService)

	return &testEnv{db: db, repo: repo, publisher: publisher, service: svc}
}

func (e *testEnv) enroll(t *testing.T, identity auth.Identity, courseID uint) *models.Enrollment {
	t.Helper()
	enrollment, err := e.service.Enroll(context.Background(), identity, &EnrollRequest{CourseID: courseID})
	require.NoError(t, err)
	return enrollment
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

// racingRepository simulates a concurrent writer: inside transactions the
// selected lookups miss rows that already exist, so the following insert
// hits the unique index.
type racingRepository struct {
	repositories.Repository
	staleEnrollments  bool
	staleProgress     bool
	staleCertificates bool
	inTx              bool
}

func (r *racingRepository) Enrollment() repositories.EnrollmentRepository {
	if r.inTx && r.staleEnrollments {
		return staleEnrollmentStore{r.Repository.Enrollment()}
	}
	return r.Repository.Enrollment()
}

func (r *racingRepository) Progress() repositories.ProgressRepository {
	if r.inTx && r.staleProgress {
		return staleProgressStore{r.Repository.Progress()}
	}
	return r.Repository.Progress()
}

func (r *racingRepository) Certificate() repositories.CertificateRepository {
	if r.inTx && r.staleCertificates {
		return staleCertificateStore{r.Repository.Certificate()}
	}
	return r.Repository.Certificate()
}

func (r *racingRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.Repository.WithTransaction(ctx, func(tx repositories.Repository) error {
		inner := *r
		inner.Repository = tx
		inner.inTx = true
		return fn(&inner)
	})
}

type staleEnrollmentStore struct {
	repositories.EnrollmentRepository
}

func (staleEnrollmentStore) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.Enrollment, error) {
	return nil, nil
}

type staleProgressStore struct {
	repositories.ProgressRepository
}

func (staleProgressStore) GetByEnrollmentAndLesson(ctx context.Context, tx *gorm.DB, enrollmentID, lessonID uint) (*models.Progress, error) {
	return nil, gorm.ErrRecordNotFound
}

type staleCertificateStore struct {
	repositories.CertificateRepository
}

func (staleCertificateStore) GetByEnrollment(ctx context.Context, tx *gorm.DB, enrollmentID uint) (*models.Certificate, error) {
	return nil, gorm.ErrRecordNotFound
}
