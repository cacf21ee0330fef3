package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
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

func newEnrollment(userID string, courseID uint) *models.Enrollment {
	return &models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
		Status:     models.EnrollmentInProgress,
	}
}

func TestEnrollmentRepository_UniqueUserCourse(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)})

	require.NoError(t, repo.Enrollment().Create(ctx, nil, newEnrollment("42", 7)))

	err := repo.Enrollment().Create(ctx, nil, newEnrollment("42", 7))
	require.Error(t, err)
	assert.True(t, repositories.IsDuplicateKeyError(err))

	// same course for another user is fine
	require.NoError(t, repo.Enrollment().Create(ctx, nil, newEnrollment("43", 7)))

	found, err := repo.Enrollment().GetByUserAndCourse(ctx, nil, "42", 7)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.Enrollment().GetByUserAndCourse(ctx, nil, "42", 8)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestEnrollmentRepository_GetByIDNotFound(t *testing.T) {
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)})

	_, err := repo.Enrollment().GetByID(context.Background(), nil, 999)
	require.Error(t, err)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestEnrollmentRepository_ListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, courseID := range []uint{7, 8, 9} {
		e := newEnrollment("42", courseID)
		e.EnrolledAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Enrollment().Create(ctx, nil, e))
	}
	require.NoError(t, repo.Enrollment().Create(ctx, nil, newEnrollment("77", 7)))

	mine, err := repo.Enrollment().GetByUser(ctx, nil, "42")
	require.NoError(t, err)
	require.Len(t, mine, 3)
	// newest first by default
	assert.Equal(t, uint(9), mine[0].CourseID)
	assert.Equal(t, uint(7), mine[2].CourseID)

	courseID := uint(7)
	course, total, err := repo.Enrollment().List(ctx, nil, repositories.EnrollmentFilters{
		CourseID:  &courseID,
		SortBy:    "id",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, course, 2)
	assert.Equal(t, "42", course[0].UserID)
	assert.Equal(t, "77", course[1].UserID)

	paged, total, err := repo.Enrollment().List(ctx, nil, repositories.EnrollmentFilters{
		SortBy: "user_id; DROP TABLE enrollments",
		Limit:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, paged, 2)
}

func TestProgressRepository_UniqueLessonAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)})

	first := newEnrollment("42", 7)
	second := newEnrollment("42", 8)
	require.NoError(t, repo.Enrollment().Create(ctx, nil, first))
	require.NoError(t, repo.Enrollment().Create(ctx, nil, second))

	now := time.Now().UTC()
	for _, lessonID := range []uint{3, 1, 2} {
		require.NoError(t, repo.Progress().Create(ctx, nil, &models.Progress{
			EnrollmentID: first.ID,
			LessonID:     lessonID,
			Completed:    true,
			CompletedAt:  &now,
		}))
	}
	require.NoError(t, repo.Progress().Create(ctx, nil, &models.Progress{EnrollmentID: second.ID, LessonID: 1}))

	err := repo.Progress().Create(ctx, nil, &models.Progress{EnrollmentID: first.ID, LessonID: 3})
	require.Error(t, err)
	assert.True(t, repositories.IsDuplicateKeyError(err))

	list, err := repo.Progress().GetByEnrollment(ctx, nil, first.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint{1, 2, 3}, []uint{list[0].LessonID, list[1].LessonID, list[2].LessonID})

	counts, err := repo.Progress().CountCompletedByEnrollments(ctx, nil, []uint{first.ID, second.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{first.ID: 3}, counts)

	detailed, err := repo.Enrollment().GetByIDWithProgress(ctx, nil, first.ID)
	require.NoError(t, err)
	assert.Len(t, detailed.Progress, 3)

	_, err = repo.Progress().GetByEnrollmentAndLesson(ctx, nil, first.ID, 99)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestCertificateRepository_OnePerEnrollment(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)})

	e := newEnrollment("42", 7)
	require.NoError(t, repo.Enrollment().Create(ctx, nil, e))

	cert := &models.Certificate{EnrollmentID: e.ID, IssuedAt: time.Now().UTC(), URL: "https://example.com/certs/1.pdf"}
	require.NoError(t, repo.Certificate().Create(ctx, nil, cert))

	err := repo.Certificate().Create(ctx, nil, &models.Certificate{EnrollmentID: e.ID, IssuedAt: time.Now().UTC(), URL: "x"})
	assert.True(t, repositories.IsDuplicateKeyError(err))

	found, err := repo.Certificate().GetByEnrollment(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.ID, found.ID)

	byEnrollment, err := repo.Certificate().GetByEnrollments(ctx, nil, []uint{e.ID, e.ID + 1})
	require.NoError(t, err)
	assert.Len(t, byEnrollment, 1)
	assert.Equal(t, cert.URL, byEnrollment[e.ID].URL)
}

func TestWithTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t)})

	boom := errors.New("boom")
	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Enrollment().Create(ctx, nil, newEnrollment("42", 7)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	found, err := repo.Enrollment().GetByUserAndCourse(ctx, nil, "42", 7)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestEnrollmentRepository_CacheInvalidation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewPostgreSQLRepository(RepositoryConfig{DB: newTestDB(t), RedisClient: client})

	e := newEnrollment("42", 7)
	require.NoError(t, repo.Enrollment().Create(ctx, nil, e))

	got, err := repo.Enrollment().GetByID(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, got.Status)
	assert.True(t, mr.Exists(fmt.Sprintf("enrollment:id:%d", e.ID)))

	e.Status = models.EnrollmentCompleted
	require.NoError(t, repo.Enrollment().Update(ctx, nil, e))

	// stale until invalidated
	got, err = repo.Enrollment().GetByID(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, got.Status)

	repo.Enrollment().InvalidateCache(ctx, e.ID)
	assert.False(t, mr.Exists(fmt.Sprintf("enrollment:id:%d", e.ID)))

	got, err = repo.Enrollment().GetByID(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, got.Status)

	require.NoError(t, repo.Ping(ctx))
}

func TestEnrollmentRepository_CacheWriteBackLosesToConcurrentInvalidation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, RedisClient: client})

	// completes the enrollment and invalidates it right after the read
	// returns rows, before the read-through writes them back
	var armed uint
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:complete_after_read", func(tx *gorm.DB) {
		if armed == 0 || tx.Statement.Table != "enrollments" {
			return
		}
		id := armed
		armed = 0
		assert.NoError(t, db.Model(&models.Enrollment{}).Where("id = ?", id).Update("status", models.EnrollmentCompleted).Error)
		repo.Enrollment().InvalidateCache(ctx, id)
	}))

	tests := []struct {
		name     string
		courseID uint
		key      string
		read     func(id uint) (*models.Enrollment, error)
	}{
		{
			name:     "bare row",
			courseID: 7,
			key:      "enrollment:id:%d",
			read: func(id uint) (*models.Enrollment, error) {
				return repo.Enrollment().GetByID(ctx, nil, id)
			},
		},
		{
			name:     "with progress",
			courseID: 8,
			key:      "enrollment:details:%d",
			read: func(id uint) (*models.Enrollment, error) {
				return repo.Enrollment().GetByIDWithProgress(ctx, nil, id)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnrollment("42", tt.courseID)
			require.NoError(t, repo.Enrollment().Create(ctx, nil, e))
			key := fmt.Sprintf(tt.key, e.ID)

			armed = e.ID
			got, err := tt.read(e.ID)
			require.NoError(t, err)
			require.Zero(t, armed, "completion did not run during the read")
			// the caller sees what it read, but that row must not be cached
			assert.Equal(t, models.EnrollmentInProgress, got.Status)
			assert.False(t, mr.Exists(key))

			got, err = tt.read(e.ID)
			require.NoError(t, err)
			assert.Equal(t, models.EnrollmentCompleted, got.Status)
			assert.True(t, mr.Exists(key))

			got, err = tt.read(e.ID)
			require.NoError(t, err)
			assert.Equal(t, models.EnrollmentCompleted, got.Status)
		})
	}
}
