package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/validator"
)

func newExportEnv(t *testing.T) (*testEnv, ExportService) {
	t.Helper()
	env := newTestEnv(t)
	return env, NewExportService(env.repo, discardLogger(), validator.New())
}

func TestListCourseEnrollments(t *testing.T) {
	env, export := newExportEnv(t)
	ctx := context.Background()

	first := env.enroll(t, alice, 7)
	second := env.enroll(t, bob, 7)
	env.enroll(t, alice, 8)

	for _, lessonID := range []uint{1, 2} {
		_, err := env.service.MarkLessonComplete(ctx, first.ID, lessonID, alice)
		require.NoError(t, err)
	}
	certificate, err := env.service.GenerateCertificate(ctx, first.ID, alice)
	require.NoError(t, err)

	summaries, err := export.ListCourseEnrollments(ctx, admin, 7, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, first.ID, summaries[0].EnrollmentID)
	assert.Equal(t, 2, summaries[0].LessonsCompleted)
	assert.Equal(t, models.EnrollmentCompleted, summaries[0].Status)
	require.NotNil(t, summaries[0].CertificateURL)
	assert.Equal(t, certificate.URL, *summaries[0].CertificateURL)

	assert.Equal(t, second.ID, summaries[1].EnrollmentID)
	assert.Zero(t, summaries[1].LessonsCompleted)
	assert.Nil(t, summaries[1].CertificateURL)

	t.Run("status filter", func(t *testing.T) {
		inProgress, err := export.ListCourseEnrollments(ctx, admin, 7, &ExportEnrollmentsQuery{Status: "IN_PROGRESS"})
		require.NoError(t, err)
		require.Len(t, inProgress, 1)
		assert.Equal(t, second.ID, inProgress[0].EnrollmentID)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := export.ListCourseEnrollments(ctx, admin, 7, &ExportEnrollmentsQuery{Status: "PAUSED"})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestListCourseEnrollments_AdminOnly(t *testing.T) {
	_, export := newExportEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		identity auth.Identity
		wantErr  error
	}{
		{"anonymous", auth.Anonymous(), ErrUnauthenticated},
		{"regular user", alice, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := export.ListCourseEnrollments(ctx, tt.identity, 7, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExportCourseEnrollments_Workbook(t *testing.T) {
	env, export := newExportEnv(t)
	ctx := context.Background()

	first := env.enroll(t, alice, 7)
	env.enroll(t, bob, 7)

	data, err := export.ExportCourseEnrollments(ctx, admin, 7, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Enrollments")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Enrollment ID", rows[0][0])
	assert.Equal(t, uintString(first.ID), rows[1][0])
	assert.Equal(t, "42", rows[1][1])
	assert.Equal(t, "IN_PROGRESS", rows[1][3])
	assert.Equal(t, "77", rows[2][1])
}
