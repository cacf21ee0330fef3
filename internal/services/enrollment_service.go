package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/enrollment-service/internal/auth"
	"github.com/SAP-F-2025/enrollment-service/internal/events"
	"github.com/SAP-F-2025/enrollment-service/internal/metrics"
	"github.com/SAP-F-2025/enrollment-service/internal/models"
	"github.com/SAP-F-2025/enrollment-service/internal/repositories"
	"github.com/SAP-F-2025/enrollment-service/internal/validator"
)

const DefaultCertificateBaseURL = "https://example.com/certs"

// errLostRace marks an insert that hit a unique index after another request
// created the same row. The transaction is rolled back and the winner re-read.
var errLostRace = errors.New("concurrent insert won")

type EnrollmentServiceConfig struct {
	CertificateBaseURL string
}

type enrollmentService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    EnrollmentServiceConfig
	now       func() time.Time
}

func NewEnrollmentService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, config EnrollmentServiceConfig) EnrollmentService {
	if config.CertificateBaseURL == "" {
		config.CertificateBaseURL = DefaultCertificateBaseURL
	}
	return &enrollmentService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ===== ENROLLMENT =====

func (s *enrollmentService) Enroll(ctx context.Context, identity auth.Identity, req *EnrollRequest) (*models.Enrollment, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if errs := s.validator.Validate(req); errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	s.logger.Info("Enrolling user",
		"user_id", identity.UserID,
		"course_id", req.CourseID)

	var enrollment *models.Enrollment
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		existing, err := tx.Enrollment().GetByUserAndCourse(ctx, nil, identity.UserID, req.CourseID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrDuplicateEnrollment
		}

		now := s.now()
		enrollment = &models.Enrollment{
			UserID:     identity.UserID,
			CourseID:   req.CourseID,
			EnrolledAt: now,
			Status:     models.EnrollmentInProgress,
		}
		if err := tx.Enrollment().Create(ctx, nil, enrollment); err != nil {
			if repositories.IsDuplicateKeyError(err) {
				return ErrDuplicateEnrollment
			}
			return fmt.Errorf("failed to create enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEnrollment) {
			s.logger.Info("Duplicate enrollment rejected",
				"user_id", identity.UserID,
				"course_id", req.CourseID)
		}
		return nil, err
	}

	metrics.EnrollmentsCreated.Inc()
	s.publish(ctx, events.NewEvent(events.EventEnrollmentCreated, events.EnrollmentCreatedEvent{
		EnrollmentID: enrollment.ID,
		UserID:       enrollment.UserID,
		CourseID:     enrollment.CourseID,
		EnrolledAt:   enrollment.EnrolledAt,
	}))

	s.logger.Info("Enrollment created",
		"enrollment_id", enrollment.ID,
		"user_id", enrollment.UserID,
		"course_id", enrollment.CourseID)

	return enrollment, nil
}

func (s *enrollmentService) ListMyEnrollments(ctx context.Context, identity auth.Identity) ([]*models.Enrollment, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	enrollments, err := s.repo.Enrollment().GetByUser(ctx, nil, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}
	return enrollments, nil
}

func (s *enrollmentService) GetEnrollment(ctx context.Context, enrollmentID uint) (*models.Enrollment, error) {
	enrollment, err := s.repo.Enrollment().GetByIDWithProgress(ctx, nil, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

// ===== PROGRESS =====

// MarkLessonComplete is idempotent: a lesson already completed is returned
// as stored, without events.
func (s *enrollmentService) MarkLessonComplete(ctx context.Context, enrollmentID, lessonID uint, identity auth.Identity) (*models.Progress, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if lessonID == 0 {
		return nil, fmt.Errorf("%w: lessonId must be greater than 0", ErrValidationFailed)
	}

	s.logger.Info("Marking lesson complete",
		"enrollment_id", enrollmentID,
		"lesson_id", lessonID,
		"user_id", identity.UserID)

	var (
		progress  *models.Progress
		ownerID   string
		completed bool
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		enrollment, err := s.resolveEnrollment(ctx, tx, enrollmentID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, identity, enrollment, "complete_lesson"); err != nil {
			return err
		}
		ownerID = enrollment.UserID

		existing, err := tx.Progress().GetByEnrollmentAndLesson(ctx, nil, enrollmentID, lessonID)
		switch {
		case err == nil:
			progress = existing
			if existing.Completed {
				return nil
			}
			now := s.now()
			existing.Completed = true
			existing.CompletedAt = &now
			if err := tx.Progress().Update(ctx, nil, existing); err != nil {
				return fmt.Errorf("failed to update progress: %w", err)
			}
			completed = true
			return nil

		case repositories.IsNotFoundError(err):
			now := s.now()
			progress = &models.Progress{
				EnrollmentID: enrollmentID,
				LessonID:     lessonID,
				Completed:    true,
				CompletedAt:  &now,
			}
			if err := tx.Progress().Create(ctx, nil, progress); err != nil {
				if repositories.IsDuplicateKeyError(err) {
					return errLostRace
				}
				return fmt.Errorf("failed to create progress: %w", err)
			}
			completed = true
			return nil

		default:
			return fmt.Errorf("failed to get progress: %w", err)
		}
	})

	if errors.Is(err, errLostRace) {
		s.logger.Info("Lesson completed concurrently, returning stored progress",
			"enrollment_id", enrollmentID,
			"lesson_id", lessonID)
		winner, err := s.repo.Progress().GetByEnrollmentAndLesson(ctx, nil, enrollmentID, lessonID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload progress: %w", err)
		}
		return winner, nil
	}
	if err != nil {
		return nil, err
	}

	if completed {
		s.repo.Enrollment().InvalidateCache(ctx, enrollmentID)
		metrics.LessonsCompleted.Inc()
		s.publish(ctx, events.NewEvent(events.EventLessonCompleted, events.LessonCompletedEvent{
			EnrollmentID: enrollmentID,
			UserID:       ownerID,
			LessonID:     lessonID,
			ProgressID:   progress.ID,
			CompletedAt:  *progress.CompletedAt,
		}))
		s.logger.Info("Lesson completed",
			"enrollment_id", enrollmentID,
			"lesson_id", lessonID,
			"progress_id", progress.ID)
	}

	return progress, nil
}

func (s *enrollmentService) ListProgress(ctx context.Context, enrollmentID uint, identity auth.Identity) ([]*models.Progress, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	enrollment, err := s.resolveEnrollment(ctx, s.repo, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, enrollment, "list_progress"); err != nil {
		return nil, err
	}

	progress, err := s.repo.Progress().GetByEnrollment(ctx, nil, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	if progress == nil {
		progress = []*models.Progress{}
	}
	return progress, nil
}

// ===== CERTIFICATES =====

// GenerateCertificate completes the enrollment and issues its certificate.
// A second call returns the stored certificate. Lesson completeness is not
// checked.
func (s *enrollmentService) GenerateCertificate(ctx context.Context, enrollmentID uint, identity auth.Identity) (*models.Certificate, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	s.logger.Info("Generating certificate",
		"enrollment_id", enrollmentID,
		"user_id", identity.UserID)

	var (
		certificate *models.Certificate
		enrollment  *models.Enrollment
		issued      bool
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		enrollment, err = s.resolveEnrollment(ctx, tx, enrollmentID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, identity, enrollment, "generate_certificate"); err != nil {
			return err
		}

		existing, err := tx.Certificate().GetByEnrollment(ctx, nil, enrollmentID)
		if err == nil {
			certificate = existing
			return nil
		}
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get certificate: %w", err)
		}

		if !enrollment.Status.CanTransitionTo(models.EnrollmentCompleted) {
			return ErrInvalidStatusTransition
		}
		if enrollment.Status != models.EnrollmentCompleted {
			enrollment.Status = models.EnrollmentCompleted
			if err := tx.Enrollment().Update(ctx, nil, enrollment); err != nil {
				return fmt.Errorf("failed to complete enrollment: %w", err)
			}
		}

		certificate = &models.Certificate{
			EnrollmentID: enrollmentID,
			IssuedAt:     s.now(),
			URL:          s.certificateURL(enrollmentID),
		}
		if err := tx.Certificate().Create(ctx, nil, certificate); err != nil {
			if repositories.IsDuplicateKeyError(err) {
				return errLostRace
			}
			return fmt.Errorf("failed to create certificate: %w", err)
		}
		issued = true
		return nil
	})

	if errors.Is(err, errLostRace) {
		s.logger.Info("Certificate issued concurrently, returning stored certificate",
			"enrollment_id", enrollmentID)
		winner, err := s.repo.Certificate().GetByEnrollment(ctx, nil, enrollmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload certificate: %w", err)
		}
		return winner, nil
	}
	if err != nil {
		return nil, err
	}

	if issued {
		s.repo.Enrollment().InvalidateCache(ctx, enrollmentID)
		metrics.CertificatesIssued.Inc()
		s.publish(ctx, events.NewEvent(events.EventCertificateIssued, events.CertificateIssuedEvent{
			EnrollmentID:  enrollmentID,
			UserID:        enrollment.UserID,
			CourseID:      enrollment.CourseID,
			CertificateID: certificate.ID,
			URL:           certificate.URL,
			IssuedAt:      certificate.IssuedAt,
		}))
		s.logger.Info("Certificate issued",
			"enrollment_id", enrollmentID,
			"certificate_id", certificate.ID)
	}

	return certificate, nil
}

func (s *enrollmentService) GetCertificate(ctx context.Context, enrollmentID uint, identity auth.Identity) (*models.Certificate, error) {
	if !identity.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	enrollment, err := s.resolveEnrollment(ctx, s.repo, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, identity, enrollment, "view_certificate"); err != nil {
		return nil, err
	}

	certificate, err := s.repo.Certificate().GetByEnrollment(ctx, nil, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return certificate, nil
}

// ===== HELPERS =====

func (s *enrollmentService) resolveEnrollment(ctx context.Context, repo repositories.Repository, enrollmentID uint) (*models.Enrollment, error) {
	enrollment, err := repo.Enrollment().GetByID(ctx, nil, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

func (s *enrollmentService) authorize(ctx context.Context, identity auth.Identity, enrollment *models.Enrollment, action string) error {
	err := Authorize(identity.UserID, identity.Role(), enrollment.UserID)
	if err == nil {
		return nil
	}

	var permissionErr *PermissionError
	if errors.As(err, &permissionErr) {
		permissionErr.Resource = "enrollment"
		permissionErr.ResourceID = enrollment.ID
		permissionErr.Action = action
	}

	metrics.AuthorizationDenied.WithLabelValues(action).Inc()
	s.logger.WarnContext(ctx, "Authorization denied",
		"enrollment_id", enrollment.ID,
		"user_id", identity.UserID,
		"action", action)
	return err
}

func (s *enrollmentService) certificateURL(enrollmentID uint) string {
	return fmt.Sprintf("%s/%d.pdf", strings.TrimRight(s.config.CertificateBaseURL, "/"), enrollmentID)
}

// publish runs after commit; failures are logged only
func (s *enrollmentService) publish(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}
