package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "enrollment-service"
	EventVersion = "1.0"
)

type EventType string

const (
	EventEnrollmentCreated EventType = "enrollment.created"
	EventLessonCompleted   EventType = "lesson.completed"
	EventCertificateIssued EventType = "certificate.issued"
)

// Event is the envelope every message on the bus carries. The topic is the
// event type.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type EnrollmentCreatedEvent struct {
	EnrollmentID uint      `json:"enrollmentId"`
	UserID       string    `json:"userId"`
	CourseID     uint      `json:"courseId"`
	EnrolledAt   time.Time `json:"enrolledAt"`
}

type LessonCompletedEvent struct {
	EnrollmentID uint      `json:"enrollmentId"`
	UserID       string    `json:"userId"`
	LessonID     uint      `json:"lessonId"`
	ProgressID   uint      `json:"progressId"`
	CompletedAt  time.Time `json:"completedAt"`
}

type CertificateIssuedEvent struct {
	EnrollmentID  uint      `json:"enrollmentId"`
	UserID        string    `json:"userId"`
	CourseID      uint      `json:"courseId"`
	CertificateID uint      `json:"certificateId"`
	URL           string    `json:"url"`
	IssuedAt      time.Time `json:"issuedAt"`
}

// EventPublisher delivers domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
