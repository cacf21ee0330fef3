package models

import (
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentCancelled  EnrollmentStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition may leave the status.
func (s EnrollmentStatus) IsTerminal() bool {
	return s == EnrollmentCompleted || s == EnrollmentCancelled
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// Staying in the same status is always allowed.
func (s EnrollmentStatus) CanTransitionTo(next EnrollmentStatus) bool {
	if s == next {
		return true
	}
	if s != EnrollmentInProgress {
		return false
	}
	return next.IsTerminal()
}

type Enrollment struct {
	ID         uint             `json:"enrollmentId" gorm:"primaryKey"`
	UserID     string           `json:"userId" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course"`
	CourseID   uint             `json:"courseId" gorm:"not null;uniqueIndex:idx_enrollment_user_course;index"`
	EnrolledAt time.Time        `json:"enrolledAt" gorm:"not null"`
	Status     EnrollmentStatus `json:"status" gorm:"size:20;not null;default:IN_PROGRESS;index"`
	UpdatedAt  time.Time        `json:"updatedAt"`

	// Owned collection, loaded on single-enrollment reads
	Progress []Progress `json:"progressList,omitempty" gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

type Progress struct {
	ID           uint       `json:"progressId" gorm:"primaryKey"`
	EnrollmentID uint       `json:"enrollmentId" gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson"`
	LessonID     uint       `json:"lessonId" gorm:"not null;uniqueIndex:idx_progress_enrollment_lesson"`
	Completed    bool       `json:"completed" gorm:"not null;default:false"`
	CompletedAt  *time.Time `json:"completedAt"`
}

func (Progress) TableName() string {
	return "progress"
}

type Certificate struct {
	ID           uint      `json:"certificateId" gorm:"primaryKey"`
	EnrollmentID uint      `json:"enrollmentId" gorm:"not null;uniqueIndex:idx_certificate_enrollment"`
	IssuedAt     time.Time `json:"issuedAt" gorm:"not null"`
	URL          string    `json:"url" gorm:"size:500;not null"`
}

func (Certificate) TableName() string {
	return "certificates"
}
