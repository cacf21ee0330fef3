package services

import (
	"errors"
	"fmt"
)

// Error categories the request boundary maps to status codes
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
)

var (
	ErrEnrollmentNotFound      = fmt.Errorf("enrollment %w", ErrNotFound)
	ErrCertificateNotFound     = fmt.Errorf("certificate %w", ErrNotFound)
	ErrDuplicateEnrollment     = fmt.Errorf("already enrolled in this course: %w", ErrConflict)
	ErrInvalidStatusTransition = fmt.Errorf("enrollment status does not allow this change: %w", ErrConflict)
)

// PermissionError describes a refused action on an owned resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %q may not %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}
