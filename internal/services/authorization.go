package services

import (
	"strings"

	"github.com/SAP-F-2025/enrollment-service/internal/models"
)

// Authorize allows the owner of a resource and any admin. It is the only
// ownership check in the service; handlers and mutations both call it.
func Authorize(requesterID, requesterRole, ownerID string) error {
	if requesterID != "" && requesterID == ownerID {
		return nil
	}
	if strings.EqualFold(requesterRole, models.RoleAdmin.String()) {
		return nil
	}

	reason := "not the owner"
	if requesterID == "" {
		reason = "anonymous requester"
	}
	return &PermissionError{UserID: requesterID, Reason: reason}
}
