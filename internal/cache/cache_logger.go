package cache

import (
	"context"
	"log/slog"
)

// SafeInvalidate bumps versionKey and deletes keys, logging any failure
func SafeInvalidate(ctx context.Context, helper *CacheHelper, versionKey string, keys ...string) {
	if err := helper.Invalidate(ctx, versionKey, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache keys",
			"error", err,
			"version_key", versionKey,
			"keys", keys)
	}
}

// InvalidateEnrollmentCache drops every cached view of one enrollment
func InvalidateEnrollmentCache(ctx context.Context, cm *CacheManager, enrollmentID uint) {
	SafeInvalidate(ctx, cm.Enrollment,
		EnrollmentVersionKey(enrollmentID),
		EnrollmentKey(enrollmentID),
		EnrollmentDetailsKey(enrollmentID))
}
