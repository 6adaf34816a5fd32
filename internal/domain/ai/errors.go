package ai

import "errors"

var (
	// ErrQuotaExceeded is returned when the backend rejects the request for
	// quota/billing reasons.
	ErrQuotaExceeded = errors.New("ai quota exceeded")

	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("ai analyst not configured")
)
