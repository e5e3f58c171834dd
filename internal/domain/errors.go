package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound = errors.New("not found")

	// ErrMessengerNotConfigured means the instance has no outbound messaging
	// integration set up. It is a soft "feature unavailable" outcome: loaders
	// degrade the affected key to absent, the digest composer skips the
	// instance without failing the cycle.
	ErrMessengerNotConfigured = errors.New("instance has no messenger configured")

	ErrInvalidWindow = errors.New("invalid time window: from must not be after to")
	ErrInvalidKind   = errors.New("invalid notification kind")
)
