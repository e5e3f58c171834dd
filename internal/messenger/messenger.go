package messenger

import (
	"context"

	"github.com/quizhive/quizhive/internal/domain"
)

// Handle is a resolved outbound-messaging target for one instance.
// Resolution does not perform any network call; it only checks that the
// instance has the integration configured and captures what a send needs.
type Handle struct {
	InstanceID   string
	InstanceName string

	// WebhookURL is set by the webhook driver only.
	WebhookURL string
}

// Messenger abstracts digest delivery to an external messaging service.
//
// Resolve returns domain.ErrMessengerNotConfigured when the instance has no
// integration set up; that is a soft outcome, not a fault. Send delivers one
// composed digest to all recipients in a single outbound call.
//
// Mocking this interface in tests gives full control over delivery behaviour
// without real HTTP calls.
type Messenger interface {
	Resolve(ctx context.Context, inst *domain.Instance) (*Handle, error)
	Send(ctx context.Context, h *Handle, subject, body string, recipients []*domain.User) error

	// Close releases the underlying HTTP client. Called exactly once by the
	// owning digest scheduler on shutdown.
	Close()
}
