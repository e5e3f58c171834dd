package messenger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/quizhive/quizhive/internal/domain"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridMessenger delivers digests as a single email per instance,
// addressed individually to every subscribed member.
type SendgridMessenger struct {
	key  string
	from *sgmail.Email
}

func NewSendgridMessenger(apiKey, fromName, fromEmail string) *SendgridMessenger {
	return &SendgridMessenger{
		key:  apiKey,
		from: sgmail.NewEmail(fromName, fromEmail),
	}
}

// Resolve succeeds only for instances that opted in to email digests.
func (m *SendgridMessenger) Resolve(_ context.Context, inst *domain.Instance) (*Handle, error) {
	if !inst.DigestEmail {
		return nil, domain.ErrMessengerNotConfigured
	}
	return &Handle{
		InstanceID:   inst.ID,
		InstanceName: inst.Name,
	}, nil
}

func (m *SendgridMessenger) Send(ctx context.Context, _ *Handle, subject, body string, recipients []*domain.User) error {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	for _, u := range recipients {
		p.AddTos(sgmail.NewEmail(u.Name, u.Email))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// Close is a no-op: the sendgrid client manages its own transport through
// the package-level default, which is shared and must not be torn down here.
func (m *SendgridMessenger) Close() {}

// compile-time check that SendgridMessenger implements Messenger
var _ Messenger = (*SendgridMessenger)(nil)
