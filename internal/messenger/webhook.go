package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quizhive/quizhive/internal/domain"
)

// webhookPayload is the JSON body posted to the instance's webhook.
type webhookPayload struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// WebhookMessenger delivers digests by POSTing to the per-instance webhook
// URL stored on the instance record.
type WebhookMessenger struct {
	httpClient *http.Client
}

func NewWebhookMessenger(timeout time.Duration) *WebhookMessenger {
	return &WebhookMessenger{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Resolve succeeds only for instances that configured a webhook URL.
func (m *WebhookMessenger) Resolve(_ context.Context, inst *domain.Instance) (*Handle, error) {
	if inst.DigestWebhookURL == nil || *inst.DigestWebhookURL == "" {
		return nil, domain.ErrMessengerNotConfigured
	}
	return &Handle{
		InstanceID:   inst.ID,
		InstanceName: inst.Name,
		WebhookURL:   *inst.DigestWebhookURL,
	}, nil
}

// Send posts the digest to the handle's webhook URL. Recipients are listed in
// the payload so the receiving integration can address members individually;
// delivery is still one outbound call.
func (m *WebhookMessenger) Send(ctx context.Context, h *Handle, subject, body string, recipients []*domain.User) error {
	emails := make([]string, len(recipients))
	for i, u := range recipients {
		emails[i] = u.Email
	}

	payload, err := json.Marshal(webhookPayload{
		Subject:    subject,
		Body:       body,
		Recipients: emails,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected webhook status: %d", resp.StatusCode)
	}
	return nil
}

func (m *WebhookMessenger) Close() {
	m.httpClient.CloseIdleConnections()
}

// compile-time check that WebhookMessenger implements Messenger
var _ Messenger = (*WebhookMessenger)(nil)
