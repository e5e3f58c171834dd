package messenger_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quizhive/quizhive/internal/domain"
	"github.com/quizhive/quizhive/internal/messenger"
)

func TestWebhookMessenger_Resolve(t *testing.T) {
	m := messenger.NewWebhookMessenger(time.Second)
	url := "https://hooks.example.com/abc"

	t.Run("configured instance", func(t *testing.T) {
		h, err := m.Resolve(context.Background(), &domain.Instance{ID: "a", Name: "Alpha", DigestWebhookURL: &url})
		if err != nil {
			t.Fatal(err)
		}
		if h.WebhookURL != url || h.InstanceName != "Alpha" {
			t.Fatalf("unexpected handle %+v", h)
		}
	})

	t.Run("missing URL", func(t *testing.T) {
		_, err := m.Resolve(context.Background(), &domain.Instance{ID: "b"})
		if !errors.Is(err, domain.ErrMessengerNotConfigured) {
			t.Fatalf("expected ErrMessengerNotConfigured, got %v", err)
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		empty := ""
		_, err := m.Resolve(context.Background(), &domain.Instance{ID: "c", DigestWebhookURL: &empty})
		if !errors.Is(err, domain.ErrMessengerNotConfigured) {
			t.Fatalf("expected ErrMessengerNotConfigured, got %v", err)
		}
	})
}

func TestWebhookMessenger_Send(t *testing.T) {
	var received struct {
		Subject    string   `json:"subject"`
		Body       string   `json:"body"`
		Recipients []string `json:"recipients"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := messenger.NewWebhookMessenger(time.Second)
	defer m.Close()

	h := &messenger.Handle{InstanceID: "a", InstanceName: "Alpha", WebhookURL: srv.URL}
	recipients := []*domain.User{
		{ID: "u1", Email: "one@example.com"},
		{ID: "u2", Email: "two@example.com"},
	}
	if err := m.Send(context.Background(), h, "subj", "hello", recipients); err != nil {
		t.Fatal(err)
	}

	if received.Subject != "subj" || received.Body != "hello" {
		t.Fatalf("unexpected payload %+v", received)
	}
	if len(received.Recipients) != 2 || received.Recipients[0] != "one@example.com" {
		t.Fatalf("unexpected recipients %v", received.Recipients)
	}
}

func TestWebhookMessenger_SendNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := messenger.NewWebhookMessenger(time.Second)
	defer m.Close()

	err := m.Send(context.Background(), &messenger.Handle{WebhookURL: srv.URL}, "s", "b", nil)
	if err == nil {
		t.Fatal("expected an error for a non-2xx webhook response")
	}
}
