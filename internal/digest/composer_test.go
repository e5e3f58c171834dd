package digest_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quizhive/quizhive/internal/digest"
	"github.com/quizhive/quizhive/internal/domain"
	"github.com/quizhive/quizhive/internal/messenger"
	"github.com/quizhive/quizhive/internal/ratelimiter"
	"github.com/quizhive/quizhive/internal/repository"
)

// capturingMessenger records every send and can fail selected instances.
type capturingMessenger struct {
	mu         sync.Mutex
	sent       []sentDigest
	failFor    map[string]error
	closeCalls int
}

type sentDigest struct {
	instanceID string
	subject    string
	body       string
	recipients []*domain.User
}

func newCapturingMessenger() *capturingMessenger {
	return &capturingMessenger{failFor: make(map[string]error)}
}

func (m *capturingMessenger) Resolve(_ context.Context, inst *domain.Instance) (*messenger.Handle, error) {
	if inst.DigestWebhookURL == nil {
		return nil, domain.ErrMessengerNotConfigured
	}
	return &messenger.Handle{InstanceID: inst.ID, InstanceName: inst.Name, WebhookURL: *inst.DigestWebhookURL}, nil
}

func (m *capturingMessenger) Send(_ context.Context, h *messenger.Handle, subject, body string, recipients []*domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[h.InstanceID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentDigest{instanceID: h.InstanceID, subject: subject, body: body, recipients: recipients})
	return nil
}

func (m *capturingMessenger) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
}

func (m *capturingMessenger) sends() []sentDigest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentDigest(nil), m.sent...)
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fixture: one instance with a configured webhook, one subscribed member,
// one quiz that opened before now and one that closed before now.
func seedInstance(store *repository.MockStore, instID string, now time.Time) {
	url := "https://hooks.example.com/" + instID
	store.Instances[instID] = &domain.Instance{ID: instID, Name: "Inst " + instID, DigestWebhookURL: &url}
	store.Users["author-"+instID] = &domain.User{ID: "author-" + instID, InstanceID: instID, Name: "Author"}
	store.Users["member-"+instID] = &domain.User{
		ID: "member-" + instID, InstanceID: instID, Name: "Member",
		Email: "member@" + instID + ".example.com", NotifyDigest: true,
	}
	store.Quizzes["open-"+instID] = &domain.Quiz{
		ID: "open-" + instID, AuthorID: "author-" + instID,
		Title: "Open Quiz", Prompt: "What opens?", Answer: "secret",
		OpensAt: now.Add(-time.Hour), ClosesAt: now.Add(time.Hour),
	}
	store.Quizzes["closed-"+instID] = &domain.Quiz{
		ID: "closed-" + instID, AuthorID: "author-" + instID,
		Title: "Closed Quiz", Prompt: "What closed?", Answer: "the answer", References: "ch. 4",
		OpensAt: now.Add(-2 * time.Hour), ClosesAt: now.Add(-time.Minute),
	}
}

func newComposer(store *repository.MockStore, msgr messenger.Messenger, hooks digest.Hooks) *digest.Composer {
	return digest.NewComposer(store, msgr, ratelimiter.New(0), zap.NewNop(), hooks)
}

func TestComposer_SendsAndMarksOneInstance(t *testing.T) {
	now := ts("2026-09-01T10:00:00Z")
	store := repository.NewMockStore()
	seedInstance(store, "a", now)
	msgr := newCapturingMessenger()

	var marked []string
	c := newComposer(store, msgr, digest.Hooks{
		OnMarked: func(kind domain.NotificationKind, count int) {
			marked = append(marked, string(kind))
		},
	})

	if err := c.Run(context.Background(), now); err != nil {
		t.Fatal(err)
	}

	sends := msgr.sends()
	if len(sends) != 1 {
		t.Fatalf("expected one digest send, got %d", len(sends))
	}
	s := sends[0]
	if s.instanceID != "a" || len(s.recipients) != 1 {
		t.Fatalf("unexpected send target: %+v", s)
	}

	// Open quiz appears as a question, without its answer; closed quiz
	// appears with answer and references.
	if !strings.Contains(s.body, "What opens?") {
		t.Fatalf("body missing open quiz prompt:\n%s", s.body)
	}
	if strings.Contains(s.body, "secret") {
		t.Fatalf("body leaked the open quiz answer:\n%s", s.body)
	}
	if !strings.Contains(s.body, "the answer") || !strings.Contains(s.body, "ch. 4") {
		t.Fatalf("body missing revealed answer or references:\n%s", s.body)
	}
	if !strings.Contains(s.subject, "1 new quiz") || !strings.Contains(s.subject, "1 revealed answer") {
		t.Fatalf("unexpected subject %q", s.subject)
	}

	// Both quizzes get the content-available mark; only the closed one the
	// answer-revealed mark.
	if !store.Marked("open-a", domain.KindContentAvailable) || store.MarkCount("open-a") != 1 {
		t.Fatal("open quiz should carry exactly the content-available mark")
	}
	if !store.Marked("closed-a", domain.KindContentAvailable) || !store.Marked("closed-a", domain.KindAnswerRevealed) {
		t.Fatal("closed quiz should carry both marks")
	}
	if len(marked) != 2 {
		t.Fatalf("expected two OnMarked callbacks, got %v", marked)
	}
}

func TestComposer_SecondRunIsNoop(t *testing.T) {
	now := ts("2026-09-01T10:00:00Z")
	store := repository.NewMockStore()
	seedInstance(store, "a", now)
	msgr := newCapturingMessenger()
	c := newComposer(store, msgr, digest.Hooks{})
	ctx := context.Background()

	if err := c.Run(ctx, now); err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := store.Calls()

	if err := c.Run(ctx, now); err != nil {
		t.Fatal(err)
	}
	if got := len(msgr.sends()); got != 1 {
		t.Fatalf("expected no second send, got %d", got)
	}
	// Only the two eligibility queries ran on the second pass.
	if got := store.Calls() - callsAfterFirst; got != 2 {
		t.Fatalf("expected 2 calls on the no-op pass, got %d", got)
	}
}

func TestComposer_FailedInstanceIsIsolated(t *testing.T) {
	now := ts("2026-09-01T10:00:00Z")
	store := repository.NewMockStore()
	seedInstance(store, "a", now)
	seedInstance(store, "b", now)
	msgr := newCapturingMessenger()
	msgr.failFor["a"] = errors.New("webhook 500")

	var failed []string
	c := newComposer(store, msgr, digest.Hooks{
		OnFailed: func(instanceID string) { failed = append(failed, instanceID) },
	})

	if err := c.Run(context.Background(), now); err != nil {
		t.Fatalf("a single failed instance must not fail the cycle, got %v", err)
	}

	sends := msgr.sends()
	if len(sends) != 1 || sends[0].instanceID != "b" {
		t.Fatalf("expected instance b to still receive its digest, got %+v", sends)
	}
	if len(failed) != 1 || failed[0] != "a" {
		t.Fatalf("expected OnFailed for instance a, got %v", failed)
	}

	// Nothing of the failed instance is marked: its quizzes stay eligible.
	if store.MarkCount("open-a") != 0 || store.MarkCount("closed-a") != 0 {
		t.Fatal("failed instance must leave its quizzes unmarked")
	}
	if !store.Marked("open-b", domain.KindContentAvailable) {
		t.Fatal("successful instance must be marked")
	}
}

func TestComposer_SkipsWithoutMarking(t *testing.T) {
	now := ts("2026-09-01T10:00:00Z")

	t.Run("no subscribed members", func(t *testing.T) {
		store := repository.NewMockStore()
		seedInstance(store, "a", now)
		store.Users["member-a"].NotifyDigest = false
		msgr := newCapturingMessenger()

		if err := newComposer(store, msgr, digest.Hooks{}).Run(context.Background(), now); err != nil {
			t.Fatal(err)
		}
		if len(msgr.sends()) != 0 {
			t.Fatal("expected no send without subscribers")
		}
		if store.MarkCount("open-a") != 0 {
			t.Fatal("a skipped instance must stay unmarked")
		}
	})

	t.Run("messenger not configured", func(t *testing.T) {
		store := repository.NewMockStore()
		seedInstance(store, "a", now)
		store.Instances["a"].DigestWebhookURL = nil
		msgr := newCapturingMessenger()

		if err := newComposer(store, msgr, digest.Hooks{}).Run(context.Background(), now); err != nil {
			t.Fatal(err)
		}
		if len(msgr.sends()) != 0 {
			t.Fatal("expected no send without a configured messenger")
		}
		if store.MarkCount("closed-a") != 0 {
			t.Fatal("a skipped instance must stay unmarked")
		}
	})
}

func TestComposer_EligibilityErrorAbortsCycle(t *testing.T) {
	store := repository.NewMockStore()
	store.FindUnnotifiedErr = errors.New("db down")
	msgr := newCapturingMessenger()

	err := newComposer(store, msgr, digest.Hooks{}).Run(context.Background(), ts("2026-09-01T10:00:00Z"))
	if err == nil {
		t.Fatal("expected the cycle to fail when eligibility cannot be read")
	}
	if len(msgr.sends()) != 0 {
		t.Fatal("expected no sends after an aborted cycle")
	}
}
