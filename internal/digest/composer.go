package digest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizhive/quizhive/internal/domain"
	"github.com/quizhive/quizhive/internal/messenger"
	"github.com/quizhive/quizhive/internal/ratelimiter"
	"github.com/quizhive/quizhive/internal/repository"
)

// Hooks carries the metric callbacks injected by main. Nil funcs are no-ops.
type Hooks struct {
	OnCycle  func()
	OnSent   func(instanceID string)
	OnFailed func(instanceID string)
	OnMarked func(kind domain.NotificationKind, count int)
}

func (h *Hooks) fill() {
	if h.OnCycle == nil {
		h.OnCycle = func() {}
	}
	if h.OnSent == nil {
		h.OnSent = func(string) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(string) {}
	}
	if h.OnMarked == nil {
		h.OnMarked = func(domain.NotificationKind, int) {}
	}
}

// Composer builds and sends one digest per instance each cycle.
//
// Retry is by omission: a quiz is marked notified only after its instance's
// digest was actually sent, so anything skipped or failed simply reappears in
// the next cycle's eligibility queries. The composer itself never re-queues.
type Composer struct {
	store   repository.Store
	msgr    messenger.Messenger
	limiter *ratelimiter.SendLimiter
	logger  *zap.Logger
	hooks   Hooks
}

func NewComposer(
	store repository.Store,
	msgr messenger.Messenger,
	limiter *ratelimiter.SendLimiter,
	logger *zap.Logger,
	hooks Hooks,
) *Composer {
	hooks.fill()
	return &Composer{store: store, msgr: msgr, limiter: limiter, logger: logger, hooks: hooks}
}

// Run executes one digest cycle against the reference instant now. The same
// instant selects eligibility and partitions questions from answers, so a
// quiz lands on exactly one side per cycle.
//
// A failure for one instance is logged and isolated; remaining instances are
// still processed. The returned error is non-nil only when the cycle could
// not start at all (eligibility or author lookup failed).
func (c *Composer) Run(ctx context.Context, now time.Time) error {
	c.hooks.OnCycle()
	logger := c.logger.With(zap.String("cycle_id", uuid.New().String()))

	opened, err := c.store.FindUnnotified(ctx, domain.KindContentAvailable, now)
	if err != nil {
		return fmt.Errorf("find newly opened quizzes: %w", err)
	}
	closed, err := c.store.FindUnnotified(ctx, domain.KindAnswerRevealed, now)
	if err != nil {
		return fmt.Errorf("find newly closed quizzes: %w", err)
	}

	combined := dedupeQuizzes(opened, closed)
	if len(combined) == 0 {
		return nil
	}

	byInstance, err := c.groupByInstance(ctx, logger, combined)
	if err != nil {
		return err
	}

	instanceIDs := make([]string, 0, len(byInstance))
	for id := range byInstance {
		instanceIDs = append(instanceIDs, id)
	}
	sort.Strings(instanceIDs)

	instances, err := c.store.GetInstancesByIDs(ctx, instanceIDs)
	if err != nil {
		return fmt.Errorf("resolve instances: %w", err)
	}
	instanceByID := make(map[string]*domain.Instance, len(instances))
	for _, inst := range instances {
		instanceByID[inst.ID] = inst
	}

	for _, id := range instanceIDs {
		inst, ok := instanceByID[id]
		if !ok {
			logger.Warn("quizzes reference unknown instance", zap.String("instance_id", id))
			continue
		}
		if err := c.sendInstanceDigest(ctx, logger, inst, byInstance[id], now); err != nil {
			logger.Error("instance digest failed",
				zap.String("instance_id", id), zap.Error(err))
			c.hooks.OnFailed(id)
		}
	}
	return nil
}

// groupByInstance resolves every distinct author in one batched lookup and
// buckets the quizzes by the author's instance.
func (c *Composer) groupByInstance(ctx context.Context, logger *zap.Logger, quizzes []*domain.Quiz) (map[string][]*domain.Quiz, error) {
	authorIDs := make([]string, 0, len(quizzes))
	seen := make(map[string]bool, len(quizzes))
	for _, q := range quizzes {
		if !seen[q.AuthorID] {
			seen[q.AuthorID] = true
			authorIDs = append(authorIDs, q.AuthorID)
		}
	}

	authors, err := c.store.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve quiz authors: %w", err)
	}
	instanceByAuthor := make(map[string]string, len(authors))
	for _, u := range authors {
		instanceByAuthor[u.ID] = u.InstanceID
	}

	byInstance := make(map[string][]*domain.Quiz)
	for _, q := range quizzes {
		instID, ok := instanceByAuthor[q.AuthorID]
		if !ok {
			logger.Warn("quiz author not found, skipping quiz",
				zap.String("quiz_id", q.ID), zap.String("author_id", q.AuthorID))
			continue
		}
		byInstance[instID] = append(byInstance[instID], q)
	}
	return byInstance, nil
}

// sendInstanceDigest composes, sends, and marks one instance's digest.
//
// A nil return does not always mean a message went out: an instance with no
// subscribed members or no configured messenger is skipped without marking,
// so its quizzes surface again next cycle. Marking happens synchronously
// right after a verified successful send, in this same call stack.
func (c *Composer) sendInstanceDigest(ctx context.Context, logger *zap.Logger, inst *domain.Instance, quizzes []*domain.Quiz, now time.Time) error {
	members, err := c.store.ListSubscribedMembers(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("list subscribed members: %w", err)
	}
	if len(members) == 0 {
		logger.Debug("no subscribed members, skipping digest", zap.String("instance_id", inst.ID))
		return nil
	}

	h, err := c.msgr.Resolve(ctx, inst)
	if errors.Is(err, domain.ErrMessengerNotConfigured) {
		logger.Debug("messenger not configured, skipping digest", zap.String("instance_id", inst.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve messenger handle: %w", err)
	}

	questions, answers := partition(quizzes, now)

	subject := renderSubject(questions, answers)
	body, err := renderBody(inst.Name, questions, answers)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send limiter: %w", err)
	}
	if err := c.msgr.Send(ctx, h, subject, body, members); err != nil {
		// Nothing is marked: the whole group stays eligible for the next cycle.
		return fmt.Errorf("send digest: %w", err)
	}
	c.hooks.OnSent(inst.ID)
	logger.Info("digest sent",
		zap.String("instance_id", inst.ID),
		zap.Int("questions", len(questions)),
		zap.Int("answers", len(answers)),
		zap.Int("recipients", len(members)))

	// Every quiz in the digest gets the content-available mark; closed ones
	// additionally get the answer-revealed mark. Both are idempotent.
	allIDs := quizIDs(quizzes)
	if err := c.store.MarkNotified(ctx, domain.KindContentAvailable, allIDs); err != nil {
		return fmt.Errorf("mark content-available: %w", err)
	}
	c.hooks.OnMarked(domain.KindContentAvailable, len(allIDs))

	if len(answers) > 0 {
		answerIDs := quizIDs(answers)
		if err := c.store.MarkNotified(ctx, domain.KindAnswerRevealed, answerIDs); err != nil {
			return fmt.Errorf("mark answer-revealed: %w", err)
		}
		c.hooks.OnMarked(domain.KindAnswerRevealed, len(answerIDs))
	}
	return nil
}

// partition splits an instance's quizzes into still-open questions and
// closed answers relative to now. The close boundary is inclusive on the
// answer side (Quiz.ClosedAt), matching the eligibility queries.
func partition(quizzes []*domain.Quiz, now time.Time) (questions, answers []*domain.Quiz) {
	for _, q := range quizzes {
		if q.ClosedAt(now) {
			answers = append(answers, q)
		} else {
			questions = append(questions, q)
		}
	}
	return questions, answers
}

func dedupeQuizzes(lists ...[]*domain.Quiz) []*domain.Quiz {
	var combined []*domain.Quiz
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, q := range list {
			if !seen[q.ID] {
				seen[q.ID] = true
				combined = append(combined, q)
			}
		}
	}
	return combined
}

func quizIDs(quizzes []*domain.Quiz) []string {
	ids := make([]string, len(quizzes))
	for i, q := range quizzes {
		ids[i] = q.ID
	}
	return ids
}
