package repository

import (
	"context"
	"time"

	"github.com/quizhive/quizhive/internal/domain"
)

// QuizRepository covers quiz lookups plus the digest eligibility queries.
// The pgx implementation is in pg_store.go; tests use the hand-written
// mock (mock_store.go).
type QuizRepository interface {
	// GetQuizzesByIDs returns the quizzes matching ids. Missing ids are
	// simply absent from the result, never an error.
	GetQuizzesByIDs(ctx context.Context, ids []string) ([]*domain.Quiz, error)

	// FindUnnotified returns quizzes eligible for a notice of the given kind
	// as of now, excluding quizzes already marked for that kind.
	// KindContentAvailable: opens_at <= now. KindAnswerRevealed: closes_at <= now.
	FindUnnotified(ctx context.Context, kind domain.NotificationKind, now time.Time) ([]*domain.Quiz, error)

	// MarkNotified records that each quiz has been notified for kind.
	// Idempotent: already-marked ids are a no-op.
	MarkNotified(ctx context.Context, kind domain.NotificationKind, quizIDs []string) error
}

// UserRepository covers member lookups.
type UserRepository interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error)

	// ListSubscribedMembers returns the instance's members with the
	// notify-digest flag set, ordered by name.
	ListSubscribedMembers(ctx context.Context, instanceID string) ([]*domain.User, error)
}

// InstanceRepository covers tenant lookups.
type InstanceRepository interface {
	GetInstancesByIDs(ctx context.Context, ids []string) ([]*domain.Instance, error)
}

// SeasonRepository serves the grouped-by-window season loader. The result
// lists are ordered chronologically by starts_at; callers rely on that order.
type SeasonRepository interface {
	ListSeasonsByInstanceIDs(ctx context.Context, instanceIDs []string, from, to *time.Time) (map[string][]*domain.Season, error)
}

// GradeRepository covers grade lookups and the windowed per-user listing.
type GradeRepository interface {
	GetGradesByIDs(ctx context.Context, ids []string) ([]*domain.Grade, error)

	// ListGradesByUserIDs returns each user's grades within the optional
	// window, ordered chronologically by graded_at.
	ListGradesByUserIDs(ctx context.Context, userIDs []string, from, to *time.Time) (map[string][]*domain.Grade, error)
}

// ResponseRepository serves the context-filtered "my response" loader.
type ResponseRepository interface {
	// GetResponsesForUser returns the user's own responses to the given
	// quizzes, keyed by quiz ID. Quizzes the user never answered are absent.
	GetResponsesForUser(ctx context.Context, userID string, quizIDs []string) (map[string]*domain.Response, error)
}

// Store aggregates every repository the loader registry and the digest
// composer consume. A single pgx-backed value implements all of them.
type Store interface {
	QuizRepository
	UserRepository
	InstanceRepository
	SeasonRepository
	GradeRepository
	ResponseRepository
}
