package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizhive/quizhive/internal/domain"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by PostgreSQL.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const quizColumns = `id, author_id, title, prompt, answer, refs, opens_at, closes_at, created_at, updated_at`

func (s *pgStore) GetQuizzesByIDs(ctx context.Context, ids []string) ([]*domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+quizColumns+`
		FROM quizzes WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get quizzes by ids: %w", err)
	}
	defer rows.Close()
	return scanQuizzes(rows)
}

func (s *pgStore) FindUnnotified(ctx context.Context, kind domain.NotificationKind, now time.Time) ([]*domain.Quiz, error) {
	var tsColumn string
	switch kind {
	case domain.KindContentAvailable:
		tsColumn = "opens_at"
	case domain.KindAnswerRevealed:
		tsColumn = "closes_at"
	default:
		return nil, domain.ErrInvalidKind
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+quizColumns+`
		FROM quizzes q
		WHERE q.`+tsColumn+` <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM notification_marks m
			WHERE m.quiz_id = q.id AND m.kind = $2
		  )
		ORDER BY q.`+tsColumn+` ASC`, now, kind)
	if err != nil {
		return nil, fmt.Errorf("find unnotified %s: %w", kind, err)
	}
	defer rows.Close()
	return scanQuizzes(rows)
}

func (s *pgStore) MarkNotified(ctx context.Context, kind domain.NotificationKind, quizIDs []string) error {
	if len(quizIDs) == 0 {
		return nil
	}
	// ON CONFLICT DO NOTHING gives idempotency: re-marking an already-marked
	// (quiz, kind) pair inserts nothing.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_marks (quiz_id, kind)
		SELECT unnest($1::text[]), $2
		ON CONFLICT (quiz_id, kind) DO NOTHING`, quizIDs, kind)
	if err != nil {
		return fmt.Errorf("mark notified %s: %w", kind, err)
	}
	return nil
}

func (s *pgStore) GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_id, name, email, notify_digest, created_at
		FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (s *pgStore) ListSubscribedMembers(ctx context.Context, instanceID string) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_id, name, email, notify_digest, created_at
		FROM users
		WHERE instance_id = $1 AND notify_digest
		ORDER BY name ASC`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list subscribed members: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (s *pgStore) GetInstancesByIDs(ctx context.Context, ids []string) ([]*domain.Instance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, digest_webhook_url, digest_email, created_at
		FROM instances WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get instances by ids: %w", err)
	}
	defer rows.Close()

	var result []*domain.Instance
	for rows.Next() {
		var inst domain.Instance
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.DigestWebhookURL, &inst.DigestEmail, &inst.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &inst)
	}
	return result, rows.Err()
}

func (s *pgStore) ListSeasonsByInstanceIDs(ctx context.Context, instanceIDs []string, from, to *time.Time) (map[string][]*domain.Season, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_id, name, starts_at, ends_at
		FROM seasons
		WHERE instance_id = ANY($1)
		  AND ($2::timestamptz IS NULL OR starts_at >= $2)
		  AND ($3::timestamptz IS NULL OR starts_at <= $3)
		ORDER BY starts_at ASC`, instanceIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]*domain.Season)
	for rows.Next() {
		var season domain.Season
		if err := rows.Scan(&season.ID, &season.InstanceID, &season.Name, &season.StartsAt, &season.EndsAt); err != nil {
			return nil, err
		}
		result[season.InstanceID] = append(result[season.InstanceID], &season)
	}
	return result, rows.Err()
}

func (s *pgStore) GetGradesByIDs(ctx context.Context, ids []string) ([]*domain.Grade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, quiz_id, score, graded_at
		FROM grades WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get grades by ids: %w", err)
	}
	defer rows.Close()
	return scanGrades(rows)
}

func (s *pgStore) ListGradesByUserIDs(ctx context.Context, userIDs []string, from, to *time.Time) (map[string][]*domain.Grade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, quiz_id, score, graded_at
		FROM grades
		WHERE user_id = ANY($1)
		  AND ($2::timestamptz IS NULL OR graded_at >= $2)
		  AND ($3::timestamptz IS NULL OR graded_at <= $3)
		ORDER BY graded_at ASC`, userIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]*domain.Grade)
	for rows.Next() {
		var g domain.Grade
		if err := rows.Scan(&g.ID, &g.UserID, &g.QuizID, &g.Score, &g.GradedAt); err != nil {
			return nil, err
		}
		result[g.UserID] = append(result[g.UserID], &g)
	}
	return result, rows.Err()
}

func (s *pgStore) GetResponsesForUser(ctx context.Context, userID string, quizIDs []string) (map[string]*domain.Response, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, user_id, body, submitted_at
		FROM responses
		WHERE user_id = $1 AND quiz_id = ANY($2)`, userID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("get responses for user: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*domain.Response)
	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.ID, &resp.QuizID, &resp.UserID, &resp.Body, &resp.SubmittedAt); err != nil {
			return nil, err
		}
		result[resp.QuizID] = &resp
	}
	return result, rows.Err()
}

// ---- helpers ----

func scanQuizzes(rows pgx.Rows) ([]*domain.Quiz, error) {
	var result []*domain.Quiz
	for rows.Next() {
		var q domain.Quiz
		err := rows.Scan(
			&q.ID, &q.AuthorID, &q.Title, &q.Prompt, &q.Answer, &q.References,
			&q.OpensAt, &q.ClosesAt, &q.CreatedAt, &q.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, &q)
	}
	return result, rows.Err()
}

func scanUsers(rows pgx.Rows) ([]*domain.User, error) {
	var result []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.InstanceID, &u.Name, &u.Email, &u.NotifyDigest, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &u)
	}
	return result, rows.Err()
}

func scanGrades(rows pgx.Rows) ([]*domain.Grade, error) {
	var result []*domain.Grade
	for rows.Next() {
		var g domain.Grade
		if err := rows.Scan(&g.ID, &g.UserID, &g.QuizID, &g.Score, &g.GradedAt); err != nil {
			return nil, err
		}
		result = append(result, &g)
	}
	return result, rows.Err()
}
