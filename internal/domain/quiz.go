package domain

import "time"

// NotificationKind distinguishes the two digest notices tracked per quiz.
// A quiz is marked for each kind independently; marking is idempotent.
type NotificationKind string

const (
	// KindContentAvailable means "a new quiz is open for responses".
	KindContentAvailable NotificationKind = "content_available"
	// KindAnswerRevealed means "the quiz closed and its answer is visible".
	KindAnswerRevealed NotificationKind = "answer_revealed"
)

func (k NotificationKind) IsValid() bool {
	switch k {
	case KindContentAvailable, KindAnswerRevealed:
		return true
	}
	return false
}

// Quiz is the core content entity. A quiz opens at OpensAt, accepts responses
// until ClosesAt, and reveals its answer once closed.
type Quiz struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Title      string    `json:"title"`
	Prompt     string    `json:"prompt"`
	Answer     string    `json:"answer,omitempty"`
	References string    `json:"references,omitempty"`
	OpensAt    time.Time `json:"opens_at"`
	ClosesAt   time.Time `json:"closes_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ClosedAt reports whether the quiz is closed as of now.
// The boundary is inclusive: a quiz whose ClosesAt equals now is closed,
// so within one digest cycle a quiz lands on exactly one side of the
// question/answer partition.
func (q *Quiz) ClosedAt(now time.Time) bool {
	return !q.ClosesAt.After(now)
}

// Response is one member's answer to a quiz. At most one per (quiz, user).
type Response struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz_id"`
	UserID      string    `json:"user_id"`
	Body        string    `json:"body"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Grade records a score awarded for one response.
type Grade struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	QuizID   string    `json:"quiz_id"`
	Score    float64   `json:"score"`
	GradedAt time.Time `json:"graded_at"`
}
