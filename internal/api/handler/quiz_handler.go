package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/quizhive/quizhive/internal/api/middleware"
	"github.com/quizhive/quizhive/internal/domain"
)

// QuizHandler serves quiz reads through the per-request loader registry,
// the same way the SPA's query resolution layer consumes it.
type QuizHandler struct {
	logger *zap.Logger
}

func NewQuizHandler(logger *zap.Logger) *QuizHandler {
	return &QuizHandler{logger: logger}
}

type quizDetail struct {
	Quiz       *domain.Quiz     `json:"quiz"`
	Author     *domain.User     `json:"author,omitempty"`
	MyResponse *domain.Response `json:"my_response,omitempty"`
}

// GetByID handles GET /api/v1/quizzes/{id}
//
// @Summary  Get a quiz with its author and the caller's own response
// @Tags     quizzes
// @Produce  json
// @Param    id  path  string  true  "Quiz ID"
// @Success  200  {object}  quizDetail
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/quizzes/{id} [get]
func (h *QuizHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reg := apimw.RegistryFrom(ctx)
	id := chi.URLParam(r, "id")

	// Queue the caller's response before resolving the quiz so both land in
	// their loaders' first window.
	pendingResponse := reg.MyResponses().Load(id)

	quiz, ok, err := reg.Quizzes().Load(id).Get(ctx)
	if err != nil {
		h.logger.Warn("quiz load failed",
			zap.String("correlation_id", apimw.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	if !ok {
		mapError(w, domain.ErrNotFound)
		return
	}

	detail := quizDetail{Quiz: quiz}

	// A closed quiz reveals its answer; an open one never does.
	if !quiz.ClosedAt(time.Now().UTC()) {
		quiz.Answer = ""
		quiz.References = ""
	}

	if author, ok, err := reg.Users().Load(quiz.AuthorID).Get(ctx); err != nil {
		mapError(w, err)
		return
	} else if ok {
		detail.Author = author
	}

	if resp, ok, err := pendingResponse.Get(ctx); err != nil {
		mapError(w, err)
		return
	} else if ok {
		detail.MyResponse = resp
	}

	respondJSON(w, http.StatusOK, detail)
}

// parseWindow reads optional from/to RFC3339 query parameters.
func parseWindow(r *http.Request) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	q := r.URL.Query()
	if f := q.Get("from"); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			return nil, nil, domain.ErrInvalidWindow
		}
		from = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, nil, domain.ErrInvalidWindow
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, domain.ErrInvalidWindow
	}
	return from, to, nil
}
