package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/quizhive/quizhive/internal/api/middleware"
	"github.com/quizhive/quizhive/internal/loader"
)

// WindowHandler serves the time-windowed grouped listings (seasons per
// instance, grades per user) through the loader registry.
type WindowHandler struct {
	logger *zap.Logger
}

func NewWindowHandler(logger *zap.Logger) *WindowHandler {
	return &WindowHandler{logger: logger}
}

// ListSeasons handles GET /api/v1/instances/{id}/seasons
//
// @Summary  List an instance's seasons, optionally bounded by a time window
// @Tags     seasons
// @Produce  json
// @Param    id    path   string  true   "Instance ID"
// @Param    from  query  string  false  "Window start (RFC3339)"
// @Param    to    query  string  false  "Window end (RFC3339)"
// @Success  200  {object}  map[string]any
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/instances/{id}/seasons [get]
func (h *WindowHandler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, to, err := parseWindow(r)
	if err != nil {
		mapError(w, err)
		return
	}

	key := loader.SeasonWindowKey{
		InstanceID: chi.URLParam(r, "id"),
		Window:     loader.NewTimeWindow(from, to),
	}
	seasons, _, err := apimw.RegistryFrom(ctx).Seasons().Load(key).Get(ctx)
	if err != nil {
		h.logger.Warn("season load failed",
			zap.String("correlation_id", apimw.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  seasons,
		"total": len(seasons),
	})
}

// ListGrades handles GET /api/v1/users/{id}/grades
//
// @Summary  List a user's grades, optionally bounded by a time window
// @Tags     grades
// @Produce  json
// @Param    id    path   string  true   "User ID"
// @Param    from  query  string  false  "Window start (RFC3339)"
// @Param    to    query  string  false  "Window end (RFC3339)"
// @Success  200  {object}  map[string]any
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/users/{id}/grades [get]
func (h *WindowHandler) ListGrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, to, err := parseWindow(r)
	if err != nil {
		mapError(w, err)
		return
	}

	key := loader.GradeWindowKey{
		UserID: chi.URLParam(r, "id"),
		Window: loader.NewTimeWindow(from, to),
	}
	grades, _, err := apimw.RegistryFrom(ctx).GradeWindows().Load(key).Get(ctx)
	if err != nil {
		h.logger.Warn("grade load failed",
			zap.String("correlation_id", apimw.GetCorrelationID(ctx)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  grades,
		"total": len(grades),
	})
}
