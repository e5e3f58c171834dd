package handler

import (
	"net/http"

	"github.com/quizhive/quizhive/internal/digest"
)

// DigestHandler serves a human-readable snapshot of the digest scheduler.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type DigestHandler struct {
	scheduler *digest.Scheduler
}

func NewDigestHandler(scheduler *digest.Scheduler) *DigestHandler {
	return &DigestHandler{scheduler: scheduler}
}

// Status handles GET /api/v1/digest/status
//
// @Summary  Digest scheduler status snapshot
// @Tags     digest
// @Produce  json
// @Success  200  {object}  digest.Status
// @Router   /api/v1/digest/status [get]
func (h *DigestHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.Current())
}
