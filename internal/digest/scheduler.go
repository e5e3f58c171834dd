package digest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quizhive/quizhive/internal/messenger"
)

// Scheduler runs the digest pass on a wall-clock cadence.
//
// It owns exactly one background goroutine, so digest passes are sequential
// by construction and need no mutual exclusion. It also owns the messenger
// and the liveness-probe HTTP client; both are released exactly once, when
// the loop exits after cancellation (or on Stop if the loop never started).
type Scheduler struct {
	composer       *Composer
	msgr           messenger.Messenger
	cadenceMinutes int
	probeURL       string
	probeClient    *http.Client
	logger         *zap.Logger

	cancel  context.CancelFunc
	done    chan struct{}
	release sync.Once

	mu     sync.Mutex
	status Status
}

// Status is a snapshot of the scheduler's state, served by the API layer.
type Status struct {
	Enabled        bool       `json:"enabled"`
	CadenceMinutes int        `json:"cadence_minutes"`
	CyclesRun      uint64     `json:"cycles_run"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
}

func NewScheduler(
	composer *Composer,
	msgr messenger.Messenger,
	cadenceMinutes int,
	probeURL string,
	probeTimeout time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		composer:       composer,
		msgr:           msgr,
		cadenceMinutes: cadenceMinutes,
		probeURL:       probeURL,
		probeClient:    &http.Client{Timeout: probeTimeout},
		logger:         logger,
		status: Status{
			Enabled:        cadenceMinutes > 0,
			CadenceMinutes: cadenceMinutes,
		},
	}
}

// Start launches the tick loop. With a non-positive cadence the scheduler
// stays stopped and no background resource is created.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cadenceMinutes <= 0 {
		s.logger.Info("digest scheduler disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop cancels the loop and blocks until it has fully exited. A pass that is
// underway finishes its current instance group first; no new pass starts.
// Safe to call when the scheduler never started, and safe to call twice.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		// Never started: still release the owned messenger exactly once.
		s.releaseResources()
		return
	}
	s.cancel()
	<-s.done
}

// Current returns a copy of the scheduler status.
func (s *Scheduler) Current() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	// Released on loop completion, not eagerly on cancel: an in-flight pass
	// may still be using the messenger.
	defer s.releaseResources()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.logger.Info("digest scheduler started", zap.Int("cadence_minutes", s.cadenceMinutes))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("digest scheduler stopping")
			return
		case now := <-ticker.C:
			if !shouldRun(now, s.cadenceMinutes) {
				continue
			}
			s.probe(ctx)
			s.tick(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	err := s.composer.Run(ctx, now)
	if err != nil {
		s.logger.Error("digest pass failed", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.CyclesRun++
	s.status.LastRunAt = &now
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
}

// probe is a best-effort liveness ping before each pass. Failures are logged
// and swallowed; they never abort the cycle.
func (s *Scheduler) probe(ctx context.Context) {
	if s.probeURL == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.probeURL, nil)
	if err != nil {
		s.logger.Warn("liveness probe request failed", zap.Error(err))
		return
	}
	resp, err := s.probeClient.Do(req)
	if err != nil {
		s.logger.Warn("liveness probe failed", zap.Error(err))
		return
	}
	resp.Body.Close()
}

func (s *Scheduler) releaseResources() {
	s.release.Do(func() {
		s.probeClient.CloseIdleConnections()
		s.msgr.Close()
	})
}

// shouldRun gates the digest pass on the wall-clock minute: the pass fires
// only when the tick's minute is a multiple of the cadence.
func shouldRun(now time.Time, cadenceMinutes int) bool {
	return cadenceMinutes > 0 && now.Minute()%cadenceMinutes == 0
}
