package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quizhive/quizhive/internal/digest"
	"github.com/quizhive/quizhive/internal/domain"
	"github.com/quizhive/quizhive/internal/loader"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	LoaderBatches   *prometheus.CounterVec
	LoaderBatchSize *prometheus.HistogramVec

	DigestCycles    prometheus.Counter
	DigestsSent     prometheus.Counter
	DigestsFailed   prometheus.Counter
	QuizzesNotified *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoaderBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loader_batches_total",
			Help: "Total number of dispatched loader batch windows.",
		}, []string{"loader"}),

		LoaderBatchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loader_batch_keys",
			Help:    "Deduplicated key count per dispatched loader batch window.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"loader"}),

		DigestCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digest_cycles_total",
			Help: "Total number of digest passes started by the scheduler.",
		}),

		DigestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digests_sent_total",
			Help: "Total number of per-instance digest messages successfully sent.",
		}),

		DigestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "digests_failed_total",
			Help: "Total number of per-instance digest attempts that failed.",
		}),

		QuizzesNotified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quizzes_notified_total",
			Help: "Total number of quizzes marked notified, by notification kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.LoaderBatches,
		m.LoaderBatchSize,
		m.DigestCycles,
		m.DigestsSent,
		m.DigestsFailed,
		m.QuizzesNotified,
	)

	return m
}

// LoaderHooks returns the callback struct expected by loader.NewRegistry.
// Centralises the prometheus observation calls so the loader package stays
// metrics-agnostic.
func (m *Metrics) LoaderHooks() loader.Hooks {
	return loader.Hooks{
		OnBatch: func(name string, keys int) {
			m.LoaderBatches.WithLabelValues(name).Inc()
			m.LoaderBatchSize.WithLabelValues(name).Observe(float64(keys))
		},
	}
}

// DigestHooks returns the callback struct expected by digest.NewComposer.
func (m *Metrics) DigestHooks() digest.Hooks {
	return digest.Hooks{
		OnCycle:  func() { m.DigestCycles.Inc() },
		OnSent:   func(string) { m.DigestsSent.Inc() },
		OnFailed: func(string) { m.DigestsFailed.Inc() },
		OnMarked: func(kind domain.NotificationKind, count int) {
			m.QuizzesNotified.WithLabelValues(string(kind)).Add(float64(count))
		},
	}
}
