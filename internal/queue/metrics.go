package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the executor's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	items         *prometheus.CounterVec
	timeouts      prometheus.Counter
	hookErrors    prometheus.Counter
	switches      *prometheus.CounterVec
	swept         prometheus.Counter
	batchDuration prometheus.Histogram
	batchSize     prometheus.Histogram
}

// NewMetrics registers the collectors on reg, labelled with the base queue.
// It returns nil when reg is nil.
func NewMetrics(reg prometheus.Registerer, queue string) *Metrics {
	if reg == nil {
		return nil
	}
	reg = prometheus.WrapRegistererWith(prometheus.Labels{"queue": queue}, reg)
	f := promauto.With(reg)

	return &Metrics{
		items: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rqueue_items_total",
			Help: "Items processed, by routing decision.",
		}, []string{"outcome"}),
		timeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "rqueue_timeouts_total",
			Help: "Task invocations that exceeded the task timeout.",
		}),
		hookErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "rqueue_final_failure_hook_errors_total",
			Help: "Final failure hook calls that returned an error or panicked.",
		}),
		switches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rqueue_queue_switches_total",
			Help: "Attempt queue changes, by kind (advance or reset).",
		}, []string{"kind"}),
		swept: f.NewCounter(prometheus.CounterOpts{
			Name: "rqueue_ledger_swept_total",
			Help: "Items moved from the doing queue back to the base queue.",
		}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rqueue_batch_duration_seconds",
			Help:    "Wall time from pop to the end of the slowest item in a batch.",
			Buckets: prometheus.DefBuckets,
		}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rqueue_batch_size",
			Help:    "Items popped per non-empty batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

func (m *Metrics) routed(kind DecisionKind) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) timeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *Metrics) hookError() {
	if m == nil {
		return
	}
	m.hookErrors.Inc()
}

func (m *Metrics) switched(kind string) {
	if m == nil {
		return
	}
	m.switches.WithLabelValues(kind).Inc()
}

func (m *Metrics) sweptItems(n int) {
	if m == nil || n == 0 {
		return
	}
	m.swept.Add(float64(n))
}

func (m *Metrics) batch(size int, took time.Duration) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
	m.batchDuration.Observe(took.Seconds())
}
