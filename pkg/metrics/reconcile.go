package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records pipeline outcomes per stage.
type ReconcileMetrics struct {
	duration     *prometheus.HistogramVec
	stageFailure *prometheus.CounterVec
	duplicates   prometheus.Counter
	oversell     prometheus.Counter
}

// NewReconcileMetrics registers reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Duration of reconciliation runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	stageFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_stage_failures",
		Help: "Recoverable failures per pipeline stage.",
	}, []string{"stage"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_duplicate_confirmations",
		Help: "Payment confirmations resolved to an already existing order.",
	})
	oversell := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_stock_floored",
		Help: "Stock adjustments that hit the zero floor.",
	})
	reg.MustRegister(duration, stageFailure, duplicates, oversell)
	return &ReconcileMetrics{
		duration:     duration,
		stageFailure: stageFailure,
		duplicates:   duplicates,
		oversell:     oversell,
	}
}

// ObserveRun records the duration for a reconciliation run.
func (m *ReconcileMetrics) ObserveRun(result string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncStageFailure increments the recoverable failure counter for a stage.
func (m *ReconcileMetrics) IncStageFailure(stage string) {
	if m == nil || m.stageFailure == nil {
		return
	}
	m.stageFailure.WithLabelValues(normalizeLabel(stage)).Inc()
}

// IncDuplicate counts a confirmation id that mapped to an existing order.
func (m *ReconcileMetrics) IncDuplicate() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}

// IncStockFloored counts a stock decrement clamped at zero.
func (m *ReconcileMetrics) IncStockFloored() {
	if m == nil || m.oversell == nil {
		return
	}
	m.oversell.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
