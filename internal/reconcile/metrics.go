package reconcile

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type cycleMetrics struct {
	cycles    prometheus.Counter
	failures  prometheus.Counter
	scanned   prometheus.Gauge
	actions   *prometheus.CounterVec
	errors    prometheus.Counter
	durations prometheus.Observer
}

var (
	cycleMetricsOnce sync.Once
	cycleMetricsInst *cycleMetrics
)

func globalCycleMetrics() *cycleMetrics {
	cycleMetricsOnce.Do(func() {
		cycleMetricsInst = newCycleMetrics()
	})
	return cycleMetricsInst
}

func newCycleMetrics() *cycleMetrics {
	return &cycleMetrics{
		cycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "followup",
			Subsystem: "reconcile",
			Name:      "cycles_total",
			Help:      "Total reconciliation cycles started",
		}),
		failures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "followup",
			Subsystem: "reconcile",
			Name:      "cycle_failures_total",
			Help:      "Cycles abandoned due to an error or panic",
		}),
		scanned: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "followup",
			Subsystem: "reconcile",
			Name:      "messages_scanned",
			Help:      "Ticket messages classified during the latest cycle",
		}),
		actions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "followup",
			Subsystem: "reconcile",
			Name:      "actions_total",
			Help:      "Side effects issued, labeled by action",
		}, []string{"action"}),
		errors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "followup",
			Subsystem: "reconcile",
			Name:      "action_errors_total",
			Help:      "Individual actions that failed without aborting the cycle",
		}),
		durations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "followup",
			Subsystem: "reconcile",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of reconciliation cycles",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *cycleMetrics) recordCycle() func(Stats) {
	if m == nil {
		return func(Stats) {}
	}
	m.cycles.Inc()
	timer := prometheus.NewTimer(m.durations)
	return func(stats Stats) {
		timer.ObserveDuration()
		m.scanned.Set(float64(stats.Scanned))
		m.actions.WithLabelValues("reminder_sent").Add(float64(stats.RemindersSent))
		m.actions.WithLabelValues("reminder_deleted").Add(float64(stats.RemindersDeleted))
		m.actions.WithLabelValues("notice_posted").Add(float64(stats.NoticesPosted))
		m.errors.Add(float64(stats.ActionErrors))
	}
}
