package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	itemsFetched    *prometheus.CounterVec
	sourceFailures  *prometheus.CounterVec
	lookups         *prometheus.CounterVec
	budgetRemaining prometheus.Gauge
	stages          *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	runDuration     prometheus.Summary
	outputSize      prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.itemsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outbreak",
		Name:      "source_items_total",
		Help:      "Raw items returned by each source adapter",
	}, []string{"source"})
	m.sourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outbreak",
		Name:      "source_failures_total",
		Help:      "Adapter fetches that failed and were replaced by an empty list",
	}, []string{"source"})
	m.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outbreak",
		Name:      "location_lookups_total",
		Help:      "Location resolutions by tier and outcome",
	}, []string{"tier", "outcome"})
	m.budgetRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "outbreak",
		Name:      "geocode_budget_remaining",
		Help:      "External geocoding budget left at the end of the last run",
	})
	m.stages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outbreak",
		Name:      "runs_total",
		Help:      "Aggregation runs by the stage that produced the output",
	}, []string{"stage"})
	m.dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outbreak",
		Name:      "items_dropped_total",
		Help:      "Items removed from the output by reason",
	}, []string{"reason"})
	m.runDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "outbreak",
		Name:      "run_duration_seconds",
		Help:      "Time spent in one aggregation run",
	})
	m.outputSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "outbreak",
		Name:      "output_signals",
		Help:      "Signals returned by the last run",
	})
	reg.MustRegister(
		m.itemsFetched, m.sourceFailures, m.lookups, m.budgetRemaining,
		m.stages, m.dropped, m.runDuration, m.outputSize,
	)
	return m
}

func (m *Metrics) ItemsFetched(source string, n int) {
	if m == nil {
		return
	}
	m.itemsFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) Lookup(tier, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) Dropped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.WithLabelValues(reason).Add(float64(n))
}

// RunFinished records the outcome of one aggregation run.
func (m *Metrics) RunFinished(stage string, signals, budgetLeft int, took time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Inc()
	m.outputSize.Set(float64(signals))
	m.budgetRemaining.Set(float64(budgetLeft))
	m.runDuration.Observe(took.Seconds())
}
