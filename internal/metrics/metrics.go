package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "indexopt"

// Run outcomes
const (
	OutcomeSolved     = "solved"
	OutcomeInfeasible = "infeasible"
	OutcomeExhausted  = "exhausted"
	OutcomeInvalid    = "invalid"
)

// Metrics owns a private Prometheus registry with the optimizer's counters and histograms.
// A nil *Metrics records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	steps     *prometheus.CounterVec
	solutions *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Total number of optimizer runs",
	}, []string{"mode", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of optimizer runs in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})

	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_steps_total",
		Help:      "Total number of candidate trials",
	}, []string{"mode"})

	solutions := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_solutions",
		Help:      "Number of schedules returned per run",
		Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	}, []string{"mode"})

	registry.MustRegister(runs, duration, steps, solutions)

	return &Metrics{
		registry:  registry,
		runs:      runs,
		duration:  duration,
		steps:     steps,
		solutions: solutions,
	}
}

// ObserveRun records one finished run
func (m *Metrics) ObserveRun(mode, outcome string, duration time.Duration, steps uint64, solutions int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(duration.Seconds())
	m.steps.WithLabelValues(mode).Add(float64(steps))
	m.solutions.WithLabelValues(mode).Observe(float64(solutions))
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile dumps the registry in the text exposition format, for node_exporter's textfile
// collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
