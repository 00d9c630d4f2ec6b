package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of the plan execution engine
type Metrics struct {
	registry *prometheus.Registry

	// Plan metrics
	PlansParsedTotal    *prometheus.CounterVec
	PlanCalls           prometheus.Histogram
	DispatchDuration    prometheus.Histogram
	DispatchesCancelled prometheus.Counter

	// Call metrics
	CallsTotal    *prometheus.CounterVec
	CallDuration  *prometheus.HistogramVec
	CallsInFlight prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		PlansParsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolplan_plans_parsed_total",
				Help: "Total number of model responses parsed, by result",
			},
			[]string{"result"},
		),
		PlanCalls: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "toolplan_plan_calls",
				Help:    "Number of calls per dispatched plan",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
		),
		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "toolplan_dispatch_duration_seconds",
				Help:    "Duration of whole-plan dispatches in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		DispatchesCancelled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "toolplan_dispatches_cancelled_total",
				Help: "Total number of dispatches whose context was cancelled before all calls finished",
			},
		),

		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolplan_calls_total",
				Help: "Total number of planned calls, by capability and outcome",
			},
			[]string{"capability", "outcome"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolplan_call_duration_seconds",
				Help:    "Duration of capability invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"capability"},
		),
		CallsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolplan_calls_in_flight",
				Help: "Number of capability invocations currently running",
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.PlansParsedTotal)
	m.registry.MustRegister(m.PlanCalls)
	m.registry.MustRegister(m.DispatchDuration)
	m.registry.MustRegister(m.DispatchesCancelled)

	m.registry.MustRegister(m.CallsTotal)
	m.registry.MustRegister(m.CallDuration)
	m.registry.MustRegister(m.CallsInFlight)
}

// ObserveParse records the result of parsing one model response ("ok", "empty" or "malformed")
func (m *Metrics) ObserveParse(result string) {
	m.PlansParsedTotal.WithLabelValues(result).Inc()
}

// ObserveDispatch records a finished dispatch
func (m *Metrics) ObserveDispatch(calls int, d time.Duration, cancelled bool) {
	m.PlanCalls.Observe(float64(calls))
	m.DispatchDuration.Observe(d.Seconds())
	if cancelled {
		m.DispatchesCancelled.Inc()
	}
}

// ObserveCall records one call outcome. Invocation duration is only
// observed for calls that reached their capability.
func (m *Metrics) ObserveCall(capability, outcome string, invoked bool, d time.Duration) {
	m.CallsTotal.WithLabelValues(capability, outcome).Inc()
	if invoked {
		m.CallDuration.WithLabelValues(capability).Observe(d.Seconds())
	}
}

// CallStarted increments the in-flight gauge
func (m *Metrics) CallStarted() {
	m.CallsInFlight.Inc()
}

// CallFinished decrements the in-flight gauge
func (m *Metrics) CallFinished() {
	m.CallsInFlight.Dec()
}

// WriteTextfile writes every metric in the Prometheus text format to path,
// for collection by a node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
