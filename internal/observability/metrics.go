package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the leases engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Registry owns the collectors; the daemon serves it on /metrics.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	llmCalls          *prometheus.CounterVec
	llmTokens         *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
	resolutions       *prometheus.CounterVec
	payments          *prometheus.CounterVec
	mergedFields      *prometheus.CounterVec
	dbUp              prometheus.Gauge
}

// NewMetrics registers every collector in a private registry so repeated
// construction (tests, several services in one process) never collides.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leases_operation_duration_seconds",
				Help:    "Duration of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leases_llm_calls_total",
				Help: "AI extraction calls by document kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leases_llm_tokens_total",
				Help: "LLM tokens consumed.",
			},
			[]string{"type"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leases_circuit_breaker_state",
				Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"name"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leases_identity_resolutions_total",
				Help: "Identity resolutions by outcome.",
			},
			[]string{"outcome"},
		),
		payments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leases_payments_applied_total",
				Help: "Payments applied, labeled with the resulting charge state.",
			},
			[]string{"state"},
		),
		mergedFields: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leases_merged_fields_total",
				Help: "Merged contract fields by winning source.",
			},
			[]string{"field", "source"},
		),
		dbUp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leases_database_up",
			Help: "1 when the last database ping succeeded.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrLLMCall counts one AI call; outcome is ok, disabled, http_error, invalid or breaker_open.
func (m *Metrics) IncrLLMCall(kind, outcome string) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(kind, outcome).Inc()
}

// LLMCalls exposes one call counter, mostly for assertions.
func (m *Metrics) LLMCalls(kind, outcome string) prometheus.Counter {
	return m.llmCalls.WithLabelValues(kind, outcome)
}

func (m *Metrics) RecordTokens(prompt, completion int) {
	if m == nil {
		return
	}
	m.llmTokens.WithLabelValues("prompt").Add(float64(prompt))
	m.llmTokens.WithLabelValues("completion").Add(float64(completion))
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) IncrResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrPayment(state string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(state).Inc()
}

func (m *Metrics) IncrMergedField(field, source string) {
	if m == nil {
		return
	}
	m.mergedFields.WithLabelValues(field, source).Inc()
}

func (m *Metrics) SetDatabaseUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.dbUp.Set(1)
	} else {
		m.dbUp.Set(0)
	}
}
