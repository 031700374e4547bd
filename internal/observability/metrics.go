package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the agent/daemon.
type Metrics struct {
	registry      *prometheus.Registry
	ChatRequests  *prometheus.CounterVec
	ChatDuration  *prometheus.HistogramVec
	ChatTokens    *prometheus.CounterVec
	ActiveSession *prometheus.GaugeVec
	TransportErrs *prometheus.CounterVec
	EvalSamples   *prometheus.CounterVec
	EvalDuration  prometheus.Histogram
}

// NewMetrics constructs a metrics registry with agent and eval collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planforge_chat_requests_total",
		Help: "Total chat requests by provider and outcome",
	}, []string{"provider", "outcome"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planforge_chat_duration_seconds",
		Help:    "Chat request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	tokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planforge_chat_tokens_total",
		Help: "Tokens consumed by chat requests, by direction",
	}, []string{"provider", "direction"})

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "planforge_transport_active_sessions",
		Help: "Active streaming sessions by transport",
	}, []string{"transport"})

	trErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planforge_transport_errors_total",
		Help: "Transport-level errors by transport and reason",
	}, []string{"transport", "reason"})

	evalSamples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planforge_eval_samples_total",
		Help: "Evaluated samples by assigned grade",
	}, []string{"grade"})

	evalDur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planforge_eval_sample_duration_seconds",
		Help:    "Per-sample evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	reg.MustRegister(reqs, durs, tokens, active, trErrors, evalSamples, evalDur)

	return &Metrics{
		registry:      reg,
		ChatRequests:  reqs,
		ChatDuration:  durs,
		ChatTokens:    tokens,
		ActiveSession: active,
		TransportErrs: trErrors,
		EvalSamples:   evalSamples,
		EvalDuration:  evalDur,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordChat records one chat round trip.
func (m *Metrics) RecordChat(provider, outcome string, duration time.Duration, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.ChatRequests.WithLabelValues(provider, outcome).Inc()
	m.ChatDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.ChatTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	m.ChatTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}

// IncActiveSessions increments the active session gauge.
func (m *Metrics) IncActiveSessions(transport string) {
	if m == nil {
		return
	}
	m.ActiveSession.WithLabelValues(transport).Inc()
}

// DecActiveSessions decrements the active session gauge.
func (m *Metrics) DecActiveSessions(transport string) {
	if m == nil {
		return
	}
	m.ActiveSession.WithLabelValues(transport).Dec()
}

// RecordTransportError records a transport-level error.
func (m *Metrics) RecordTransportError(transport, reason string) {
	if m == nil {
		return
	}
	if transport == "" {
		transport = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.TransportErrs.WithLabelValues(transport, reason).Inc()
}

// RecordEvalSample records one graded sample.
func (m *Metrics) RecordEvalSample(grade string, duration time.Duration) {
	if m == nil {
		return
	}
	if grade == "" {
		grade = "unknown"
	}
	m.EvalSamples.WithLabelValues(grade).Inc()
	m.EvalDuration.Observe(duration.Seconds())
}
