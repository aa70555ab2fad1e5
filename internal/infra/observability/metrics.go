package observability

import (
	"strings"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "nexora_bfa"

// Metrics holds all Prometheus metrics for the BFF.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	remoteDuration     *prometheus.HistogramVec
	remoteErrors       *prometheus.CounterVec
	tokenRefreshes     *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	uploads            *prometheus.CounterVec
	stepFailures       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of service operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		remoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Duration of calls to the Nexora backend and the loan contract.",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"service"},
		),
		remoteErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_errors_total",
				Help:      "Failed remote calls by service and failure kind.",
			},
			[]string{"service", "kind"},
		),
		tokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Token refresh attempts by outcome.",
			},
			[]string{"outcome"},
		),
		sessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session lifecycle transitions.",
			},
			[]string{"from", "to"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoice_uploads_total",
				Help:      "Invoice upload flows by outcome.",
			},
			[]string{"outcome"},
		),
		stepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_step_failures_total",
				Help:      "Upload flow steps that failed while the flow continued.",
			},
			[]string{"step"},
		),
	}
}

// RecordRequestDuration records the duration of a service operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRemoteDuration records the duration of one remote call.
func (m *Metrics) RecordRemoteDuration(service string, d time.Duration) {
	m.remoteDuration.WithLabelValues(service).Observe(d.Seconds())
}

// IncrRemoteError counts a failed remote call.
func (m *Metrics) IncrRemoteError(service, kind string) {
	m.remoteErrors.WithLabelValues(service, kind).Inc()
}

// IncrTokenRefresh counts a refresh attempt ("success" or "failure").
func (m *Metrics) IncrTokenRefresh(outcome string) {
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// IncrSessionTransition counts a lifecycle transition.
func (m *Metrics) IncrSessionTransition(from, to string) {
	m.sessionTransitions.WithLabelValues(from, to).Inc()
}

// IncrUpload counts a finished upload flow ("success", "partial", "duplicate", "failure").
func (m *Metrics) IncrUpload(outcome string) {
	m.uploads.WithLabelValues(outcome).Inc()
}

// IncrStepFailure counts a failed step of the upload flow.
func (m *Metrics) IncrStepFailure(step string) {
	m.stepFailures.WithLabelValues(step).Inc()
}

// Summary returns cumulative counters suitable for GET /v1/metrics/summary.
func (m *Metrics) Summary() *domain.MetricsSummary {
	out := &domain.MetricsSummary{
		RemoteCalls:        map[string]uint64{},
		RemoteErrors:       map[string]float64{},
		TokenRefreshes:     map[string]float64{},
		SessionTransitions: map[string]float64{},
		Uploads:            map[string]float64{},
		StepFailures:       map[string]float64{},
		Period:             "all_time",
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), namespace+"_")
		for _, metric := range mf.GetMetric() {
			key := labelKey(metric)
			switch name {
			case "remote_call_duration_seconds":
				out.RemoteCalls[key] = metric.GetHistogram().GetSampleCount()
			case "remote_errors_total":
				out.RemoteErrors[key] = metric.GetCounter().GetValue()
			case "token_refreshes_total":
				out.TokenRefreshes[key] = metric.GetCounter().GetValue()
			case "session_transitions_total":
				out.SessionTransitions[key] = metric.GetCounter().GetValue()
			case "invoice_uploads_total":
				out.Uploads[key] = metric.GetCounter().GetValue()
			case "reconcile_step_failures_total":
				out.StepFailures[key] = metric.GetCounter().GetValue()
			}
		}
	}
	return out
}

// labelKey joins label values ordered by label name, as Gather returns them:
// remote errors read "network/dashboard" (kind/service).
func labelKey(m *dto.Metric) string {
	values := make([]string, 0, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		values = append(values, lp.GetValue())
	}
	return strings.Join(values, "/")
}
