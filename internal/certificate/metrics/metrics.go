package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certificate module.
type Metrics struct {
	// Issuance outcomes: issued, ineligible, conflict, error
	IssuanceOutcome *prometheus.CounterVec

	// Ineligibility reasons for issued-denied requests
	IneligibleReason *prometheus.CounterVec

	// Identifier regeneration retries per issuance
	IdentifierRetries prometheus.Histogram

	// Full issuance latency, eligibility through persist
	IssueLatency prometheus.Histogram

	// Render outcomes: ok, error
	RenderOutcome *prometheus.CounterVec
}

// New creates a Metrics instance with all certificate metrics registered.
func New() *Metrics {
	return &Metrics{
		IssuanceOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certforge_certificate_issuance_total",
			Help: "Total issuance requests by outcome",
		}, []string{"outcome"}),

		IneligibleReason: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certforge_certificate_ineligible_total",
			Help: "Denied issuance requests by ineligibility reason",
		}, []string{"reason"}),

		IdentifierRetries: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certforge_certificate_identifier_retries",
			Help:    "Identifier regeneration retries consumed per successful issuance",
			Buckets: []float64{0, 1, 2, 3},
		}),

		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certforge_certificate_issue_duration_seconds",
			Help:    "Duration of full certificate issuance including eligibility evaluation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		RenderOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certforge_certificate_render_total",
			Help: "Certificate document renders by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementIssuance records an issuance outcome.
func (m *Metrics) IncrementIssuance(outcome string) {
	if m != nil {
		m.IssuanceOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementIneligible records a denial reason.
func (m *Metrics) IncrementIneligible(reason string) {
	if m != nil {
		m.IneligibleReason.WithLabelValues(reason).Inc()
	}
}

// ObserveIdentifierRetries records how many regenerations an issuance needed.
func (m *Metrics) ObserveIdentifierRetries(retries int) {
	if m != nil {
		m.IdentifierRetries.Observe(float64(retries))
	}
}

// ObserveIssueLatency records the total issuance duration.
func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m != nil {
		m.IssueLatency.Observe(d.Seconds())
	}
}

// IncrementRender records a render outcome.
func (m *Metrics) IncrementRender(outcome string) {
	if m != nil {
		m.RenderOutcome.WithLabelValues(outcome).Inc()
	}
}
