package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts client-side outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Session bootstrap and re-check results: "restored", "anonymous", "invalidated"
	SessionOutcome *prometheus.CounterVec

	// Login/register results by operation and result
	AuthAttempts *prometheus.CounterVec

	// Short link visits by the stage they settled in
	ResolverOutcome *prometheus.CounterVec

	// QR exports by result: "exported", "skipped", "failed"
	QRExports *prometheus.CounterVec
}

// New registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshort_session_outcomes_total",
			Help: "Session bootstrap and re-check outcomes",
		}, []string{"outcome"}),

		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshort_auth_attempts_total",
			Help: "Login and registration attempts by result",
		}, []string{"operation", "result"}),

		ResolverOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshort_resolver_outcomes_total",
			Help: "Short link resolution outcomes by stage",
		}, []string{"stage"}),

		QRExports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshort_qr_exports_total",
			Help: "QR code PNG exports by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementSession(outcome string) {
	if m != nil {
		m.SessionOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementAuth(operation, result string) {
	if m != nil {
		m.AuthAttempts.WithLabelValues(operation, result).Inc()
	}
}

func (m *Metrics) IncrementResolver(stage string) {
	if m != nil {
		m.ResolverOutcome.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) IncrementQRExport(result string) {
	if m != nil {
		m.QRExports.WithLabelValues(result).Inc()
	}
}
