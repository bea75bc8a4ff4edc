package verifier

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rodneysullivan/browserid/protocol"
)

// ResultOkay labels successful verifications. Failures are labelled
// with their reason key.
const ResultOkay = "okay"

// Metrics counts verification outcomes on its own registry.
type Metrics struct {
	registry      *prometheus.Registry
	verifications *prometheus.CounterVec
}

// NewMetrics creates and registers the verifier's collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "browserid_verifications_total",
			Help: "Verification requests by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.verifications)
	return m
}

// Observe counts one verification that ended with err.
func (m *Metrics) Observe(err error) {
	result := ResultOkay
	if err != nil {
		result = protocol.ReasonOf(err)
	}
	m.verifications.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
