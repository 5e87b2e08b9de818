// Package metrics exposes Warden's Prometheus instrumentation.
//
// Metrics hang off an explicitly constructed value with a private registry —
// no package-level collectors — so tests can build isolated instances and
// nothing registers behind the caller's back.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles all Warden collectors.
type Metrics struct {
	registry *prometheus.Registry

	CredentialsIssued    prometheus.Counter
	HeartbeatsAccepted   prometheus.Counter
	EntitlementCacheHits prometheus.Counter

	GatewayRejections    *prometheus.CounterVec
	OracleCalls          *prometheus.CounterVec
	LivenessTerminations *prometheus.CounterVec
}

// New constructs a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_credentials_issued_total",
			Help: "Session credentials issued.",
		}),
		HeartbeatsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_heartbeats_accepted_total",
			Help: "Heartbeats accepted by liveness monitors.",
		}),
		EntitlementCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_entitlement_cache_hits_total",
			Help: "Entitlement checks served from cache without an oracle call.",
		}),

		GatewayRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_gateway_rejections_total",
			Help: "Requests rejected by the access gateway, by kind.",
		}, []string{"kind"}),
		OracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_oracle_calls_total",
			Help: "Entitlement oracle calls, by outcome.",
		}, []string{"outcome"}),
		LivenessTerminations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_liveness_terminations_total",
			Help: "Session terminations, by reason.",
		}, []string{"reason"}),
	}
}

// Handler returns the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
