package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard
type Metrics struct {
	registry *prometheus.Registry

	BackendRequestsTotal *prometheus.CounterVec
	RefreshTotal         *prometheus.CounterVec
	ForcedLogoutsTotal   prometheus.Counter
	GuardDecisionsTotal  *prometheus.CounterVec
	UnmappedRolesTotal   *prometheus.CounterVec
	ActiveSessions       prometheus.Gauge
}

// New creates and registers all metrics on the given registry. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aqua_backend_requests_total",
				Help: "Backend API calls by method and outcome kind",
			},
			[]string{"method", "outcome"},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aqua_session_refresh_total",
				Help: "Session refresh attempts by result",
			},
			[]string{"result"},
		),
		ForcedLogoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aqua_forced_logouts_total",
			Help: "Logouts triggered by an expired token",
		}),
		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aqua_guard_decisions_total",
				Help: "Role guard render branches",
			},
			[]string{"decision"},
		),
		UnmappedRolesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aqua_unmapped_role_ids_total",
				Help: "Role IDs issued by the backend that the role catalog does not know",
			},
			[]string{"role_id"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aqua_active_sessions",
			Help: "Sessions created minus sessions destroyed since start",
		}),
	}

	registry.MustRegister(
		m.BackendRequestsTotal,
		m.RefreshTotal,
		m.ForcedLogoutsTotal,
		m.GuardDecisionsTotal,
		m.UnmappedRolesTotal,
		m.ActiveSessions,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
