package guard

import (
	"net/http"

	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/rs/zerolog/log"
)

// Guard renders role-gated routes
type Guard struct {
	metrics *metrics.Metrics
	views   *views
}

// New creates a Guard. m may be nil.
func New(m *metrics.Metrics) *Guard {
	return &Guard{metrics: m, views: loadViews()}
}

// RoleGuard returns middleware that only lets subjects holding one of allowed through.
// fallback, when non-nil, replaces every default denial view.
func (g *Guard) RoleGuard(allowed []roles.Name, fallback http.Handler) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFrom(r.Context())
			decision := Evaluate(subject.Status, subject.State, subject.Roles(), allowed)
			g.record(decision)

			if decision == DecisionAuthorized {
				next(w, r)
				return
			}
			if decision == DecisionForbidden || decision == DecisionNoRoles {
				log.Debug().
					Str("path", r.URL.Path).
					Str("decision", decision.String()).
					Strs("roles", names(subject.Roles())).
					Msg("access denied")
			}
			if fallback != nil && decision != DecisionLoading {
				fallback.ServeHTTP(w, r)
				return
			}
			g.views.render(w, r, decision, allowed)
		}
	}
}

// WithRoleProtection wraps a single handler with RoleGuard
func (g *Guard) WithRoleProtection(h http.HandlerFunc, allowed []roles.Name, fallback http.Handler) http.HandlerFunc {
	return g.RoleGuard(allowed, fallback)(h)
}

func (g *Guard) AdminOnly(h http.HandlerFunc) http.HandlerFunc {
	return g.WithRoleProtection(h, roles.AdminRoles, nil)
}

func (g *Guard) ProductsAccess(h http.HandlerFunc) http.HandlerFunc {
	return g.WithRoleProtection(h, roles.ProductsRoles, nil)
}

func (g *Guard) ReportsAccess(h http.HandlerFunc) http.HandlerFunc {
	return g.WithRoleProtection(h, roles.ReportsRoles, nil)
}

// RequireSession admits any signed-in subject, with or without roles
func (g *Guard) RequireSession(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := SubjectFrom(r.Context())
		decision := Evaluate(subject.Status, subject.State, nil, nil)
		if decision == DecisionLoading || decision == DecisionUnauthenticated {
			g.record(decision)
			g.views.render(w, r, decision, nil)
			return
		}
		h(w, r)
	}
}

func (g *Guard) record(d Decision) {
	if g.metrics != nil {
		g.metrics.GuardDecisionsTotal.WithLabelValues(d.String()).Inc()
	}
}

func names(in []roles.Name) []string {
	out := make([]string, len(in))
	for i, n := range in {
		out[i] = n.String()
	}
	return out
}
