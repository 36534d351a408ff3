package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthTimeout = 2 * time.Second

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", s.IndexHandler())

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSessionExpired, ChainMiddleware(s.SessionExpiredHandler(), s.HTMLMiddleWare()...))

	// Dashboard (any signed-in user)
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.guard.RequireSession)...))

	// Inventory & POS
	s.RegisterRouteHandler("GET "+RouteProducts, ChainMiddleware(s.ProductsListHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))
	s.RegisterRouteHandler("POST "+RouteProducts, ChainMiddleware(s.ProductCreateHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))
	s.RegisterRouteHandler("POST "+RouteProduct, ChainMiddleware(s.ProductUpdateHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))
	s.RegisterRouteHandler("POST "+RouteProductDelete, ChainMiddleware(s.ProductDeleteHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))
	s.RegisterRouteHandler("GET "+RouteCheckout, ChainMiddleware(s.CheckoutPageHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))
	s.RegisterRouteHandler("POST "+RouteCheckout, ChainMiddleware(s.CheckoutSubmitHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))
	s.RegisterRouteHandler("GET "+RoutePurchases, ChainMiddleware(s.PurchasesPageHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))
	s.RegisterRouteHandler("POST "+RoutePurchases, ChainMiddleware(s.PurchaseCreateHandler(), s.HTMLMiddleWare(s.guard.ProductsAccess)...))

	// Reports
	s.RegisterRouteHandler("GET "+RouteReports, ChainMiddleware(s.ReportsHandler(), s.HTMLMiddleWare(s.guard.ReportsAccess)...))

	// Admin routes
	s.RegisterRouteHandler("GET "+RouteUsers, ChainMiddleware(s.AdminUsersListHandler(), s.HTMLMiddleWare(s.guard.AdminOnly)...))
	s.RegisterRouteHandler("POST "+RouteUsers, ChainMiddleware(s.AdminUserCreateHandler(), s.HTMLMiddleWare(s.guard.AdminOnly)...))
	s.RegisterRouteHandler("POST "+RouteUser, ChainMiddleware(s.AdminUserUpdateHandler(), s.HTMLMiddleWare(s.guard.AdminOnly)...))
	s.RegisterRouteHandler("POST "+RouteUserDelete, ChainMiddleware(s.AdminUserDeleteHandler(), s.HTMLMiddleWare(s.guard.AdminOnly)...))

	// Operational
	health := ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...)
	s.RegisterRouteHandler("GET "+RouteHealth, health)
	s.RegisterRouteHandler("OPTIONS "+RouteHealth, health)
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())

	// Static
	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.StaticFileHandler(), s.StaticMiddleware()...))
}

// HealthHandler reports liveness and the state of the session store (GET /healthz)
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if s.health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := s.health(ctx); err != nil {
				log.Warn().Err(err).Msg("health check failed")
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
