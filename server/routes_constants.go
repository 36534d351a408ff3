package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLogin          = "/login"
	RouteAuthLogin      = "/auth/login"
	RouteAuthLogout     = "/auth/logout"
	RouteSessionExpired = "/session/expired"

	// Dashboard Routes
	RouteDashboard = "/dashboard"

	// Inventory & POS Routes
	RouteProducts      = "/products"
	RouteProduct       = "/products/{id}"
	RouteProductDelete = "/products/{id}/delete"
	RouteCheckout      = "/checkout"
	RoutePurchases     = "/purchases"

	// Reporting Routes
	RouteReports = "/reports"

	// Admin Routes
	RouteUsers      = "/users"
	RouteUser       = "/users/{id}"
	RouteUserDelete = "/users/{id}/delete"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/{file}"
)
