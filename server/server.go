package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/auth"
	"github.com/jrsteele09/aqua-control/guard"
	"github.com/jrsteele09/aqua-control/internal/config"
	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/jrsteele09/aqua-control/notify"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/rs/zerolog/log"
)

const toastQueueSize = 4096

// Deps are the collaborators built by main
type Deps struct {
	Sessions sessions.Repo
	Catalog  *roles.Catalog
	Metrics  *metrics.Metrics
	// Health reports the state of external dependencies (e.g. Redis); nil means always healthy
	Health func(ctx context.Context) error
	// AfterFunc replaces the forced-logout timer (primarily for testing)
	AfterFunc auth.AfterFunc
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	catalog   *roles.Catalog
	metrics   *metrics.Metrics
	provider  *auth.Provider
	logout    *auth.Logout
	guard     *guard.Guard
	toasts    *notify.Store
	templates *pages
	health    func(ctx context.Context) error

	clientsMu sync.Mutex
	clients   *expirable.LRU[string, *sessionAPI]
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Sessions == nil {
		return nil, fmt.Errorf("[Server New] session repo is required")
	}
	if deps.Catalog == nil {
		deps.Catalog = roles.DefaultCatalog()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(nil)
	}

	anonymous := apiclient.New(config.GetAPIBaseURL(),
		apiclient.WithTimeout(config.GetAPITimeout()),
		apiclient.WithMetrics(deps.Metrics),
	)
	provider, err := auth.NewProvider(anonymous, deps.Sessions,
		auth.WithRefreshPath(config.GetAPIRefreshPath()),
		auth.WithMaxAge(config.GetMaxSessionAge()),
		auth.WithMetrics(deps.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth provider: %w", err)
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		catalog:  deps.Catalog,
		metrics:  deps.Metrics,
		provider: provider,
		guard:    guard.New(deps.Metrics),
		toasts:   notify.NewStore(toastQueueSize, config.GetMaxSessionAge()),
		health:   deps.Health,
	}
	if s.templates, err = loadPages(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	logoutOpts := []auth.LogoutOption{
		auth.WithDefaultDelay(config.GetLogoutDelay()),
		auth.WithLogoutMetrics(deps.Metrics),
		auth.WithSignedOut(s.dropClient),
	}
	if deps.AfterFunc != nil {
		logoutOpts = append(logoutOpts, auth.WithAfterFunc(deps.AfterFunc))
	}
	s.logout = auth.NewLogout(provider, s.toasts, logoutOpts...)
	s.clients = expirable.NewLRU[string, *sessionAPI](config.GetSessionClientCacheSize(), nil, config.GetMaxSessionAge())

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msg(fmt.Sprintf("[%-19s] %s", colourMethod(method), path))
}

func logError(method, path string, err error) {
	log.Error().Msg(fmt.Sprintf("[%-19s] %s %s", colourMethod(method), path, colourError(err)))
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
