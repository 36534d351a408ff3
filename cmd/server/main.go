package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/aqua-control/internal/config"
	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/jrsteele09/aqua-control/server"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Bytes("stack", debug.Stack()).Msgf("Recovered from panic: %v", r)
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	catalog, err := loadCatalog(c, m)
	if err != nil {
		return err
	}

	deps := server.Deps{Catalog: catalog, Metrics: m}
	if redisURL := c.GetRedisURL(); redisURL != "" {
		repo, err := sessions.NewRedisRepo(context.Background(), redisURL, c.GetMaxSessionAge())
		if err != nil {
			return err
		}
		defer repo.Close()
		deps.Sessions = repo
		deps.Health = repo.Ping
		log.Info().Msg("Using Redis session store")
	} else {
		deps.Sessions = sessions.NewInMemoryRepo()
		log.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
	}

	handler, err := server.New(c, deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func loadCatalog(c config.Config, m *metrics.Metrics) (*roles.Catalog, error) {
	catalog := roles.DefaultCatalog()
	if path := c.GetRolesFile(); path != "" {
		var err error
		if catalog, err = roles.LoadCatalog(path); err != nil {
			return nil, fmt.Errorf("failed to load roles file %s: %w", path, err)
		}
		log.Info().Str("file", path).Int("roles", len(catalog.Roles())).Msg("Loaded role catalog")
	}
	catalog.OnUnmapped = func(id int) {
		log.Warn().Int("role_id", id).Msg("backend issued a role id the catalog does not know")
		m.UnmappedRolesTotal.WithLabelValues(strconv.Itoa(id)).Inc()
	}
	return catalog, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
