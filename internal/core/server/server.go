package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/merchant-map/internal/core/config"
	"github.com/mohammed-shakir/merchant-map/internal/core/health"
	middleware "github.com/mohammed-shakir/merchant-map/internal/core/middleware"
	"github.com/mohammed-shakir/merchant-map/internal/core/router"
	"github.com/mohammed-shakir/merchant-map/internal/session"
)

type Deps struct {
	Handler  *router.Handler
	Sessions *session.Store
	Ready    health.ReadinessReporter
	// Checks run on every /readyz after the records are loaded
	Checks []health.Check
	// Metrics is mounted at /metrics when non-nil
	Metrics http.Handler
}

// NewRouter wires the health endpoints, metrics and dashboard routes.
func NewRouter(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Ready, d.Checks...))
	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics.ServeHTTP)
	}

	d.Handler.Mount(r, middleware.Session(d.Sessions, logger, cfg.SessionTTL))
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(cfg, logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
