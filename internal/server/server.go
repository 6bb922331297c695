// Package server owns the HTTP listener lifecycle: route registration,
// serving, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corpusflower/corpusflower/internal/config"
	"github.com/corpusflower/corpusflower/internal/handlers"
	"github.com/corpusflower/corpusflower/internal/middleware"
	"github.com/corpusflower/corpusflower/pkg/logger_i"
)

type Server struct {
	httpServer *http.Server
	logger     *logger_i.Logger
}

func New(listenAddr string, h *handlers.Handler) *Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", middleware.Wrap(h.Health))
	r.Get("/graph", middleware.Wrap(h.Graph))
	r.Post("/query", middleware.Wrap(h.Query))

	return &Server{
		httpServer: &http.Server{
			Addr:         listenAddr,
			Handler:      r,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("server"),
	}
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests
// within the shutdown timeout.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("forced shutdown", "error", err)
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
