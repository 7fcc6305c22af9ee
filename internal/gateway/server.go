// Package gateway exposes the HTTP surface: health, Prometheus metrics,
// and the webhook receiver endpoint.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatekeepbot/gatekeep/internal/telemetry"
)

// Server is the HTTP gateway. It owns the webhook dispatcher that inbound
// transports register with.
type Server struct {
	config     Config
	logger     *slog.Logger
	dispatcher *WebhookDispatcher
	jobs       JobCounter
	server     *http.Server
	startedAt  time.Time
}

// NewServer creates a gateway server. jobs may be nil; the health
// endpoint then omits the pending count.
func NewServer(config Config, jobs JobCounter, logger *slog.Logger) *Server {
	config.Defaults()
	return &Server{
		config:     config,
		logger:     logger,
		dispatcher: NewWebhookDispatcher(logger),
		jobs:       jobs,
	}
}

// Dispatcher returns the webhook dispatcher for transport registration.
func (s *Server) Dispatcher() *WebhookDispatcher {
	return s.dispatcher
}

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth())
	r.Handle("/metrics", telemetry.Handler())
	r.Post("/webhooks/{source}", s.dispatcher.ServeHTTP)

	return r
}

// Start begins listening. It returns once the listener is bound; serving
// continues in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}

	go func() {
		s.logger.Info("gateway listening", "addr", s.config.Bind)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully with the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("gateway shutting down")
	return s.server.Shutdown(shutdownCtx)
}
