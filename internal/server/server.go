// Package server exposes metrics and health endpoints while an operation runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nholik/stackpilot/internal/healthcheck"
	"github.com/nholik/stackpilot/internal/metrics"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Server is a running status listener.
type Server struct {
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewMux routes /metrics, /healthz and /readyz.
func NewMux(tracker *healthcheck.Tracker, m *metrics.Metrics, pollInterval time.Duration) *http.ServeMux {
	mux := http.NewServeMux()
	healthcheck.Register(mux, tracker, pollInterval)
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}
	return mux
}

// Start listens on addr and serves handler until ctx is done. Bind errors are
// returned immediately.
func Start(ctx context.Context, logger zerolog.Logger, addr string, handler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s := &Server{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		logger.Info().Str("addr", listener.Addr().String()).Msg("status server starting")
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", listener.Addr().String()).Msg("status server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("status server shutdown failed")
		}
	}()

	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Wait blocks until the server has stopped serving.
func (s *Server) Wait() {
	<-s.done
}
