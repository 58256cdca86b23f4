package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tonetuner/tonetuner/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Hook runs after the HTTP listener has stopped accepting requests.
type Hook func(ctx context.Context) error

type Server struct {
	httpServer *http.Server
	hooks      []namedHook
}

type namedHook struct {
	name string
	fn   Hook
}

func New(cfg config.ServerConfig, handler http.Handler) *Server {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// OnShutdown registers fn to run, in registration order, once the HTTP
// server has shut down. All hooks share the shutdown deadline.
func (s *Server) OnShutdown(name string, fn Hook) {
	s.hooks = append(s.hooks, namedHook{name: name, fn: fn})
}

func (s *Server) Start() error {
	// Channel for shutdown signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// Channel for server errors
	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", s.httpServer.Addr, "write_timeout", s.httpServer.WriteTimeout)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig)
	}

	return s.Shutdown()
}

// Shutdown stops the listener, then runs the shutdown hooks.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	for _, h := range s.hooks {
		if err := h.fn(ctx); err != nil {
			slog.Error("shutdown hook failed", "hook", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
