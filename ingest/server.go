package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"
)

// Server runs an http.Server until its context ends, then drains
// in-flight requests and runs the registered shutdown funcs. Shutdown
// funcs run after the drain so every accepted event reaches the queue
// before the dispatcher is stopped.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	shutdownFuncs   []func(ctx context.Context) error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address. Default is ":8080".
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		s.srv.Addr = addr
	}
}

// WithTimeouts overrides the read, write and idle timeouts. Zero values
// keep the defaults of 5s, 10s and 120s.
func WithTimeouts(read, write, idle time.Duration) ServerOption {
	return func(s *Server) {
		if read > 0 {
			s.srv.ReadTimeout = read
		}
		if write > 0 {
			s.srv.WriteTimeout = write
		}
		if idle > 0 {
			s.srv.IdleTimeout = idle
		}
	}
}

// WithShutdownTimeout bounds the drain and shutdown funcs. Default is 20s.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithServerLogger sets the logger for lifecycle events.
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = log
	}
}

// WithShutdownFunc registers fn to run, in registration order, once the
// server has stopped accepting requests.
func WithShutdownFunc(fn func(ctx context.Context) error) ServerOption {
	return func(s *Server) {
		s.shutdownFuncs = append(s.shutdownFuncs, fn)
	}
}

// NewServer returns a Server for handler.
func NewServer(handler http.Handler, opts ...ServerOption) *Server {
	s := Server{
		srv: &http.Server{
			Addr:         ":8080",
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		shutdownTimeout: 20 * time.Second,
		logger:          slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &s
}

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully. It
// returns nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("server started", "addr", ln.Addr().String())

	serverErrs := make(chan error, 1)
	go func() {
		serverErrs <- s.srv.Serve(ln)
	}()

	select {
	case err := <-serverErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown started")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}

		s.logger.Info("shutdown complete")

		return nil
	}
}

// Shutdown drains in-flight requests, then runs the shutdown funcs.
// Errors from shutdown funcs are logged and joined into the result.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.srv.Shutdown(ctx); err != nil {
		s.srv.Close()
		errs = append(errs, fmt.Errorf("server didn't stop gracefully: %w", err))
	}

	for _, fn := range s.shutdownFuncs {
		if err := fn(ctx); err != nil {
			s.logger.Error("shutdown func", "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
