package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mchmarny/navmenu/pkg/metric"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = 9876

	// DefaultReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means there will be no timeout.
	// This helps prevent slowloris attacks.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// This should be set higher than ReadTimeout to account for handler execution time.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the maximum duration to wait for active connections
	// to gracefully close during server shutdown. Should be less than Kubernetes
	// terminationGracePeriodSeconds to allow proper pod termination.
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultMaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values, including the request line.
	// 1 MB is a conservative default to prevent header-based DoS attacks.
	DefaultMaxHeaderBytes = 1 << 20 // 1 MB
)

// Server defines the interface for an HTTP server that serves the menu API,
// metrics and health checks.
// Implementations must support graceful shutdown via context cancellation.
type Server interface {
	// Serve starts the HTTP server and blocks until the context is canceled.
	// It returns an error if the server fails to start or encounters an error
	// during shutdown. Returns nil on successful graceful shutdown.
	Serve(ctx context.Context) error

	// IsRunning returns true if the server is currently accepting connections.
	// This method is thread-safe and can be called concurrently.
	// Returns true only after the socket has been successfully bound.
	IsRunning() bool

	// Addr returns the address the listener is bound to, or nil before the
	// socket is bound. With WithPort(0) this is how callers learn the port.
	Addr() net.Addr
}

// ReadinessChecker defines the interface for components that can report their readiness status.
// This is typically used for Kubernetes readiness probes to determine if a pod can receive traffic.
//
// Implementations should return nil if ready, or an error describing why not ready.
type ReadinessChecker interface {
	// Ready checks if the component is ready to handle requests.
	// Returns nil if ready, or an error describing why the component is not ready.
	// The context can be used to implement timeouts for the readiness check.
	Ready(ctx context.Context) error
}

// server is the internal implementation of the Server interface.
// It uses the standard library http.Server with additional lifecycle management.
type server struct {
	mux             *http.ServeMux       // HTTP request multiplexer
	port            int                  // Port to listen on
	readTimeout     time.Duration        // Maximum duration for reading requests
	writeTimeout    time.Duration        // Maximum duration for writing responses
	idleTimeout     time.Duration        // Maximum idle time for keep-alive connections
	shutdownTimeout time.Duration        // Grace period for shutdown
	maxHeaderBytes  int                  // Maximum header size in bytes
	errLog          *log.Logger          // Optional error logger
	registry        *prometheus.Registry // Prometheus registry for metrics

	mu      sync.RWMutex // Protects running and addr
	running bool         // Indicates if server is currently running
	addr    net.Addr     // Bound listener address
}

// Option is a functional option for configuring the Server.
// This pattern allows for flexible, backward-compatible configuration.
type Option func(*server)

// WithPort sets the port number for the HTTP server.
// Zero binds a random free port; read it back with Addr.
// If not specified, DefaultPort (9876) is used.
func WithPort(port int) Option {
	return func(s *server) { s.port = port }
}

// WithReadTimeout sets the maximum duration for reading the entire request.
// This includes reading the request headers and body.
// If not specified, DefaultReadTimeout (10s) is used.
func WithReadTimeout(d time.Duration) Option {
	return func(s *server) { s.readTimeout = d }
}

// WithWriteTimeout sets the maximum duration before timing out writes of the response.
// This should be set higher than ReadTimeout to account for handler execution time.
// If not specified, DefaultWriteTimeout (10s) is used.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *server) { s.writeTimeout = d }
}

// WithShutdownTimeout sets the maximum duration to wait for graceful shutdown.
// This should be less than Kubernetes terminationGracePeriodSeconds to ensure
// proper pod termination before SIGKILL. If not specified, DefaultShutdownTimeout (5s) is used.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *server) { s.shutdownTimeout = d }
}

// WithErrorLog sets the logger for errors from the underlying http.Server,
// such as failed accepts and panics recovered from handlers.
// If not specified, log.Default() is used.
//
// Example:
//
//	srv := server.New(server.WithErrorLog(logger.NewLogLogger(slog.LevelError, false)))
func WithErrorLog(l *log.Logger) Option {
	return func(s *server) { s.errLog = l }
}

// WithHandler registers a custom HTTP handler for the specified ServeMux pattern.
// Multiple handlers can be registered by calling this option multiple times.
//
// Example:
//
//	srv := server.New(server.WithHandler("GET /version", versionHandler))
func WithHandler(pattern string, handler http.Handler) Option {
	return func(s *server) {
		s.mux.Handle(pattern, handler)
	}
}

// WithHandlers registers every handler in routes, keyed by ServeMux pattern.
// Patterns may carry a method and wildcards, e.g. "GET /menus/{tag}".
//
// Example:
//
//	srv := server.New(server.WithHandlers(registry.Handlers()))
func WithHandlers(routes map[string]http.Handler) Option {
	return func(s *server) {
		for pattern, h := range routes {
			s.mux.Handle(pattern, h)
		}
	}
}

// WithRegistry uses reg as the server's Prometheus registry, so counters
// created by the caller are served by WithMetrics.
// If not specified, a new empty registry is used.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *server) { s.registry = reg }
}

// WithMetrics serves the server's Prometheus registry at /metrics.
// The handler reads the registry at request time, so WithRegistry may be
// given before or after it.
func WithMetrics() Option {
	return func(s *server) {
		s.mux.Handle("GET /metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metric.GetHandlerForRegistry(s.registry).ServeHTTP(w, r)
		}))
	}
}

// WithSimpleHealth adds a simple health check endpoint at /healthz that always returns 200 OK.
// This is suitable for liveness probes, which should not depend on loaded state.
//
// The endpoint returns:
//   - 200 OK with body "ok"
func WithSimpleHealth() Option {
	return func(s *server) {
		s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}
}

// WithReadiness adds a readiness endpoint at /readyz backed by rc.
//
// The endpoint returns:
//   - 200 OK with body "ok" when rc.Ready returns nil
//   - 503 Service Unavailable with the error text otherwise
func WithReadiness(rc ReadinessChecker) Option {
	return func(s *server) {
		s.mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			if err := rc.Ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}
}

// New creates a new HTTP server with the provided options.
// If no options are provided, the server uses sensible defaults suitable for most services.
//
// Default configuration:
//   - Port: 9876
//   - ReadTimeout: 10s
//   - WriteTimeout: 10s
//   - IdleTimeout: 60s
//   - ShutdownTimeout: 5s
//   - MaxHeaderBytes: 1 MB
//
// Example:
//
//	srv := server.New(
//	    server.WithPort(9876),
//	    server.WithMetrics(),
//	    server.WithSimpleHealth(),
//	)
func New(opts ...Option) Server {
	s := &server{
		port:            DefaultPort,
		readTimeout:     DefaultReadTimeout,
		writeTimeout:    DefaultWriteTimeout,
		idleTimeout:     DefaultIdleTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		maxHeaderBytes:  DefaultMaxHeaderBytes,
		mux:             http.NewServeMux(),
		registry:        prometheus.NewRegistry(),
		errLog:          log.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	slog.Info("server initialized",
		"port", s.port,
		"read_timeout", s.readTimeout,
		"write_timeout", s.writeTimeout)

	return s
}

// IsRunning returns true if the server is currently running and accepting connections.
// This method is thread-safe and can be called concurrently from multiple goroutines.
//
// The server is considered "running" after the socket has been successfully bound and
// the server has started accepting connections. It returns false before the socket is
// bound and after the server has stopped.
func (s *server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.running
}

// Addr returns the bound listener address, or nil before Serve has bound it.
// The address is kept after shutdown.
func (s *server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.addr
}

// Serve starts the HTTP server and blocks until the context is canceled or an error occurs.
//
// The server uses errgroup to manage two goroutines:
//  1. Server goroutine: Runs the HTTP server on the bound listener
//  2. Shutdown goroutine: Waits for context cancellation and initiates graceful shutdown
//
// When the context is canceled (e.g., SIGTERM), the shutdown goroutine:
//   - Calls Shutdown() with a timeout to gracefully close active connections
//   - Waits for in-flight requests to complete (up to shutdownTimeout)
//   - Logs the shutdown progress
//
// This method returns:
//   - nil on successful graceful shutdown
//   - An error if the listener cannot be created or the server fails while serving
//
// Error handling:
//   - http.ErrServerClosed is not considered an error (it's expected during shutdown)
//   - All other errors are returned to the caller
func (s *server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", s.port),
		Handler:        s.mux,
		ReadTimeout:    s.readTimeout,
		WriteTimeout:   s.writeTimeout,
		IdleTimeout:    s.idleTimeout,
		MaxHeaderBytes: s.maxHeaderBytes,
		ErrorLog:       s.errLog,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	slog.Info("starting server", "addr", listener.Addr().String())

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.mu.Lock()
		s.running = true
		s.addr = listener.Addr()
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		slog.Info("shutting down server", "grace_period", s.shutdownTimeout)

		shutdownStart := time.Now()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		slog.Info("server shutdown complete", "duration", time.Since(shutdownStart))

		return nil
	})

	return g.Wait()
}
