package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	mcpEndpoint     = "/mcp"
	healthEndpoint  = "/health"
	metricsEndpoint = "/metrics"

	defaultShutdownTimeout = 10 * time.Second
)

// WithPort sets the HTTP server port
func WithPort(port int) ServerOption {
	return func(c *serverConfig) {
		c.port = port
	}
}

// WithStateless sets whether the server should be stateless
func WithStateless(stateless bool) ServerOption {
	return func(c *serverConfig) {
		c.stateless = stateless
	}
}

// MCPHTTPServer wraps the HTTP server and its dependencies
type MCPHTTPServer struct {
	httpServer *http.Server
	config     *serverConfig
}

// NewHTTPServer creates a new Tempo MCP HTTP server
func NewHTTPServer(opts ...ServerOption) (*MCPHTTPServer, error) {
	config := newConfig(opts...)
	if config.tempoURL == "" {
		return nil, fmt.Errorf("tempo URL not set")
	}
	if config.port < 0 || config.port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", config.port)
	}

	s := newMCPServer(&config)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	streamableHTTPServer := server.NewStreamableHTTPServer(
		s,
		server.WithStateLess(config.stateless),
	)

	httpServer.Handler = newRouter(streamableHTTPServer, &config)

	return &MCPHTTPServer{
		httpServer: httpServer,
		config:     &config,
	}, nil
}

func newRouter(mcpHandler http.Handler, config *serverConfig) *mux.Router {
	r := mux.NewRouter()
	r.Handle(mcpEndpoint, mcpHandler)
	r.HandleFunc(healthEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet, http.MethodHead)
	r.Handle(metricsEndpoint, promhttp.HandlerFor(config.metrics.Registry, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)
	r.Use(loggingMiddleware(config))
	return r
}

func loggingMiddleware(config *serverConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			config.logger.Debug("Incoming request", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			next.ServeHTTP(w, r)
		})
	}
}

// Start serves HTTP and blocks until ctx is done or a signal arrives, then
// shuts down gracefully.
func (m *MCPHTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.httpServer.Addr, err)
	}
	return m.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (m *MCPHTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		m.config.logger.Info("Starting MCP server", "addr", ln.Addr().String(), "mcp_endpoint", mcpEndpoint)
		if err := m.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		m.config.logger.Info("Shutting down HTTP server gracefully")
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := m.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// Handler returns the router serving the MCP, health and metrics endpoints.
func (m *MCPHTTPServer) Handler() http.Handler {
	return m.httpServer.Handler
}

// Port returns the configured port
func (m *MCPHTTPServer) Port() int {
	return m.config.port
}
