package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	tempohttp "github.com/tempomcp/tempo-mcp-server/pkg/http"
	"github.com/tempomcp/tempo-mcp-server/pkg/metrics"
	"github.com/tempomcp/tempo-mcp-server/pkg/tempo"
	"github.com/tempomcp/tempo-mcp-server/pkg/tools"
)

var (
	defaultServerConfig = serverConfig{
		tempoURL:      "http://tempo:3200",
		timeout:       tempohttp.DefaultTimeout,
		serverName:    "tempo-mcp-server",
		serverVersion: "0.0.1",
		logger:        slog.Default(),
		// HTTP server options
		port:      8080,
		stateless: true,
	}
)

type Server interface {
	Start(ctx context.Context) error
}

type ServerType string

const (
	StdioServerType ServerType = "stdio"
	HTTPServerType  ServerType = "http"
)

func CreateServer(serverType ServerType, opts ...ServerOption) (Server, error) {
	switch serverType {
	case StdioServerType:
		return NewStdioServer(opts...)
	case HTTPServerType:
		return NewHTTPServer(opts...)
	default:
		return nil, fmt.Errorf("invalid server type: %s", serverType)
	}
}

// serverConfig holds internal configuration
type serverConfig struct {
	tempoURL      string
	timeout       time.Duration
	serverName    string
	serverVersion string
	logger        *slog.Logger
	metrics       *metrics.Metrics

	// HTTP server options
	port      int
	stateless bool
}

// ServerOption configures the MCP server
type ServerOption func(*serverConfig)

// WithTempoURL sets the base URL of the Tempo HTTP API
func WithTempoURL(url string) ServerOption {
	return func(c *serverConfig) {
		c.tempoURL = url
	}
}

// WithTimeout sets the timeout of every request to Tempo
func WithTimeout(timeout time.Duration) ServerOption {
	return func(c *serverConfig) {
		c.timeout = timeout
	}
}

// WithServerName sets the server name
func WithServerName(name string) ServerOption {
	return func(c *serverConfig) {
		c.serverName = name
	}
}

// WithServerVersion sets the server version
func WithServerVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.serverVersion = version
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(c *serverConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the collectors the server records into. A fresh set is
// created when unset.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(c *serverConfig) {
		c.metrics = m
	}
}

func newConfig(opts ...ServerOption) serverConfig {
	// Set defaults
	config := defaultServerConfig

	// Apply options
	for _, opt := range opts {
		opt(&config)
	}

	if config.metrics == nil {
		config.metrics = metrics.New()
	}
	return config
}

// newMCPServer wires the Tempo client and the tools into an MCP server.
func newMCPServer(config *serverConfig) *server.MCPServer {
	httpClient := tempohttp.NewClient(
		tempohttp.WithTimeout(config.timeout),
		tempohttp.WithDurationObserver(config.metrics.BackendRequestDuration),
	)
	userAgent := fmt.Sprintf("%s/%s", config.serverName, config.serverVersion)
	backend := tempo.NewClient(httpClient, config.tempoURL, userAgent)

	dispatcher := tools.NewDispatcher(backend,
		tools.WithLogger(config.logger),
		tools.WithMetrics(config.metrics),
	)

	s := server.NewMCPServer(config.serverName, config.serverVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions(tools.Instructions),
		server.WithRecovery(),
	)
	tools.Register(s, dispatcher)

	config.logger.Debug("MCP server configured", "tempo_url", backend.BaseURL(), "timeout", config.timeout)
	return s
}
