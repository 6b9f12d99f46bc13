package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the server and its dependencies
type MCPServer struct {
	server      *server.MCPServer
	stdioServer *server.StdioServer
	config      *serverConfig
	in          io.Reader
	out         io.Writer
}

// NewStdioServer creates a new Tempo MCP server for stdin/stdout
func NewStdioServer(opts ...ServerOption) (*MCPServer, error) {
	config := newConfig(opts...)
	if config.tempoURL == "" {
		return nil, fmt.Errorf("tempo URL not set")
	}

	s := newMCPServer(&config)

	stdioServer := server.NewStdioServer(s)
	stdioServer.SetErrorLogger(slogErrorLogger(config.logger))

	return &MCPServer{
		server:      s,
		stdioServer: stdioServer,
		config:      &config,
		in:          os.Stdin,
		out:         os.Stdout,
	}, nil
}

// Start runs the MCP server and blocks until shutdown
func (m *MCPServer) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errC := make(chan error, 1)
	go func() {
		errC <- m.stdioServer.Listen(ctx, m.in, m.out)
	}()

	m.config.logger.Info("Tempo MCP Server running on stdio", "tempo_url", m.config.tempoURL)

	select {
	case <-ctx.Done():
		m.config.logger.Info("Shutting down...")
		return nil
	case err := <-errC:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

// slogErrorLogger routes stdio transport errors to logger, keeping stdout
// reserved for JSON-RPC messages.
func slogErrorLogger(logger *slog.Logger) *log.Logger {
	return slog.NewLogLogger(logger.Handler(), slog.LevelError)
}
