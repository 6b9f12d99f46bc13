package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/common/promslog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tempomcp/tempo-mcp-server/server"

	stdlog "log"
)

var (
	version = "version"
	commit  = "commit"
	date    = "date"
)

var (
	rootCmd = &cobra.Command{
		Use:     "tempo-mcp-server",
		Short:   "Tempo MCP Server",
		Long:    `A MCP server that exposes Grafana Tempo trace lookup, trace search and TraceQL metrics as tools.`,
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
	}

	stdioCmd = &cobra.Command{
		Use:   "stdio",
		Short: "Start stdio server",
		Long:  `Start a server that communicates via standard input/output streams using JSON-RPC messages.`,
		Run: func(_ *cobra.Command, _ []string) {
			logger, err := initLogger(viper.GetString("log-file"), viper.GetString("log-level"))
			if err != nil {
				stdlog.Fatal("Failed to initialize logger:", err)
			}
			cfg := runConfig{
				logger:     logger,
				serverType: server.StdioServerType,
			}

			if err := runServer(cfg); err != nil {
				stdlog.Fatal("failed to run stdio server:", err)
			}
		},
	}

	httpCmd = &cobra.Command{
		Use:   "http",
		Short: "Start http server",
		Long:  `Start a server that communicates via http using JSON-RPC messages. Also serves /health and /metrics.`,
		Run: func(_ *cobra.Command, _ []string) {
			logger, err := initLogger(viper.GetString("log-file"), viper.GetString("log-level"))
			if err != nil {
				stdlog.Fatal("Failed to initialize logger:", err)
			}
			cfg := runConfig{
				logger:     logger,
				serverType: server.HTTPServerType,
			}

			if err := runServer(cfg); err != nil {
				stdlog.Fatal("failed to run http server:", err)
			}
		},
	}
)

// initLogger writes JSON at debug level to outPath when set, otherwise
// logfmt to stderr at the given level.
func initLogger(outPath, levelStr string) (*slog.Logger, error) {
	if outPath == "" {
		level := promslog.NewLevel()
		if err := level.Set(levelStr); err != nil {
			return nil, err
		}

		format := promslog.NewFormat()
		if err := format.Set("logfmt"); err != nil {
			return nil, err
		}

		logger := promslog.New(&promslog.Config{
			Level:  level,
			Format: format,
			Style:  promslog.GoKitStyle,
			Writer: os.Stderr,
		})
		slog.SetDefault(logger)
		return logger, nil
	}

	file, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	return logger, nil
}

func init() {
	// Add global flags that will be shared by all commands
	rootCmd.PersistentFlags().String("tempo-url", "http://tempo:3200", "Base URL of the Tempo HTTP API")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout of requests to Tempo")
	rootCmd.PersistentFlags().String("log-file", "", "Path to log file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	httpCmd.Flags().Int("port", 8080, "Port of the HTTP server")

	// Bind flags to viper
	_ = viper.BindPFlag("tempo-url", rootCmd.PersistentFlags().Lookup("tempo-url"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("port", httpCmd.Flags().Lookup("port"))

	// Bind environment variables
	_ = viper.BindEnv("tempo-url", "TEMPO_URL")
	_ = viper.BindEnv("timeout", "TEMPO_TIMEOUT")
	_ = viper.BindEnv("log-file", "TEMPO_MCP_LOG_FILE")
	_ = viper.BindEnv("log-level", "TEMPO_MCP_LOG_LEVEL")
	_ = viper.BindEnv("port", "TEMPO_MCP_PORT")

	// Add subcommands
	rootCmd.AddCommand(stdioCmd)
	rootCmd.AddCommand(httpCmd)
}

type runConfig struct {
	logger     *slog.Logger
	serverType server.ServerType
}

func serverOptions(logger *slog.Logger) []server.ServerOption {
	opts := []server.ServerOption{
		server.WithServerVersion(version),
		server.WithLogger(logger),
	}

	if tempoURL := strings.TrimSpace(viper.GetString("tempo-url")); tempoURL != "" {
		opts = append(opts, server.WithTempoURL(strings.TrimRight(tempoURL, "/")))
	}

	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		opts = append(opts, server.WithTimeout(timeout))
	}

	if port := viper.GetInt("port"); port > 0 {
		opts = append(opts, server.WithPort(port))
	}

	return opts
}

func runServer(cfg runConfig) error {
	mcpServer, err := server.CreateServer(cfg.serverType, serverOptions(cfg.logger)...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	cfg.logger.Info("Starting Tempo MCP Server", "version", version, "tempo_url", viper.GetString("tempo-url"))

	if err := mcpServer.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
