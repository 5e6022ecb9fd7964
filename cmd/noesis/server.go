package noesis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	noesis "github.com/noesis-kb/noesis"
	"github.com/noesis-kb/noesis/pkg/config"
	"github.com/noesis-kb/noesis/pkg/server"
	"github.com/noesis-kb/noesis/pkg/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Noesis HTTP server",
	Long: `Start the Noesis HTTP server to provide REST API access to the knowledge base.

The server provides endpoints for:
- Registering knowledge units
- Hybrid search and tag lookup
- Relationship detection
- Graph traversal, statistics, and visualization export
- Embedding cache administration

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	// Cache flags
	serverCmd.Flags().String("cache-path", "", "Embedding cache path")
	serverCmd.Flags().String("cache-store", "file", "Embedding cache store (file, badger)")
	serverCmd.Flags().Bool("cache-disabled", false, "Disable the embedding cache")

	// Embedding flags
	serverCmd.Flags().String("embedding-provider", "embedeverything", "Embedding provider (openai, embedeverything)")
	serverCmd.Flags().String("embedding-model", "all-MiniLM-L6-v2", "Embedding model")
	serverCmd.Flags().String("embedding-api-key", "", "Embedding API key")
	serverCmd.Flags().String("embedding-base-url", "", "Embedding base URL")

	// Oracle flags
	serverCmd.Flags().String("oracle-model", "gpt-4o-mini", "Judgment oracle model")
	serverCmd.Flags().String("oracle-api-key", "", "Judgment oracle API key")
	serverCmd.Flags().String("oracle-base-url", "", "Judgment oracle base URL")

	// Graph store flags
	serverCmd.Flags().Bool("graph-store", false, "Mirror the graph to Neo4j")
	serverCmd.Flags().String("graph-store-uri", "bolt://localhost:7687", "Neo4j URI")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for error telemetry")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrideConfigWithFlags(cmd, cfg)

	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}

	client, err := noesis.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize noesis: %w", err)
	}

	srv := server.New(cfg, client)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()
	logger.Info("server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		if err := client.Close(shutdownCtx); err != nil {
			return fmt.Errorf("client shutdown error: %w", err)
		}

		logger.Info("server stopped gracefully")
		return nil
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Cache.Store != "file" && cfg.Cache.Store != "badger" {
		return fmt.Errorf("unsupported cache store: %s", cfg.Cache.Store)
	}
	return nil
}

// buildLogger assembles the slog logger: text or JSON to stderr, wrapped
// with the Parquet error-telemetry handler when a telemetry path is set.
func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	if cfg.Telemetry.ParquetPath != "" {
		parquetHandler, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize error telemetry: %v\n", err)
		} else {
			handler = parquetHandler
		}
	}

	return slog.New(handler), nil
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Cache flags
	if cmd.Flags().Changed("cache-path") {
		cfg.Cache.Path, _ = cmd.Flags().GetString("cache-path")
	}
	if cmd.Flags().Changed("cache-store") {
		cfg.Cache.Store, _ = cmd.Flags().GetString("cache-store")
	}
	if cmd.Flags().Changed("cache-disabled") {
		cfg.Cache.Disabled, _ = cmd.Flags().GetBool("cache-disabled")
	}

	// Embedding flags
	if cmd.Flags().Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = cmd.Flags().GetString("embedding-provider")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}
	if cmd.Flags().Changed("embedding-base-url") {
		cfg.Embedding.BaseURL, _ = cmd.Flags().GetString("embedding-base-url")
	}

	// Oracle flags
	if cmd.Flags().Changed("oracle-model") {
		cfg.Oracle.Model, _ = cmd.Flags().GetString("oracle-model")
	}
	if cmd.Flags().Changed("oracle-api-key") {
		cfg.Oracle.APIKey, _ = cmd.Flags().GetString("oracle-api-key")
	}
	if cmd.Flags().Changed("oracle-base-url") {
		cfg.Oracle.BaseURL, _ = cmd.Flags().GetString("oracle-base-url")
	}

	// Graph store flags
	if cmd.Flags().Changed("graph-store") {
		cfg.GraphStore.Enabled, _ = cmd.Flags().GetBool("graph-store")
	}
	if cmd.Flags().Changed("graph-store-uri") {
		cfg.GraphStore.URI, _ = cmd.Flags().GetString("graph-store-uri")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}
