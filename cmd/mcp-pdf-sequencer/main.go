package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-sequencer/internal/config"
	"github.com/a3tai/mcp-pdf-sequencer/internal/logger"
	"github.com/a3tai/mcp-pdf-sequencer/internal/mcp"
	"github.com/a3tai/mcp-pdf-sequencer/internal/metrics"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	log := newLogger(cfg, os.Stderr)
	log.Debug().Str("config", cfg.String()).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

// newLogger builds the process logger. It always writes to w, never to
// stdout, which carries the stdio transport.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	lc := cfg.LoggerConfig()
	lc.Output = w
	lc.WithCaller = cfg.IsDebug()
	return logger.New(lc).With().Str("mode", cfg.Mode).Logger()
}

// newService wires the pipeline from the configuration.
func newService(cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) *pipeline.Service {
	return pipeline.NewService(pipeline.Options{
		Concurrency: cfg.Concurrency,
		MaxFileSize: cfg.MaxFileSize,
		HTTPClient:  &http.Client{Timeout: cfg.FetchTimeout},
	}, log, m)
}

// run serves MCP until ctx is cancelled, together with the observability
// endpoints when a metrics port is configured.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	m := metrics.New()
	server, err := mcp.NewServer(cfg, newService(cfg, m, log), m, log)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if cfg.MetricsPort > 0 {
		obs := metrics.NewServer(cfg.Host, cfg.MetricsPort, m, log)
		go func() {
			if err := obs.Start(); err != nil {
				log.Error().Err(err).Str("addr", obs.Addr()).Msg("observability server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := obs.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("observability server shutdown")
			}
		}()
	}

	log.Info().
		Str("dir", cfg.PDFDirectory).
		Str("outdir", cfg.OutputDirectory).
		Int("concurrency", cfg.Concurrency).
		Msg("serving")
	return server.Run(ctx)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Sequencer\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
