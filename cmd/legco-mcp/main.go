// legco-mcp serves the Hong Kong Legislative Council open-data search tools
// over the Model Context Protocol (HTTP, SSE, and WebSocket).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/legco-tools/legco-search-mcp/internal/config"
	"github.com/legco-tools/legco-search-mcp/internal/mcp"
	"github.com/legco-tools/legco-search-mcp/internal/monitoring"
	"github.com/legco-tools/legco-search-mcp/internal/ratelimit"
	"github.com/legco-tools/legco-search-mcp/internal/scrape"
	"github.com/legco-tools/legco-search-mcp/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	initLogging(cfg.Logging)

	client := upstream.NewClient(
		upstream.WithMaxAttempts(cfg.Upstream.MaxAttempts),
		upstream.WithAttemptTimeout(cfg.Upstream.AttemptTimeout),
	)
	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Capacity, cfg.RateLimit.SweepThreshold)
	metrics := monitoring.NewMetrics()

	gateway := upstream.NewGateway(client, cfg.Upstream.BaseURLs)
	scraper := scrape.NewScraper(client, cfg.Upstream.BaseURLs["meetings"])
	router := mcp.NewRouter(mcp.NewRegistry(), gateway, scraper, limiter, metrics)
	server := mcp.NewServer(cfg, router)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}
}

// initLogging configures the global zerolog logger.
func initLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
