// paylaked is the paylake analytics server daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtxerr/paylake/internal/config"
	"github.com/xtxerr/paylake/internal/logging"
	"github.com/xtxerr/paylake/internal/query"
	"github.com/xtxerr/paylake/internal/server"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen address (overrides config)")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	engine := flag.String("engine", "", "query engine: streaming or duckdb (overrides config)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			slog.Error("load config failed", "error", err)
			os.Exit(1)
		}
	}

	// CLI overrides
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *engine != "" {
		cfg.Query.Engine = *engine
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logging.Init(parseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	log := logging.Component("main")
	log.Info("paylaked starting", "version", Version,
		"data_dir", cfg.DataDir, "engine", cfg.Query.Engine)

	svc, err := query.New(cfg)
	if err != nil {
		log.Error("create query service failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	srv := server.New(cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("signal received, shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("paylaked stopped")
}

// parseLevel maps a config level string to a slog level.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
