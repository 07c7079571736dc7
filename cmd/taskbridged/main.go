package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskbridge-io/taskbridge/internal/api"
	"github.com/taskbridge-io/taskbridge/internal/config"
	"github.com/taskbridge-io/taskbridge/internal/dispatch"
	"github.com/taskbridge-io/taskbridge/internal/gateway"
	"github.com/taskbridge-io/taskbridge/internal/logbuf"
	"github.com/taskbridge-io/taskbridge/internal/run"
	"github.com/taskbridge-io/taskbridge/internal/tool"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file (env is used when empty)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (file or env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("taskbridged starting", "model", cfg.Gateway.Model)

	// 1. Tool registry — fail fast if it drifts from the catalog
	tools := tool.Default()
	if err := tools.Verify(tool.CatalogNames); err != nil {
		logger.Error("tool catalog mismatch", "error", err)
		os.Exit(1)
	}

	// 2. Gateway client (credential injected here, never read at call time)
	var gwOpts []gateway.Option
	if cfg.Gateway.BaseURL != "" {
		gwOpts = append(gwOpts, gateway.WithBaseURL(cfg.Gateway.BaseURL))
	}
	if cfg.Gateway.Model != "" {
		gwOpts = append(gwOpts, gateway.WithModel(cfg.Gateway.Model))
	}
	if cfg.Gateway.TimeoutSeconds > 0 {
		gwOpts = append(gwOpts, gateway.WithTimeout(time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second))
	}
	gw := gateway.NewClient(cfg.Gateway.APIKey, gwOpts...)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Run history store + retention sweeper (optional)
	var store *run.SQLiteStore
	if cfg.Store.Path != "" {
		store, err = run.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			logger.Error("failed to open run store", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		defer store.Close()

		retention := time.Duration(cfg.Store.RetentionDays) * 24 * time.Hour
		sweeper := run.NewSweeper(store, retention, logger.With("component", "sweeper"))
		go safeGo(logger, "sweeper", func() { sweeper.Start(ctx, cfg.Store.SweepSchedule) })
		logger.Info("run store opened", "path", cfg.Store.Path, "retention_days", cfg.Store.RetentionDays)
	}

	// 4. Dispatcher
	var recorder dispatch.Recorder
	var querier api.RunQuerier
	if store != nil {
		recorder = store
		querier = store
	}
	disp := dispatch.New(gw, tools, recorder, logger.With("component", "dispatch"))

	// 5. HTTP server
	srv := api.NewServer(disp, tools.Definitions(), querier, logBuf, api.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		Key:  cfg.Server.Key,
	}, logger.With("component", "api"))
	go safeGo(logger, "http-server", func() { srv.Start(ctx) })
	logger.Info("http server started", "port", cfg.Server.Port, "tools", tools.Names())

	// 6. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("taskbridged stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
