// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/danielhkuo/pollchain/chain"
	"github.com/danielhkuo/pollchain/cliparse"
	"github.com/danielhkuo/pollchain/db"
	"github.com/danielhkuo/pollchain/middleware"
	"github.com/danielhkuo/pollchain/router"
)

func main() {
	var err error

	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := chain.NewMetrics("pollchain", registry)
	if err != nil {
		slog.Error("metrics registration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := chain.New(ctx, dbConn, metrics)
	if err != nil {
		slog.Error("chain init failed", "error", err)
		os.Exit(1)
	}
	if err := c.Verify(ctx); err != nil {
		slog.Error("chain verification failed", "error", err)
		os.Exit(1)
	}
	height, err := c.Height(ctx)
	if err != nil {
		slog.Error("failed to read chain height", "error", err)
		os.Exit(1)
	}
	slog.Info("chain verified", "height", height)

	go c.Run(ctx, cfg.BlockInterval)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(router.NewRouter(dbConn, c, cfg, registry)),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "block_interval", cfg.BlockInterval)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
