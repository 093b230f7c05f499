package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mkarvonen/orderwatch/internal/alert"
	"github.com/mkarvonen/orderwatch/internal/api"
	"github.com/mkarvonen/orderwatch/internal/config"
	"github.com/mkarvonen/orderwatch/internal/db"
	"github.com/mkarvonen/orderwatch/internal/store"
	"github.com/mkarvonen/orderwatch/internal/watcher"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "", "Path to configuration file (TOML)")
	flag.Parse()

	// Load configuration first so the logger can honor it
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("starting orderwatch")
	slog.Info("database configuration",
		"driver", cfg.Database.Driver,
		"dsn", cfg.Database.DSN)

	// Open database connection with pool settings
	database, err := db.OpenWithConfig(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.EnsureSchema(); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Seed runtime settings once; user edits survive restarts
	st := store.New(database)
	if err := st.Seed(cfg.SeedValues()); err != nil {
		slog.Error("failed to seed default settings", "error", err)
		os.Exit(1)
	}

	// Agent hub doubles as the watcher's bridge to the page contexts
	hub := api.NewAgentHub(cfg.Server.AgentTTL)

	renderers := alert.Fanout{api.NewAgentRenderer(hub)}
	if cfg.AMQP.Enabled {
		amqpRenderer, err := alert.DialAMQP(cfg.AMQP.URL)
		if err != nil {
			slog.Error("failed to connect to amqp", "error", err, "url", cfg.AMQP.URL)
			os.Exit(1)
		}
		defer amqpRenderer.Close()
		renderers = append(renderers, amqpRenderer)
		slog.Info("amqp alert fanout enabled")
	}
	gate := alert.NewGate(renderers, logger)

	w, err := watcher.New(cfg.Watcher, st, hub, gate, logger)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	go w.Run()

	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port)),
		Handler: api.NewServer(w, st, hub, logger).Handler(),
	}
	go func() {
		slog.Info("http api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("orderwatch is running")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	w.Stop()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
