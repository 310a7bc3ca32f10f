package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abedinzadeh/dashmon.online/internal/alert"
	"github.com/abedinzadeh/dashmon.online/internal/config"
	"github.com/abedinzadeh/dashmon.online/internal/notify"
	"github.com/abedinzadeh/dashmon.online/internal/probe"
	"github.com/abedinzadeh/dashmon.online/internal/scheduler"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	seedPath := flag.String("seed", "", "provision tenants, groups and devices from a YAML file and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dashmond %s\n", version)
		os.Exit(0)
	}

	if *seedPath != "" {
		if err := handleSeed(*configPath, *seedPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("starting dashmond", "version", version)

	store, err := storage.NewSQLiteStore(cfg.Database.Path, cfg.Database.MaxReadConns)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("database opened", "path", cfg.Database.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := notify.NewSMTPMailer(cfg.SMTP)
	sms := notify.NewSMSClient(cfg.SMS)
	dispatcher := alert.NewDispatcher(store, store, mailer, sms, logger)
	executor := probe.NewExecutor(cfg.Probe)

	loop := scheduler.New(store, executor, dispatcher, cfg.Scheduler, cfg.Database.RetentionDays, logger)
	go loop.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	logger.Info("shutdown complete")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
