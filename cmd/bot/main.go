package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"autoads_bot/internal/bot"
	"autoads_bot/internal/config"
	"autoads_bot/internal/fetcher"
	"autoads_bot/internal/storage"
	"autoads_bot/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	baseURL, err := fetcher.BaseFromURL(cfg.IndexURL)
	if err != nil {
		log.Error("parse index url", "url", cfg.IndexURL, "error", err)
		os.Exit(1)
	}
	f := fetcher.New(http.DefaultClient, baseURL)
	f.SetTimeout(cfg.HTTPTimeout)

	b, err := bot.New(cfg.TelegramBotToken, store, f, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	w := watcher.New(store, f, b, log, watcher.Options{
		IndexURL:         cfg.IndexURL,
		PollInterval:     cfg.PollInterval,
		TailWindow:       cfg.TailWindow,
		MaxListings:      cfg.MaxListings,
		FetchConcurrency: cfg.FetchConcurrency,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot")

	go w.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
