package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/conorfennell/memodeck/internal/config"
	"github.com/conorfennell/memodeck/internal/storage"
	"github.com/conorfennell/memodeck/internal/study"
	"github.com/conorfennell/memodeck/internal/web"
)

func main() {
	cfg, err := config.LoadFromArgs(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database opened", "path", cfg.DBPath)

	svc := study.NewService(db, db, db, db, log)
	svc.NewCardCap = cfg.NewCardsPerSession

	server := web.NewServer(svc, log)
	log.Info("Listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, server); err != nil {
		log.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
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
