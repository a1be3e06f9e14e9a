package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"normex/internal/config"
	"normex/internal/engine"
	"normex/internal/gateway"
	"normex/internal/logger"
	"normex/internal/store/journal"
	enginehttp "normex/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("NORMEX_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initializing log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded, venues=%v", cfg.EnabledVenues())

	adapters, err := gateway.NewAdapters(cfg)
	if err != nil {
		log.Fatalf("building adapters failed: %v", err)
	}

	opts := engine.Options{
		RuleTTL:             cfg.Engine.RuleTTL,
		LeverageReverifyTTL: cfg.Engine.LeverageReverifyTTL,
	}
	if cfg.App.JournalPath != "" {
		store, err := journal.New(cfg.App.JournalPath)
		if err != nil {
			log.Fatalf("opening journal failed: %v", err)
		}
		opts.Journal = store
	}
	eng := engine.New(adapters, opts)

	server, err := enginehttp.NewServer(cfg.App.ListenAddr, eng)
	if err != nil {
		log.Fatalf("building http server failed: %v", err)
	}
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
