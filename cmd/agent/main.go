package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"llm-trading-agent/internal/broker"
	"llm-trading-agent/internal/engine"
	"llm-trading-agent/internal/instruments"
	"llm-trading-agent/internal/llm"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/movers"
	"llm-trading-agent/internal/server"
	"llm-trading-agent/internal/store"
	"llm-trading-agent/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := store.LoadConfig(*configPath)
	must(err)

	logger.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	must(trace.Init())
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = trace.Shutdown(shutdownCtx)
	}()

	db, err := instruments.Open(cfg.Instruments.DBPath)
	must(err)

	gw := broker.NewClient(broker.Params{
		BaseURL: cfg.Broker.BaseURL,
		APIKey:  os.Getenv(cfg.Broker.APIKeyEnv),
		Timeout: time.Duration(cfg.Broker.TimeoutSeconds) * time.Second,
	})

	provider, err := llm.New(cfg)
	must(err)

	eng := engine.New(cfg,
		gw,
		instruments.NewResolver(db),
		movers.NewScraper(cfg.Movers.URL, cfg.Movers.TopN),
		provider,
	)

	srv := server.New(cfg.Server.Addr, eng)
	if err := srv.Start(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Server exited with error", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Server stopped")
}
