// Command instruments rebuilds the local symbol index from the broker's
// published scrip master. Run it before first start and whenever the broker
// rotates tokens.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"llm-trading-agent/internal/api"
	"llm-trading-agent/internal/instruments"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/store"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := store.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger.Init()
	ctx := context.Background()

	client := api.NewClient(api.WithTimeout(2*time.Minute), api.WithLogging(true))

	logger.Info(ctx, "Downloading instrument master", "url", cfg.Instruments.MasterURL)
	records, err := instruments.DownloadMaster(ctx, client, cfg.Instruments.MasterURL)
	if err != nil {
		log.Fatal(err)
	}
	logger.Info(ctx, "Instrument master downloaded", "records", len(records))

	db, err := instruments.Open(cfg.Instruments.DBPath)
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	if err := instruments.BuildIndex(ctx, db, records); err != nil {
		log.Fatal(err)
	}
	logger.Info(ctx, "Instrument index rebuilt",
		"db", cfg.Instruments.DBPath,
		"records", len(records),
		"duration", time.Since(start))
}
