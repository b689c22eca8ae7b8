package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiver/internal/config"
	"quiver/internal/gather/us"
	"quiver/internal/store"
	"quiver/internal/util"
)

func main() {
	cfgPath := "config/quiver.yaml"
	if p := os.Getenv("QUIVER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/quiver-data-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	logger := util.NewLoggerTo(w, cfg.Logging.Level, "text")
	util.SetDefault(logger)

	if len(cfg.Gather.USDaily.Symbols) == 0 {
		log.Fatal("no symbols configured under gather.us_daily.symbols")
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := us.NewDailyBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		pstore,
		cfg.Gather.USDaily.Symbols,
		cfg.Gather.USDaily.BatchSize,
		cfg.Gather.USDaily.RateLimitPerMin,
		cfg.Gather.USDaily.StartDate,
		cfg.Alpaca.BaseURL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting quiver-data", "logFile", logFileName, "symbols", len(cfg.Gather.USDaily.Symbols))
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gather error: %v", err)
	}
}
