package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiver/internal/config"
	"quiver/internal/httpapi"
	"quiver/internal/store"
	"quiver/internal/strategy"
	"quiver/internal/strategy/builtins"
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

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run database: %v", err)
	}
	defer db.Close()

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(
		cfg.Strategy.SMAFastPeriod, cfg.Strategy.SMASlowPeriod, cfg.Strategy.DefaultConfidence))
	registry.Register(builtins.NewThreshold(&builtins.MomentumScorer{},
		cfg.Strategy.ModelBuyThreshold, cfg.Strategy.ModelSellThreshold))

	api := httpapi.NewServer(db, db, registry, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("quiver-server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
