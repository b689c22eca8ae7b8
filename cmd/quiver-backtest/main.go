package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"quiver/internal/backtest"
	"quiver/internal/config"
	"quiver/internal/domain"
	"quiver/internal/report"
	"quiver/internal/store"
	"quiver/internal/strategy"
	"quiver/internal/strategy/builtins"
	"quiver/internal/util"
)

func main() {
	strategyName := flag.String("strategy", "sma-cross", "strategy to run")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (overrides config)")
	startFlag := flag.String("start", "", "start date YYYY-MM-DD (overrides config)")
	endFlag := flag.String("end", "", "end date YYYY-MM-DD (overrides config)")
	showTrades := flag.Bool("trades", false, "print the per-fill trade ledger")
	noSave := flag.Bool("no-save", false, "skip persisting the run to the database")
	flag.Parse()

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

	symbols := cfg.Backtest.Symbols
	if *symbolsFlag != "" {
		symbols = strings.Split(*symbolsFlag, ",")
		for i := range symbols {
			symbols[i] = strings.ToUpper(strings.TrimSpace(symbols[i]))
		}
	}
	if len(symbols) == 0 {
		log.Fatal("no symbols: set backtest.symbols in config or pass -symbols")
	}

	startStr := cfg.Backtest.StartDate
	if *startFlag != "" {
		startStr = *startFlag
	}
	endStr := cfg.Backtest.EndDate
	if *endFlag != "" {
		endStr = *endFlag
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		log.Fatalf("invalid start date %q: %v", startStr, err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		log.Fatalf("invalid end date %q: %v", endStr, err)
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(
		cfg.Strategy.SMAFastPeriod, cfg.Strategy.SMASlowPeriod, cfg.Strategy.DefaultConfidence))
	registry.Register(builtins.NewThreshold(&builtins.MomentumScorer{},
		cfg.Strategy.ModelBuyThreshold, cfg.Strategy.ModelSellThreshold))

	runID := util.NewRunID(time.Now())
	ctx := util.WithRunID(context.Background(), runID)

	bt := strategy.NewBacktester(pstore, registry, logger)
	result, err := bt.Run(ctx, *strategyName, symbols, domain.MarketUS, start, end, backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		CommissionRate: cfg.Backtest.CommissionRate,
		Slippage:       cfg.Backtest.Slippage,
		NotionalCap:    cfg.Backtest.NotionalCap,
		SizePct:        cfg.Backtest.SizePct,
	})
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	if !*noSave && cfg.Storage.SQLitePath != "" {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening run database: %v", err)
		}
		defer db.Close()

		meta := store.RunMeta{
			ID:             runID,
			Strategy:       *strategyName,
			Market:         domain.MarketUS,
			StartDate:      start,
			EndDate:        end,
			InitialCapital: cfg.Backtest.InitialCapital,
			CreatedAt:      time.Now().UTC(),
		}
		if err := db.SaveRun(ctx, meta, result); err != nil {
			log.Fatalf("saving run: %v", err)
		}
		logger.Info("run saved", "runID", runID, "db", cfg.Storage.SQLitePath)
	}

	fmt.Println()
	if err := report.Render(os.Stdout, result); err != nil {
		log.Fatalf("rendering report: %v", err)
	}
	if *showTrades {
		fmt.Println()
		if err := report.RenderTrades(os.Stdout, result); err != nil {
			log.Fatalf("rendering trades: %v", err)
		}
	}
}
