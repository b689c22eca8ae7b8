package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiver/internal/backtest"
	"quiver/internal/broker"
	"quiver/internal/config"
	"quiver/internal/domain"
	"quiver/internal/engine"
	"quiver/internal/store"
	"quiver/internal/strategy"
	"quiver/internal/strategy/builtins"
	"quiver/internal/util"
)

// lookbackDays is the bar history replayed through the strategy each cycle
// so its indicators are warm before the newest slice is evaluated.
const lookbackDays = 90

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
		log.Fatalf("opening order database: %v", err)
	}
	defer db.Close()

	var brk broker.Broker
	if cfg.Trading.PaperMode {
		brk = broker.NewSimulatorBroker(cfg.Backtest.InitialCapital)
	} else {
		brk = broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	}

	risk := engine.NewRiskManager(cfg.Trading.MaxPositionPct, cfg.Trading.MaxDailyLossPct)
	eng := engine.NewEngine(brk, db, risk, logger)
	executor := engine.NewExecutor(eng, cfg.Backtest.SizePct, logger)

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewSMACross(
		cfg.Strategy.SMAFastPeriod, cfg.Strategy.SMASlowPeriod, cfg.Strategy.DefaultConfidence))
	registry.Register(builtins.NewThreshold(&builtins.MomentumScorer{},
		cfg.Strategy.ModelBuyThreshold, cfg.Strategy.ModelSellThreshold))

	strat, ok := registry.Get("sma-cross")
	if !ok {
		log.Fatal("strategy sma-cross not registered")
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	calendar := util.NewTradingCalendar(domain.MarketUS)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("quiver-trader starting",
		"broker", brk.Name(),
		"paperMode", cfg.Trading.PaperMode,
		"symbols", cfg.Backtest.Symbols)

	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		if calendar.IsMarketOpen(time.Now()) {
			if err := cycle(ctx, logger, cfg, pstore, strat, executor, brk); err != nil {
				logger.Error("trading cycle failed", "err", err)
			}
		} else {
			logger.Debug("market closed", "nextOpen", calendar.NextOpen(time.Now()))
		}

		select {
		case <-ctx.Done():
			logger.Info("quiver-trader stopping")
			return
		case <-ticker.C:
		}
	}
}

// cycle replays the recent bar window through the strategy to warm its
// indicators, then executes only the signals produced by the newest slice.
func cycle(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	src backtest.BarSource,
	strat strategy.Strategy,
	executor *engine.Executor,
	brk broker.Broker,
) error {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	bars, err := backtest.LoadWindow(ctx, src, cfg.Backtest.Symbols, domain.MarketUS, start, end)
	if err != nil {
		return err
	}

	if err := strat.Init(ctx); err != nil {
		return err
	}

	prices := make(map[string]float64)
	var latest []domain.Signal
	for i := 0; i < len(bars); {
		ts := bars[i].Timestamp
		j := i
		for j < len(bars) && bars[j].Timestamp.Equal(ts) {
			j++
		}
		slice := bars[i:j]
		i = j

		for _, b := range slice {
			prices[b.Symbol] = b.Close
		}

		sigs, err := strat.GenerateSignals(ctx, slice)
		if err != nil {
			return err
		}
		latest = sigs
	}

	if len(latest) == 0 {
		logger.Debug("no signals this cycle", "bars", len(bars))
		return nil
	}

	// The simulator has no market feed; seed it with the latest closes.
	if sim, ok := brk.(*broker.SimulatorBroker); ok {
		for symbol, price := range prices {
			sim.SetPrice(symbol, price)
		}
	}

	logger.Info("executing signals", "count", len(latest))
	return executor.ExecuteSignals(ctx, latest, prices)
}
