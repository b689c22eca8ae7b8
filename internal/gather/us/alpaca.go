package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"quiver/internal/domain"
	"quiver/internal/gather"
	"quiver/internal/store"
	"quiver/internal/util"
)

// Compile-time interface checks.
var _ gather.Gatherer = (*DailyBarGatherer)(nil)
var _ gather.Gatherer = (*TickGatherer)(nil)

// ---------------------------------------------------------------------------
// DailyBarGatherer — daily OHLCV bars from the Alpaca market-data API.
// ---------------------------------------------------------------------------

// DailyBarGatherer gathers daily bar data for a configured symbol list via
// the Alpaca market-data API and writes it to the bar store.
type DailyBarGatherer struct {
	client    *marketdata.Client
	store     store.BarStore
	symbols   []string
	batchSize int
	startDate string
	apiKey    string
	apiSecret string
	baseURL   string // live trading API, used for the calendar
	limiter   *util.RateLimiter
	log       *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer configured with the given
// Alpaca credentials, target store, symbol list, and batch parameters.
func NewDailyBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore, symbols []string, batchSize, rateLimitPerMin int, startDate, baseURL string) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &DailyBarGatherer{
		client:    marketdata.NewClient(opts),
		store:     s,
		symbols:   symbols,
		batchSize: batchSize,
		startDate: startDate,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		limiter:   util.NewRateLimiter(rateLimitPerMin),
		log:       slog.Default().With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Run fetches daily bars for the configured symbols from the Alpaca API and
// writes them to the store. Writes merge on (symbol, timestamp), so rerunning
// the same window is idempotent.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}

	endDate, err := LatestFinishedTradingDay(g.apiKey, g.apiSecret, g.baseURL)
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}

	batchSize := g.batchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	totalBatches := (len(g.symbols) + batchSize - 1) / batchSize
	g.log.Info("starting us-daily",
		"symbols", len(g.symbols),
		"batches", totalBatches,
		"start", g.startDate,
		"end", endDate.Format("2006-01-02"),
	)

	runStart := time.Now()
	var totalBars int
	for i := 0; i < len(g.symbols); i += batchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		end := min(i+batchSize, len(g.symbols))
		batch := g.symbols[i:end]

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var bars []domain.Bar
		err := util.Retry(ctx, 3, time.Second, func() error {
			var ferr error
			bars, ferr = g.fetchMultiBars(ctx, batch, start, endDate)
			return ferr
		})
		if err != nil {
			return fmt.Errorf("fetching batch %d/%d: %w", i/batchSize+1, totalBatches, err)
		}

		if len(bars) > 0 {
			if err := g.store.WriteBars(ctx, bars, domain.MarketUS); err != nil {
				return fmt.Errorf("writing batch %d/%d: %w", i/batchSize+1, totalBatches, err)
			}
		}
		totalBars += len(bars)

		g.log.Info("batch done",
			"batch", fmt.Sprintf("%d/%d", i/batchSize+1, totalBatches),
			"bars", len(bars),
			"elapsed", time.Since(runStart).Round(time.Second),
		)
	}

	g.log.Info("complete", "bars", totalBars, "elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

// fetchMultiBars fetches daily bars for multiple symbols in a single API call.
func (g *DailyBarGatherer) fetchMultiBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}

// ---------------------------------------------------------------------------
// TickGatherer — historical trade (tick) data from the Alpaca API.
// ---------------------------------------------------------------------------

// TickGatherer gathers historical trade prints for a configured symbol list
// via the Alpaca market-data API.
type TickGatherer struct {
	client  *marketdata.Client
	store   store.TickStore
	symbols []string
	start   time.Time
	end     time.Time
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewTickGatherer creates a TickGatherer covering [start, end] for the given
// symbols.
func NewTickGatherer(apiKey, apiSecret, dataURL string, s store.TickStore, symbols []string, start, end time.Time, rateLimitPerMin int) *TickGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &TickGatherer{
		client:  marketdata.NewClient(opts),
		store:   s,
		symbols: symbols,
		start:   start,
		end:     end,
		limiter: util.NewRateLimiter(rateLimitPerMin),
		log:     slog.Default().With("gatherer", "us-ticks"),
	}
}

// Name returns the gatherer identifier.
func (g *TickGatherer) Name() string { return "us-ticks" }

// Run fetches trade prints for each configured symbol and writes them to the
// tick store, one symbol at a time.
func (g *TickGatherer) Run(ctx context.Context) error {
	for _, symbol := range g.symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var trades []marketdata.Trade
		err := util.Retry(ctx, 3, time.Second, func() error {
			var ferr error
			trades, ferr = g.client.GetTrades(symbol, marketdata.GetTradesRequest{
				Start: g.start,
				End:   g.end,
				Feed:  "sip",
			})
			return ferr
		})
		if err != nil {
			return fmt.Errorf("fetching trades for %s: %w", symbol, err)
		}

		ticks := make([]domain.Tick, 0, len(trades))
		for _, tr := range trades {
			ticks = append(ticks, domain.Tick{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: tr.Timestamp,
				Price:     tr.Price,
				Size:      int64(tr.Size),
				Exchange:  tr.Exchange,
				ID:        fmt.Sprintf("%s-%d", tr.Exchange, tr.ID),
			})
		}

		if err := g.store.WriteTicks(ctx, ticks); err != nil {
			return fmt.Errorf("writing ticks for %s: %w", symbol, err)
		}
		g.log.Info("symbol done", "symbol", symbol, "ticks", len(ticks))
	}
	return nil
}
