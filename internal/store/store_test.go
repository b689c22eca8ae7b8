package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiver/internal/backtest"
	"quiver/internal/domain"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	ts := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	bp := ps.barPath("AAPL", domain.MarketUS, ts)

	wantBarPath := filepath.Join("/data", "us", "daily", "AAPL", "2024.parquet")
	if bp != wantBarPath {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, wantBarPath)
	}
	if !strings.Contains(bp, "us") {
		t.Errorf("barPath should contain market segment 'us': %s", bp)
	}
	if !strings.Contains(bp, "2024.parquet") {
		t.Errorf("barPath should contain year file '2024.parquet': %s", bp)
	}

	tp := ps.tickPath("TSLA", ts)

	wantTickPath := filepath.Join("/data", "us", "ticks", "TSLA", "2024-06-15.parquet")
	if tp != wantTickPath {
		t.Errorf("tickPath mismatch:\n  got  %s\n  want %s", tp, wantTickPath)
	}
	if !strings.Contains(tp, "2024-06-15.parquet") {
		t.Errorf("tickPath should contain date file '2024-06-15.parquet': %s", tp)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:       185.0,
			High:       186.5,
			Low:        184.0,
			Close:      185.5,
			Volume:     50000000,
			TradeCount: 500000,
			VWAP:       185.25,
		},
		{
			Symbol:     "AAPL",
			Timestamp:  time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:       185.5,
			High:       187.0,
			Low:        185.0,
			Close:      186.0,
			Volume:     45000000,
			TradeCount: 450000,
			VWAP:       185.75,
		},
	}

	if err := ps.WriteBars(ctx, bars, domain.MarketUS); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "AAPL", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("first bar Close = %v, want 185.5", got[0].Close)
	}
	if got[1].Close != 186.0 {
		t.Errorf("second bar Close = %v, want 186.0", got[1].Close)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars1 := []domain.Bar{
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Open:      400.0, High: 405.0, Low: 399.0, Close: 403.0,
			Volume: 30000000, TradeCount: 300000, VWAP: 402.0,
		},
	}
	if err := ps.WriteBars(ctx, bars1, domain.MarketUS); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Second write for the same symbol+year must merge, not overwrite.
	bars2 := []domain.Bar{
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Open:      403.0, High: 410.0, Low: 402.0, Close: 408.0,
			Volume: 35000000, TradeCount: 350000, VWAP: 406.0,
		},
	}
	if err := ps.WriteBars(ctx, bars2, domain.MarketUS); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "MSFT", "us", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
}

func TestParquetStoreRewriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bar := domain.Bar{
		Symbol:    "NVDA",
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Open:      850.0, High: 870.0, Low: 845.0, Close: 860.0,
		Volume: 40000000,
	}
	if err := ps.WriteBars(ctx, []domain.Bar{bar}, domain.MarketUS); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Same timestamp, revised close. The revision wins and no duplicate appears.
	bar.Close = 865.0
	if err := ps.WriteBars(ctx, []domain.Bar{bar}, domain.MarketUS); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := ps.ReadBars(ctx, "NVDA", "us",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadBars returned %d bars, want 1 after rewrite", len(got))
	}
	if got[0].Close != 865.0 {
		t.Errorf("Close = %v, want revised 865.0", got[0].Close)
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 185.0, High: 186.0, Low: 184.0, Close: 185.5, Volume: 50000000},
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 140.0, High: 141.0, Low: 139.0, Close: 140.5, Volume: 20000000},
	}
	if err := ps.WriteBars(ctx, bars, domain.MarketUS); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx, domain.MarketUS)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("ListSymbols returned %d symbols, want 2", len(symbols))
	}
	if symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}
}

func TestParquetStoreWriteReadTicks(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	ticks := []domain.Tick{
		{Symbol: "AAPL", Timestamp: day.Add(14*time.Hour + 30*time.Minute), Price: 186.10, Size: 100, Exchange: "V", ID: "t1"},
		{Symbol: "AAPL", Timestamp: day.Add(14*time.Hour + 31*time.Minute), Price: 186.15, Size: 200, Exchange: "V", ID: "t2"},
	}
	if err := ps.WriteTicks(ctx, ticks); err != nil {
		t.Fatalf("WriteTicks: %v", err)
	}

	got, err := ps.ReadTicks(ctx, "AAPL", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ReadTicks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadTicks returned %d ticks, want 2", len(got))
	}
	if got[0].Price != 186.10 || got[1].Price != 186.15 {
		t.Errorf("tick prices = %v, %v, want 186.10, 186.15", got[0].Price, got[1].Price)
	}
}

func TestSQLiteStoreOpen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()

	if err := store.db.Ping(); err != nil {
		t.Fatalf("db.Ping() returned error: %v", err)
	}
}

func sampleRun(id string) (RunMeta, *backtest.Result) {
	ts1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	ts2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	meta := RunMeta{
		ID:             id,
		Strategy:       "sma-cross",
		Market:         domain.MarketUS,
		StartDate:      ts1,
		EndDate:        ts2,
		InitialCapital: 100000,
		CreatedAt:      time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC),
	}
	result := &backtest.Result{
		RunID: id,
		Performance: backtest.PerformanceMetrics{
			TotalReturn: 1.5,
			SharpeRatio: 0.8,
		},
		TradeStats: backtest.TradeMetrics{
			AvgCommission: 2.0,
			ProfitFactor:  1.3,
		},
		Summary: backtest.Summary{
			TotalTrades:     2,
			TotalCommission: 4.0,
			RealizedPnL:     96.0,
			EndingCash:      100096.0,
			ReturnPct:       0.096,
		},
		Signals: []backtest.SignalRecord{
			{
				Signal:   domain.Signal{Symbol: "AAPL", Side: domain.SideBuy, Confidence: 0.6, Timestamp: ts1},
				Price:    185.0,
				Quantity: 50,
			},
		},
		Values: []backtest.PortfolioValue{
			{Timestamp: ts1, Value: 100000},
			{Timestamp: ts2, Value: 100096},
		},
		Trades: []backtest.TradeRecord{
			{Timestamp: ts1, Symbol: "AAPL", Quantity: 50, Price: 185.09, Commission: 18.5, Cash: 90726.0},
			{Timestamp: ts2, Symbol: "AAPL", Quantity: -50, Price: 186.0, Commission: 18.6, Cash: 100096.0},
		},
	}
	return meta, result
}

func TestSQLiteStoreSaveGetRun(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	meta, result := sampleRun("run_20240104_120000_abc123")
	if err := store.SaveRun(ctx, meta, result); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	gotMeta, gotResult, err := store.GetRun(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if gotMeta.Strategy != "sma-cross" {
		t.Errorf("Strategy = %q, want sma-cross", gotMeta.Strategy)
	}
	if !gotMeta.StartDate.Equal(meta.StartDate) {
		t.Errorf("StartDate = %v, want %v", gotMeta.StartDate, meta.StartDate)
	}
	if gotResult.Performance.TotalReturn != 1.5 {
		t.Errorf("TotalReturn = %v, want 1.5", gotResult.Performance.TotalReturn)
	}
	if gotResult.Summary.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", gotResult.Summary.TotalTrades)
	}
	if len(gotResult.Signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(gotResult.Signals))
	}
	if gotResult.Signals[0].Side != domain.SideBuy || gotResult.Signals[0].Quantity != 50 {
		t.Errorf("signal = %+v, want BUY qty 50", gotResult.Signals[0])
	}
	if len(gotResult.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(gotResult.Trades))
	}
	if gotResult.Trades[1].Quantity != -50 {
		t.Errorf("second trade quantity = %d, want -50", gotResult.Trades[1].Quantity)
	}
	if len(gotResult.Values) != 2 {
		t.Fatalf("got %d values, want 2", len(gotResult.Values))
	}
	if gotResult.Values[1].Value != 100096 {
		t.Errorf("second value = %v, want 100096", gotResult.Values[1].Value)
	}
}

func TestSQLiteStoreGetRun_NotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if _, _, err := store.GetRun(context.Background(), "missing"); err == nil {
		t.Fatal("GetRun returned nil error for missing run")
	}
}

func TestSQLiteStoreListRuns(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	metaA, resultA := sampleRun("run_a")
	metaA.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	metaB, resultB := sampleRun("run_b")
	metaB.CreatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	if err := store.SaveRun(ctx, metaA, resultA); err != nil {
		t.Fatalf("SaveRun(a): %v", err)
	}
	if err := store.SaveRun(ctx, metaB, resultB); err != nil {
		t.Fatalf("SaveRun(b): %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].ID != "run_b" || runs[1].ID != "run_a" {
		t.Errorf("ListRuns order = [%s %s], want [run_b run_a]", runs[0].ID, runs[1].ID)
	}

	runs, err = store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns(limit=1): %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run_b" {
		t.Errorf("ListRuns(limit=1) = %v, want just run_b", runs)
	}
}

func TestSQLiteStoreOrders(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "orders.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	created := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	order := &domain.Order{
		ID:        "ord-1",
		Symbol:    "AAPL",
		Side:      domain.OrderSideBuy,
		Type:      domain.OrderTypeMarket,
		Qty:       10,
		Status:    domain.OrderStatusNew,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := store.SaveOrder(ctx, order); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	// Re-saving the same ID updates in place.
	order.Status = domain.OrderStatusFilled
	order.FilledQty = 10
	order.FilledAvgPrice = 186.5
	order.UpdatedAt = created.Add(time.Second)
	if err := store.SaveOrder(ctx, order); err != nil {
		t.Fatalf("SaveOrder (update): %v", err)
	}

	orders, err := store.ListOrders(ctx, 10)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("ListOrders returned %d orders, want 1", len(orders))
	}
	if orders[0].Status != domain.OrderStatusFilled {
		t.Errorf("Status = %q, want filled", orders[0].Status)
	}
	if orders[0].FilledAvgPrice != 186.5 {
		t.Errorf("FilledAvgPrice = %v, want 186.5", orders[0].FilledAvgPrice)
	}
}
