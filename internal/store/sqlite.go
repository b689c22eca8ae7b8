package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quiver/internal/backtest"
	"quiver/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ RunStore = (*SQLiteStore)(nil)
var _ OrderStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore and OrderStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	strategy          TEXT NOT NULL,
	market            TEXT NOT NULL,
	start_date        TEXT NOT NULL,
	end_date          TEXT NOT NULL,
	initial_capital   REAL NOT NULL,
	created_at        TEXT NOT NULL,
	total_return      REAL NOT NULL,
	annualized_return REAL NOT NULL,
	sharpe_ratio      REAL NOT NULL,
	max_drawdown      REAL NOT NULL,
	volatility        REAL NOT NULL,
	win_rate          REAL NOT NULL,
	avg_trade_return  REAL NOT NULL,
	avg_trade_hours   REAL NOT NULL,
	profit_factor     REAL NOT NULL,
	avg_commission    REAL NOT NULL,
	total_trades      INTEGER NOT NULL,
	total_commission  REAL NOT NULL,
	realized_pnl      REAL NOT NULL,
	ending_cash       REAL NOT NULL,
	return_pct        REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS run_signals (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	symbol     TEXT NOT NULL,
	side       TEXT NOT NULL,
	confidence REAL NOT NULL,
	timestamp  TEXT NOT NULL,
	price      REAL NOT NULL,
	quantity   INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS run_trades (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	timestamp  TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	price      REAL NOT NULL,
	commission REAL NOT NULL,
	cash       REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS run_values (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	value     REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	symbol           TEXT NOT NULL,
	side             TEXT NOT NULL,
	type             TEXT NOT NULL,
	qty              REAL NOT NULL,
	limit_price      REAL NOT NULL,
	filled_qty       REAL NOT NULL,
	filled_avg_price REAL NOT NULL,
	status           TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun persists a run's metadata and full result bundle in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, meta RunMeta, result *backtest.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, strategy, market, start_date, end_date, initial_capital, created_at,
		total_return, annualized_return, sharpe_ratio, max_drawdown, volatility, win_rate,
		avg_trade_return, avg_trade_hours, profit_factor, avg_commission,
		total_trades, total_commission, realized_pnl, ending_cash, return_pct
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Strategy, string(meta.Market),
		meta.StartDate.Format(time.RFC3339), meta.EndDate.Format(time.RFC3339),
		meta.InitialCapital, meta.CreatedAt.Format(time.RFC3339),
		result.Performance.TotalReturn, result.Performance.AnnualizedReturn,
		result.Performance.SharpeRatio, result.Performance.MaxDrawdown,
		result.Performance.Volatility, result.Performance.WinRate,
		result.TradeStats.AvgTradeReturn, result.TradeStats.AvgTradeDuration,
		result.TradeStats.ProfitFactor, result.TradeStats.AvgCommission,
		result.Summary.TotalTrades, result.Summary.TotalCommission,
		result.Summary.RealizedPnL, result.Summary.EndingCash, result.Summary.ReturnPct,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", meta.ID, err)
	}

	for i, sig := range result.Signals {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_signals (run_id, seq, symbol, side, confidence, timestamp, price, quantity)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			meta.ID, i, sig.Symbol, string(sig.Side), sig.Confidence,
			sig.Timestamp.Format(time.RFC3339), sig.Price, sig.Quantity)
		if err != nil {
			return fmt.Errorf("inserting signal %d: %w", i, err)
		}
	}

	for i, tr := range result.Trades {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_trades (run_id, seq, timestamp, symbol, quantity, price, commission, cash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			meta.ID, i, tr.Timestamp.Format(time.RFC3339), tr.Symbol,
			tr.Quantity, tr.Price, tr.Commission, tr.Cash)
		if err != nil {
			return fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	for i, v := range result.Values {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_values (run_id, seq, timestamp, value) VALUES (?, ?, ?, ?)`,
			meta.ID, i, v.Timestamp.Format(time.RFC3339), v.Value)
		if err != nil {
			return fmt.Errorf("inserting value %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run and its result bundle by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunMeta, *backtest.Result, error) {
	var (
		meta                           RunMeta
		market, start, end, created    string
		result                         = &backtest.Result{RunID: id}
	)
	row := s.db.QueryRowContext(ctx, `SELECT
		id, strategy, market, start_date, end_date, initial_capital, created_at,
		total_return, annualized_return, sharpe_ratio, max_drawdown, volatility, win_rate,
		avg_trade_return, avg_trade_hours, profit_factor, avg_commission,
		total_trades, total_commission, realized_pnl, ending_cash, return_pct
		FROM runs WHERE id = ?`, id)
	err := row.Scan(
		&meta.ID, &meta.Strategy, &market, &start, &end, &meta.InitialCapital, &created,
		&result.Performance.TotalReturn, &result.Performance.AnnualizedReturn,
		&result.Performance.SharpeRatio, &result.Performance.MaxDrawdown,
		&result.Performance.Volatility, &result.Performance.WinRate,
		&result.TradeStats.AvgTradeReturn, &result.TradeStats.AvgTradeDuration,
		&result.TradeStats.ProfitFactor, &result.TradeStats.AvgCommission,
		&result.Summary.TotalTrades, &result.Summary.TotalCommission,
		&result.Summary.RealizedPnL, &result.Summary.EndingCash, &result.Summary.ReturnPct,
	)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, nil, err
	}
	meta.Market = domain.Market(market)
	if meta.StartDate, err = time.Parse(time.RFC3339, start); err != nil {
		return nil, nil, err
	}
	if meta.EndDate, err = time.Parse(time.RFC3339, end); err != nil {
		return nil, nil, err
	}
	if meta.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, nil, err
	}

	if result.Signals, err = s.runSignals(ctx, id); err != nil {
		return nil, nil, err
	}
	if result.Trades, err = s.runTrades(ctx, id); err != nil {
		return nil, nil, err
	}
	if result.Values, err = s.runValues(ctx, id); err != nil {
		return nil, nil, err
	}
	return &meta, result, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, strategy, market, start_date, end_date, initial_capital, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		var (
			meta                        RunMeta
			market, start, end, created string
		)
		if err := rows.Scan(&meta.ID, &meta.Strategy, &market, &start, &end,
			&meta.InitialCapital, &created); err != nil {
			return nil, err
		}
		meta.Market = domain.Market(market)
		if meta.StartDate, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, err
		}
		if meta.EndDate, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, err
		}
		if meta.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, err
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) runSignals(ctx context.Context, runID string) ([]backtest.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, side, confidence, timestamp, price, quantity
		 FROM run_signals WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []backtest.SignalRecord
	for rows.Next() {
		var (
			rec      backtest.SignalRecord
			side, ts string
		)
		if err := rows.Scan(&rec.Symbol, &side, &rec.Confidence, &ts,
			&rec.Price, &rec.Quantity); err != nil {
			return nil, err
		}
		rec.Side = domain.Side(side)
		if rec.Signal.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, err
		}
		signals = append(signals, rec)
	}
	return signals, rows.Err()
}

func (s *SQLiteStore) runTrades(ctx context.Context, runID string) ([]backtest.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, symbol, quantity, price, commission, cash
		 FROM run_trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []backtest.TradeRecord
	for rows.Next() {
		var (
			tr backtest.TradeRecord
			ts string
		)
		if err := rows.Scan(&ts, &tr.Symbol, &tr.Quantity, &tr.Price,
			&tr.Commission, &tr.Cash); err != nil {
			return nil, err
		}
		if tr.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, err
		}
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) runValues(ctx context.Context, runID string) ([]backtest.PortfolioValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, value FROM run_values WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []backtest.PortfolioValue
	for rows.Next() {
		var (
			v  backtest.PortfolioValue
			ts string
		)
		if err := rows.Scan(&ts, &v.Value); err != nil {
			return nil, err
		}
		if v.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// SaveOrder appends an order to the journal. Re-saving an order with the same
// ID replaces it, so status updates can reuse the call.
func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO orders (
		id, symbol, side, type, qty, limit_price, filled_qty, filled_avg_price,
		status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Symbol, string(order.Side), string(order.Type),
		order.Qty, order.LimitPrice, order.FilledQty, order.FilledAvgPrice,
		string(order.Status),
		order.CreatedAt.Format(time.RFC3339), order.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving order %s: %w", order.ID, err)
	}
	return nil
}

// ListOrders returns the most recent journaled orders, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, symbol, side, type, qty, limit_price, filled_qty, filled_avg_price,
		status, created_at, updated_at
		FROM orders ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o                                  domain.Order
			side, typ, status, created, updated string
		)
		if err := rows.Scan(&o.ID, &o.Symbol, &side, &typ, &o.Qty, &o.LimitPrice,
			&o.FilledQty, &o.FilledAvgPrice, &status, &created, &updated); err != nil {
			return nil, err
		}
		o.Side = domain.OrderSide(side)
		o.Type = domain.OrderType(typ)
		o.Status = domain.OrderStatus(status)
		if o.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, err
		}
		if o.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
