package engine

import (
	"context"
	"testing"

	"quiver/internal/broker"
	"quiver/internal/domain"
)

func newTestEngine(cash float64, maxPositionPct float64) (*Engine, *broker.SimulatorBroker) {
	sim := broker.NewSimulatorBroker(cash)
	rm := NewRiskManager(maxPositionPct, 0)
	return NewEngine(sim, nil, rm, nil), sim
}

func TestEngineSubmitOrder(t *testing.T) {
	e, sim := newTestEngine(100000, 0.10)
	ctx := context.Background()
	sim.SetPrice("AAPL", 100.0)

	order := &domain.Order{
		Symbol: "AAPL",
		Side:   domain.OrderSideBuy,
		Type:   domain.OrderTypeMarket,
		Qty:    50,
	}
	placed, err := e.SubmitOrder(ctx, order, 100.0)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if placed.Status != domain.OrderStatusFilled {
		t.Errorf("Status = %q, want filled", placed.Status)
	}

	positions, err := e.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].Qty != 50 {
		t.Errorf("positions = %+v, want one 50-share position", positions)
	}
}

func TestRiskManagerPositionLimit(t *testing.T) {
	rm := NewRiskManager(0.10, 0.02)
	account := &domain.AccountInfo{Equity: 100000, Cash: 50000, BuyingPower: 200000}

	small := &domain.Order{Symbol: "AAPL", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Qty: 10}
	if err := rm.CheckOrder(context.Background(), small, 100.0, account); err != nil {
		t.Fatalf("CheckOrder rejected a 1%% position: %v", err)
	}

	// 200 shares at 100 is 20% of equity, over the 10% cap.
	big := &domain.Order{Symbol: "AAPL", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Qty: 200}
	if err := rm.CheckOrder(context.Background(), big, 100.0, account); err == nil {
		t.Fatal("CheckOrder allowed a position over the limit")
	}
}

func TestRiskManagerLimitOrderUsesLimitPrice(t *testing.T) {
	rm := NewRiskManager(0.10, 0)
	account := &domain.AccountInfo{Equity: 100000}

	// 100 shares at the 95 limit is 9.5% of equity even though the
	// reference price would put it over.
	order := &domain.Order{
		Symbol:     "AAPL",
		Side:       domain.OrderSideBuy,
		Type:       domain.OrderTypeLimit,
		Qty:        100,
		LimitPrice: 95.0,
	}
	if err := rm.CheckOrder(context.Background(), order, 200.0, account); err != nil {
		t.Fatalf("CheckOrder: %v", err)
	}
}

func TestEngineRiskRejection(t *testing.T) {
	e, sim := newTestEngine(100000, 0.01)
	ctx := context.Background()
	sim.SetPrice("AAPL", 100.0)

	order := &domain.Order{
		Symbol: "AAPL",
		Side:   domain.OrderSideBuy,
		Type:   domain.OrderTypeMarket,
		Qty:    50,
	}
	if _, err := e.SubmitOrder(ctx, order, 100.0); err == nil {
		t.Fatal("SubmitOrder passed risk check for an oversized order")
	}

	positions, _ := e.GetPositions(ctx)
	if len(positions) != 0 {
		t.Errorf("got %d positions after rejected order, want 0", len(positions))
	}
}

func TestExecutorBuySellRoundTrip(t *testing.T) {
	e, sim := newTestEngine(100000, 0.50)
	x := NewExecutor(e, 0.10, nil)
	ctx := context.Background()

	sim.SetPrice("AAPL", 100.0)
	prices := map[string]float64{"AAPL": 100.0}

	buy := []domain.Signal{{Symbol: "AAPL", Side: domain.SideBuy, Confidence: 0.8}}
	if err := x.ExecuteSignals(ctx, buy, prices); err != nil {
		t.Fatalf("ExecuteSignals(buy): %v", err)
	}

	positions, _ := e.GetPositions(ctx)
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}
	// 10% of 100k cash at 100 a share.
	if positions[0].Qty != 100 {
		t.Errorf("Qty = %v, want 100", positions[0].Qty)
	}

	// A second buy for a held symbol is a no-op.
	if err := x.ExecuteSignals(ctx, buy, prices); err != nil {
		t.Fatalf("ExecuteSignals(repeat buy): %v", err)
	}
	positions, _ = e.GetPositions(ctx)
	if positions[0].Qty != 100 {
		t.Errorf("Qty after repeat buy = %v, want unchanged 100", positions[0].Qty)
	}

	sell := []domain.Signal{{Symbol: "AAPL", Side: domain.SideSell, Confidence: 0.8}}
	if err := x.ExecuteSignals(ctx, sell, prices); err != nil {
		t.Fatalf("ExecuteSignals(sell): %v", err)
	}
	positions, _ = e.GetPositions(ctx)
	if len(positions) != 0 {
		t.Errorf("got %d positions after closing sell, want 0", len(positions))
	}
}

func TestExecutorSellWithoutPosition(t *testing.T) {
	e, sim := newTestEngine(100000, 0.50)
	x := NewExecutor(e, 0.10, nil)
	ctx := context.Background()
	sim.SetPrice("AAPL", 100.0)

	sell := []domain.Signal{{Symbol: "AAPL", Side: domain.SideSell, Confidence: 0.8}}
	if err := x.ExecuteSignals(ctx, sell, map[string]float64{"AAPL": 100.0}); err != nil {
		t.Fatalf("ExecuteSignals: %v", err)
	}

	account, _ := e.GetAccount(ctx)
	if account.Cash != 100000 {
		t.Errorf("Cash = %v, want untouched 100000", account.Cash)
	}
}
