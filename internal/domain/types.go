// Package domain holds the shared types passed between the data layer, the
// strategies, and the backtest and execution engines.
package domain

import "time"

// Market identifies which market a symbol trades in.
type Market string

const (
	MarketUS Market = "us"
)

// Bar is a single OHLCV bar for one symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// Tick is a single trade print from the tape.
type Tick struct {
	Symbol    string
	Timestamp time.Time
	Price     float64
	Size      int64
	Exchange  string
	ID        string
}

// Side is the direction of a trading signal.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is a directional trade recommendation produced by a strategy.
// Confidence is in [0, 1].
type Signal struct {
	Symbol     string
	Side       Side
	Confidence float64
	Timestamp  time.Time
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType describes how an order is priced.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order is a request to buy or sell submitted to a broker.
type Order struct {
	ID             string
	Symbol         string
	Side           OrderSide
	Type           OrderType
	Qty            float64
	LimitPrice     float64
	FilledQty      float64
	FilledAvgPrice float64
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PositionSide is the direction of an open brokerage position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Position is an open position as reported by a broker.
type Position struct {
	Symbol        string
	Qty           float64
	AvgEntryPrice float64
	Side          PositionSide
	MarketValue   float64
	UnrealizedPL  float64
}

// AccountInfo is a snapshot of a brokerage account's financial state.
type AccountInfo struct {
	Equity      float64
	Cash        float64
	BuyingPower float64
}
