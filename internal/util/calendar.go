package util

import (
	"time"

	"quiver/internal/domain"
)

// TradingCalendar provides market-hours awareness for a specific market.
// It covers regular weekday sessions only; exchange holidays are resolved
// upstream via the broker's calendar API.
type TradingCalendar struct {
	market domain.Market
	loc    *time.Location
}

// NewTradingCalendar creates a TradingCalendar for the given market.
func NewTradingCalendar(market domain.Market) *TradingCalendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &TradingCalendar{
		market: market,
		loc:    loc,
	}
}

// IsMarketOpen returns whether the regular session is open at time t
// (NYSE 9:30-16:00 ET, Monday through Friday).
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	t = t.In(tc.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	open := time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, tc.loc)
	close := time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, tc.loc)
	return !t.Before(open) && t.Before(close)
}

// NextOpen returns the next regular session open at or after t.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	t = t.In(tc.loc)
	for {
		open := time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, tc.loc)
		if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday && !open.Before(t) {
			return open
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tc.loc).AddDate(0, 0, 1)
	}
}

// NextClose returns the next regular session close at or after t.
func (tc *TradingCalendar) NextClose(t time.Time) time.Time {
	t = t.In(tc.loc)
	for {
		close := time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, tc.loc)
		if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday && !close.Before(t) {
			return close
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tc.loc).AddDate(0, 0, 1)
	}
}
