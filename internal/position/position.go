package position

import (
	"time"
)

// Side tags the direction of a position. The sign of Quantity is the
// authoritative direction; the tag is kept in sync for callers that reason
// in order-side terms.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the side that would flatten this one
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Position is one open position, keyed by symbol (one per symbol at a time).
// Quantity is signed: positive long, negative short. UnrealizedPnL is
// derived and recomputed on every mark update, never mutated independently.
type Position struct {
	Symbol        string
	Quantity      float64
	Side          Side
	AvgEntryPrice float64
	CurrentPrice  float64
	UnrealizedPnL float64
	StopLoss      float64 // 0 means unset
	TakeProfit    float64 // 0 means unset
	OpenedAt      time.Time
}

// Exposure returns the absolute market value of the position
func (p Position) Exposure() float64 {
	qty := p.Quantity
	if qty < 0 {
		qty = -qty
	}
	return qty * p.CurrentPrice
}

// unrealized computes mark-to-market P&L. The signed quantity makes the
// same formula correct for longs and shorts.
func unrealized(quantity, entry, mark float64) float64 {
	return (mark - entry) * quantity
}

// TradeLogEntry records an open or close action in the trade log
type TradeLogEntry struct {
	Symbol     string
	Action     string // "open" or "close"
	Side       Side
	Quantity   float64
	Price      float64
	ProfitLoss float64 // set for closes
	Timestamp  time.Time
}
