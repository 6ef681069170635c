package order

import (
	"time"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	StatusPendingNew      OrderStatus = "pending_new"
	StatusNew             OrderStatus = "new"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
)

// IsTerminal reports whether the status admits no further transitions
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine allows moving to next.
// The authoritative transitions are:
//
//	PENDING_NEW -> NEW
//	NEW -> PARTIALLY_FILLED | FILLED | CANCELLED | REJECTED
//	PARTIALLY_FILLED -> PARTIALLY_FILLED | FILLED | CANCELLED
//	FILLED, CANCELLED, REJECTED: terminal
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case StatusPendingNew:
		return next == StatusNew
	case StatusNew:
		return next == StatusPartiallyFilled || next == StatusFilled ||
			next == StatusCancelled || next == StatusRejected
	case StatusPartiallyFilled:
		return next == StatusPartiallyFilled || next == StatusFilled ||
			next == StatusCancelled
	default:
		return false
	}
}

// OrderType represents the order type
type OrderType string

const (
	TypeMarket       OrderType = "market"
	TypeLimit        OrderType = "limit"
	TypeStop         OrderType = "stop"
	TypeStopLimit    OrderType = "stop_limit"
	TypeTrailingStop OrderType = "trailing_stop"
)

// OrderSide represents the order side
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Opposite returns the aggressor side that would flatten this one
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// TimeInForce represents how long an order remains working
type TimeInForce string

const (
	GoodTillCancelled TimeInForce = "GTC"
	ImmediateOrCancel TimeInForce = "IOC"
	FillOrKill        TimeInForce = "FOK"
)

// Order is the order record owned by the Manager. Values returned from the
// Manager are snapshots; mutating them has no effect on manager state.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Quantity      float64
	Price         float64 // 0 means unset
	StopPrice     float64 // 0 means unset
	TimeInForce   TimeInForce

	FilledQuantity float64
	AvgFillPrice   float64 // defined only when FilledQuantity > 0
	Status         OrderStatus
	CreatedAt      time.Time
}

// UnfilledQuantity returns the quantity still open on the order
func (o Order) UnfilledQuantity() float64 {
	return o.Quantity - o.FilledQuantity
}

// IsActive reports whether the order is still working
func (o Order) IsActive() bool {
	return !o.Status.IsTerminal()
}

// Fill is an immutable execution record. Fills accumulate and are never
// edited or deleted; the sum of an order's fill quantities equals its
// FilledQuantity.
type Fill struct {
	OrderID   string
	Symbol    string
	Side      OrderSide
	Quantity  float64
	Price     float64
	Fee       float64
	Timestamp time.Time
}

// Value returns the notional value of the fill
func (f Fill) Value() float64 {
	return f.Quantity * f.Price
}
