package types

import "time"

// OHLCV is a single market-data bar. Windows passed to execution strategies
// are ordered oldest-first with strictly increasing timestamps.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// TypicalPrice is the (high+low+close)/3 midpoint used for VWAP curves.
func (b OHLCV) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

type Ticker struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}
