package execution

import (
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

const (
	vwapAdjustment = 0.0003
	vwapMaxSlices  = 20
)

// VWAPStrategy slices an order along the cumulative volume-weighted typical
// price curve of the market window. An empty window yields one best-effort
// slice at price 0; zero total volume yields one slice at the latest curve
// value.
type VWAPStrategy struct {
	lookbackDays int
}

// NewVWAPStrategy creates a VWAP strategy. Overridable params:
// lookback_days (30).
func NewVWAPStrategy(params map[string]interface{}) *VWAPStrategy {
	s := &VWAPStrategy{lookbackDays: 30}
	s.lookbackDays = intParam(params, "lookback_days", s.lookbackDays)
	return s
}

func (s *VWAPStrategy) Name() string { return "VWAP" }

func (s *VWAPStrategy) Params() map[string]interface{} {
	return map[string]interface{}{"lookback_days": s.lookbackDays}
}

func (s *VWAPStrategy) Execute(parent order.Order, window []types.OHLCV) ([]Slice, error) {
	if len(window) == 0 {
		return []Slice{{Quantity: parent.Quantity, Price: 0}}, nil
	}

	curve, totalVolume := vwapCurve(window)

	if totalVolume == 0 {
		return []Slice{{Quantity: parent.Quantity, Price: curve[len(curve)-1]}}, nil
	}

	n := vwapMaxSlices
	if len(window) < n {
		n = len(window)
	}

	quantities := evenSlices(parent.Quantity, n)
	slices := make([]Slice, n)
	for i := 0; i < n; i++ {
		target := curve[len(curve)-1]
		if i < len(curve) {
			target = curve[i]
		}
		slices[i] = Slice{
			Quantity: quantities[i],
			Price:    aggressorPrice(parent.Side, target, vwapAdjustment),
		}
	}
	return slices, nil
}

// vwapCurve returns the cumulative VWAP at each bar and the total volume.
// Bars before any volume has traded fall back to their typical price.
func vwapCurve(window []types.OHLCV) ([]float64, float64) {
	curve := make([]float64, len(window))
	var cumVolume, cumValue float64
	for i, bar := range window {
		cumVolume += bar.Volume
		cumValue += bar.TypicalPrice() * bar.Volume
		if cumVolume > 0 {
			curve[i] = cumValue / cumVolume
		} else {
			curve[i] = bar.TypicalPrice()
		}
	}
	return curve, cumVolume
}
