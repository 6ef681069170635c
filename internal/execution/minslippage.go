package execution

import (
	"math"

	"github.com/quantpulse/trading-core/internal/errors"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

// Annualized volatility breakpoints and the matching price adjustments.
// Calm markets get fewer, larger slices; volatile markets get more, smaller
// slices at a wider adjustment.
const (
	lowVolThreshold  = 0.02
	highVolThreshold = 0.05

	calmAdjustment     = 0.0003
	volatileAdjustment = 0.001
	fallbackAdjustment = 0.0005
)

// MinSlippageStrategy adapts slice count and price adjustment to realized
// volatility measured from log returns of recent closes
type MinSlippageStrategy struct {
	volatilityLookback int
}

// NewMinSlippageStrategy creates a min-slippage strategy. Overridable
// params: volatility_lookback (20).
func NewMinSlippageStrategy(params map[string]interface{}) *MinSlippageStrategy {
	s := &MinSlippageStrategy{volatilityLookback: 20}
	s.volatilityLookback = intParam(params, "volatility_lookback", s.volatilityLookback)
	if s.volatilityLookback < 2 {
		s.volatilityLookback = 2
	}
	return s
}

func (s *MinSlippageStrategy) Name() string { return "MinSlippage" }

func (s *MinSlippageStrategy) Params() map[string]interface{} {
	return map[string]interface{}{"volatility_lookback": s.volatilityLookback}
}

func (s *MinSlippageStrategy) Execute(parent order.Order, window []types.OHLCV) ([]Slice, error) {
	if len(window) == 0 {
		return nil, errors.NewInsufficientDataError(component, "min_slippage", "market window is empty")
	}

	lastClose := window[len(window)-1].Close

	// Short windows fall back to a single unsliced order with a minimal
	// adjustment.
	if len(window) < s.volatilityLookback {
		return []Slice{{
			Quantity: parent.Quantity,
			Price:    aggressorPrice(parent.Side, lastClose, fallbackAdjustment),
		}}, nil
	}

	vol := annualizedVolatility(window[len(window)-s.volatilityLookback:])

	var n int
	switch {
	case vol < lowVolThreshold:
		n = maxInt(1, int(parent.Quantity/1000))
	case vol < highVolThreshold:
		n = maxInt(2, int(parent.Quantity/500))
	default:
		n = maxInt(5, int(parent.Quantity/100))
	}

	adjustment := calmAdjustment
	if vol > highVolThreshold {
		adjustment = volatileAdjustment
	}
	price := aggressorPrice(parent.Side, lastClose, adjustment)

	quantities := evenSlices(parent.Quantity, n)
	slices := make([]Slice, n)
	for i, q := range quantities {
		slices[i] = Slice{Quantity: q, Price: price}
	}
	return slices, nil
}

// annualizedVolatility computes the standard deviation of log returns over
// the given bars, annualized with sqrt(252)
func annualizedVolatility(bars []types.OHLCV) float64 {
	if len(bars) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close <= 0 || bars[i].Close <= 0 {
			continue
		}
		returns = append(returns, math.Log(bars[i].Close/bars[i-1].Close))
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(252)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
