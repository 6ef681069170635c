package execution

import (
	"fmt"
	"strings"

	"github.com/quantpulse/trading-core/internal/errors"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

const component = "execution_engine"

// Algorithm is the closed set of execution algorithms. Dispatch goes through
// a switch so an unmapped value is a compile-visible gap rather than a
// runtime registry miss.
type Algorithm int

const (
	AlgorithmTWAP Algorithm = iota
	AlgorithmVWAP
	AlgorithmParticipate
	AlgorithmMinSlippage
	AlgorithmIceberg
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmTWAP:
		return "twap"
	case AlgorithmVWAP:
		return "vwap"
	case AlgorithmParticipate:
		return "participate"
	case AlgorithmMinSlippage:
		return "min_slippage"
	case AlgorithmIceberg:
		return "iceberg"
	default:
		return "unknown"
	}
}

// ParseAlgorithm resolves an algorithm id string
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "twap":
		return AlgorithmTWAP, nil
	case "vwap":
		return AlgorithmVWAP, nil
	case "participate":
		return AlgorithmParticipate, nil
	case "min_slippage", "minslippage":
		return AlgorithmMinSlippage, nil
	case "iceberg":
		return AlgorithmIceberg, nil
	default:
		return 0, errors.NewUnknownStrategyError(component, "parse_algorithm",
			fmt.Sprintf("unknown execution algorithm %q", s))
	}
}

// Slice is one child-order specification produced by a strategy. For every
// strategy the slice quantities sum exactly to the parent quantity; the
// remainder is always folded into the final slice.
type Slice struct {
	Quantity float64
	Price    float64
}

// Strategy turns a parent order and a market window into an ordered sequence
// of slices. The window is ordered oldest-first, most-recent last.
type Strategy interface {
	Name() string
	Params() map[string]interface{}
	Execute(parent order.Order, window []types.OHLCV) ([]Slice, error)
}

// evenSlices splits quantity into n slices whose sum is exactly quantity
func evenSlices(quantity float64, n int) []float64 {
	if n < 1 {
		n = 1
	}
	per := quantity / float64(n)
	out := make([]float64, n)
	var used float64
	for i := 0; i < n-1; i++ {
		out[i] = per
		used += per
	}
	out[n-1] = quantity - used
	return out
}

// aggressorPrice adjusts a reference price in favor of crossing the spread:
// buys pay up, sells give up
func aggressorPrice(side order.OrderSide, price, adjustment float64) float64 {
	if side == order.SideBuy {
		return price * (1 + adjustment)
	}
	return price * (1 - adjustment)
}

// floatParam reads a float override, accepting ints for convenience
func floatParam(params map[string]interface{}, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// intParam reads an int override, accepting floats for convenience
func intParam(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}
