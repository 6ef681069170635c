package execution

import (
	"github.com/quantpulse/trading-core/internal/errors"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

const twapAdjustment = 0.0005

// TWAPStrategy splits an order into equal slices spread over a time window.
// Each slice references the close of the bar at the corresponding lookback
// offset; when the window has fewer bars than slices the oldest available
// close is reused for the remainder.
type TWAPStrategy struct {
	timeWindowMinutes    int
	sliceIntervalMinutes int
}

// NewTWAPStrategy creates a TWAP strategy. Overridable params:
// time_window_minutes (60), slice_interval_minutes (5).
func NewTWAPStrategy(params map[string]interface{}) *TWAPStrategy {
	s := &TWAPStrategy{
		timeWindowMinutes:    60,
		sliceIntervalMinutes: 5,
	}
	s.timeWindowMinutes = intParam(params, "time_window_minutes", s.timeWindowMinutes)
	s.sliceIntervalMinutes = intParam(params, "slice_interval_minutes", s.sliceIntervalMinutes)
	if s.sliceIntervalMinutes < 1 {
		s.sliceIntervalMinutes = 1
	}
	return s
}

func (s *TWAPStrategy) Name() string { return "TWAP" }

func (s *TWAPStrategy) Params() map[string]interface{} {
	return map[string]interface{}{
		"time_window_minutes":    s.timeWindowMinutes,
		"slice_interval_minutes": s.sliceIntervalMinutes,
	}
}

func (s *TWAPStrategy) Execute(parent order.Order, window []types.OHLCV) ([]Slice, error) {
	if len(window) == 0 {
		return nil, errors.NewInsufficientDataError(component, "twap", "market window is empty")
	}

	n := s.timeWindowMinutes / s.sliceIntervalMinutes
	if n < 1 {
		n = 1
	}

	quantities := evenSlices(parent.Quantity, n)
	slices := make([]Slice, n)
	for i := 0; i < n; i++ {
		idx := len(window) - 1 - i
		if idx < 0 {
			idx = 0
		}
		slices[i] = Slice{
			Quantity: quantities[i],
			Price:    aggressorPrice(parent.Side, window[idx].Close, twapAdjustment),
		}
	}
	return slices, nil
}
