package execution

import (
	"github.com/quantpulse/trading-core/internal/errors"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

const (
	icebergDisplayedAdjustment = 0.0002
	icebergHiddenAdjustment    = 0.0003
)

// IcebergStrategy shows only a display-sized tip of the order: one displayed
// slice followed by hidden slices of at most the display size, priced
// slightly worse than the tip to avoid adverse selection against resting
// liquidity.
type IcebergStrategy struct {
	displaySize        float64
	refreshTimeSeconds int
}

// NewIcebergStrategy creates an iceberg strategy. Overridable params:
// display_size (100), refresh_time_seconds (30).
func NewIcebergStrategy(params map[string]interface{}) *IcebergStrategy {
	s := &IcebergStrategy{
		displaySize:        100,
		refreshTimeSeconds: 30,
	}
	s.displaySize = floatParam(params, "display_size", s.displaySize)
	s.refreshTimeSeconds = intParam(params, "refresh_time_seconds", s.refreshTimeSeconds)
	if s.displaySize <= 0 {
		s.displaySize = 100
	}
	return s
}

func (s *IcebergStrategy) Name() string { return "Iceberg" }

func (s *IcebergStrategy) Params() map[string]interface{} {
	return map[string]interface{}{
		"display_size":         s.displaySize,
		"refresh_time_seconds": s.refreshTimeSeconds,
	}
}

func (s *IcebergStrategy) Execute(parent order.Order, window []types.OHLCV) ([]Slice, error) {
	if len(window) == 0 {
		return nil, errors.NewInsufficientDataError(component, "iceberg", "market window is empty")
	}

	lastClose := window[len(window)-1].Close

	displayed := s.displaySize
	if parent.Quantity < displayed {
		displayed = parent.Quantity
	}

	slices := []Slice{{
		Quantity: displayed,
		Price:    aggressorPrice(parent.Side, lastClose, icebergDisplayedAdjustment),
	}}

	remaining := parent.Quantity - displayed
	hiddenPrice := aggressorPrice(parent.Side, lastClose, icebergHiddenAdjustment)
	for remaining > 0 {
		chunk := s.displaySize
		if remaining < chunk {
			chunk = remaining
		}
		slices = append(slices, Slice{Quantity: chunk, Price: hiddenPrice})
		remaining -= chunk
	}
	return slices, nil
}
