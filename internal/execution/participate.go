package execution

import (
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

const (
	participateAdjustment = 0.0005
	participateVolumeBars = 20
)

// ParticipateStrategy works an order at a fixed fraction of observed market
// volume: slice size is the trailing average volume times the participation
// rate, repeated until the parent quantity is exhausted. All slices price at
// the latest close.
type ParticipateStrategy struct {
	participationRate float64
}

// NewParticipateStrategy creates a participation strategy. Overridable
// params: participation_rate (0.10), clamped to (0, 1).
func NewParticipateStrategy(params map[string]interface{}) *ParticipateStrategy {
	s := &ParticipateStrategy{participationRate: 0.10}
	s.participationRate = floatParam(params, "participation_rate", s.participationRate)
	if s.participationRate <= 0 || s.participationRate >= 1 {
		s.participationRate = 0.10
	}
	return s
}

func (s *ParticipateStrategy) Name() string { return "Participate" }

func (s *ParticipateStrategy) Params() map[string]interface{} {
	return map[string]interface{}{"participation_rate": s.participationRate}
}

func (s *ParticipateStrategy) Execute(parent order.Order, window []types.OHLCV) ([]Slice, error) {
	if len(window) == 0 {
		return []Slice{{Quantity: parent.Quantity, Price: 0}}, nil
	}

	lastClose := window[len(window)-1].Close

	start := len(window) - participateVolumeBars
	if start < 0 {
		start = 0
	}
	var volumeSum float64
	for _, bar := range window[start:] {
		volumeSum += bar.Volume
	}
	avgVolume := volumeSum / float64(len(window)-start)
	if avgVolume == 0 {
		return []Slice{{Quantity: parent.Quantity, Price: lastClose}}, nil
	}

	sliceSize := avgVolume * s.participationRate
	price := aggressorPrice(parent.Side, lastClose, participateAdjustment)

	full := int(parent.Quantity / sliceSize)
	remainder := parent.Quantity - float64(full)*sliceSize

	slices := make([]Slice, 0, full+1)
	for i := 0; i < full; i++ {
		slices = append(slices, Slice{Quantity: sliceSize, Price: price})
	}
	if remainder > 0 {
		slices = append(slices, Slice{Quantity: remainder, Price: price})
	}
	if len(slices) == 0 {
		slices = append(slices, Slice{Quantity: parent.Quantity, Price: price})
	}
	return slices, nil
}
