package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/trading-core/internal/errors"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

func flatWindow(bars int, close, volume float64) []types.OHLCV {
	window := make([]types.OHLCV, bars)
	now := time.Now()
	for i := range window {
		window[i] = types.OHLCV{
			Open:      close,
			High:      close * 1.01,
			Low:       close * 0.99,
			Close:     close,
			Volume:    volume,
			Timestamp: now.Add(time.Duration(i-bars) * time.Minute),
		}
	}
	return window
}

func buyParent(quantity float64) order.Order {
	return order.Order{
		ID:       "ORDER_000001",
		Symbol:   "BTCUSDT",
		Side:     order.SideBuy,
		Type:     order.TypeMarket,
		Quantity: quantity,
	}
}

func sliceSum(slices []Slice) float64 {
	var sum float64
	for _, s := range slices {
		sum += s.Quantity
	}
	return sum
}

// TestParseAlgorithm tests algorithm name resolution
func TestParseAlgorithm(t *testing.T) {
	for name, want := range map[string]Algorithm{
		"twap":         AlgorithmTWAP,
		"VWAP":         AlgorithmVWAP,
		"participate":  AlgorithmParticipate,
		"min_slippage": AlgorithmMinSlippage,
		"minslippage":  AlgorithmMinSlippage,
		"iceberg":      AlgorithmIceberg,
	} {
		got, err := ParseAlgorithm(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseAlgorithm("genetic")
	assert.True(t, errors.IsUnknownStrategy(err))
}

// TestTWAP_QuantityConservation tests that slice quantities sum exactly to the parent
func TestTWAP_QuantityConservation(t *testing.T) {
	s := NewTWAPStrategy(nil)
	window := flatWindow(60, 50000, 1000)

	slices, err := s.Execute(buyParent(100), window)
	require.NoError(t, err)

	assert.Len(t, slices, 12) // 60 minute window / 5 minute interval
	assert.Equal(t, 100.0, sliceSum(slices))
}

// TestTWAP_PricesWalkBackwards tests that slices reference successively older closes
func TestTWAP_PricesWalkBackwards(t *testing.T) {
	window := flatWindow(20, 100, 1000)
	for i := range window {
		window[i].Close = 100 + float64(i)
	}

	s := NewTWAPStrategy(map[string]interface{}{
		"time_window_minutes":    15,
		"slice_interval_minutes": 5,
	})
	slices, err := s.Execute(buyParent(30), window)
	require.NoError(t, err)
	require.Len(t, slices, 3)

	assert.InDelta(t, 119*(1+twapAdjustment), slices[0].Price, 1e-9)
	assert.InDelta(t, 118*(1+twapAdjustment), slices[1].Price, 1e-9)
	assert.InDelta(t, 117*(1+twapAdjustment), slices[2].Price, 1e-9)
}

// TestTWAP_SellDiscount tests that sells adjust the price downward
func TestTWAP_SellDiscount(t *testing.T) {
	s := NewTWAPStrategy(map[string]interface{}{"time_window_minutes": 5})
	window := flatWindow(5, 100, 1000)

	parent := buyParent(10)
	parent.Side = order.SideSell
	slices, err := s.Execute(parent, window)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.InDelta(t, 100*(1-twapAdjustment), slices[0].Price, 1e-9)
}

// TestTWAP_ShortWindowReusesOldestBar tests the clamp when fewer bars than slices exist
func TestTWAP_ShortWindowReusesOldestBar(t *testing.T) {
	window := flatWindow(2, 100, 1000)
	window[0].Close = 90
	window[1].Close = 110

	s := NewTWAPStrategy(map[string]interface{}{
		"time_window_minutes":    20,
		"slice_interval_minutes": 5,
	})
	slices, err := s.Execute(buyParent(40), window)
	require.NoError(t, err)
	require.Len(t, slices, 4)

	assert.InDelta(t, 110*(1+twapAdjustment), slices[0].Price, 1e-9)
	for _, sl := range slices[1:] {
		assert.InDelta(t, 90*(1+twapAdjustment), sl.Price, 1e-9)
	}
}

// TestTWAP_EmptyWindow tests the insufficient-data error
func TestTWAP_EmptyWindow(t *testing.T) {
	s := NewTWAPStrategy(nil)
	_, err := s.Execute(buyParent(100), nil)
	assert.True(t, errors.IsInsufficientData(err))
}

// TestVWAP_SliceCount tests the bar count cap of 20 slices
func TestVWAP_SliceCount(t *testing.T) {
	s := NewVWAPStrategy(nil)

	slices, err := s.Execute(buyParent(100), flatWindow(50, 50000, 1000))
	require.NoError(t, err)
	assert.Len(t, slices, 20)
	assert.InDelta(t, 100.0, sliceSum(slices), 1e-9)

	slices, err = s.Execute(buyParent(100), flatWindow(7, 50000, 1000))
	require.NoError(t, err)
	assert.Len(t, slices, 7)
	assert.InDelta(t, 100.0, sliceSum(slices), 1e-9)
}

// TestVWAP_FollowsCumulativeCurve tests that prices track the cumulative VWAP
func TestVWAP_FollowsCumulativeCurve(t *testing.T) {
	window := []types.OHLCV{
		{High: 102, Low: 98, Close: 100, Volume: 100},
		{High: 112, Low: 108, Close: 110, Volume: 300},
	}
	curve, total := vwapCurve(window)
	require.Equal(t, 400.0, total)
	assert.InDelta(t, 100.0, curve[0], 1e-9)
	assert.InDelta(t, (100.0*100+110.0*300)/400, curve[1], 1e-9)

	s := NewVWAPStrategy(nil)
	slices, err := s.Execute(buyParent(10), window)
	require.NoError(t, err)
	require.Len(t, slices, 2)
	assert.InDelta(t, curve[0]*(1+vwapAdjustment), slices[0].Price, 1e-9)
	assert.InDelta(t, curve[1]*(1+vwapAdjustment), slices[1].Price, 1e-9)
}

// TestVWAP_EmptyWindow tests the best-effort single slice at price zero
func TestVWAP_EmptyWindow(t *testing.T) {
	s := NewVWAPStrategy(nil)
	slices, err := s.Execute(buyParent(100), nil)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 100.0, slices[0].Quantity)
	assert.Equal(t, 0.0, slices[0].Price)
}

// TestVWAP_ZeroVolume tests the single-slice fallback when nothing traded
func TestVWAP_ZeroVolume(t *testing.T) {
	s := NewVWAPStrategy(nil)
	window := flatWindow(10, 100, 0)

	slices, err := s.Execute(buyParent(100), window)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 100.0, slices[0].Quantity)
	assert.InDelta(t, window[9].TypicalPrice(), slices[0].Price, 1e-9)
}

// TestParticipate_SliceSizing tests slice size from trailing average volume
func TestParticipate_SliceSizing(t *testing.T) {
	s := NewParticipateStrategy(nil)
	window := flatWindow(30, 100, 500) // trailing avg volume 500, rate 0.10 -> slice 50

	slices, err := s.Execute(buyParent(125), window)
	require.NoError(t, err)
	require.Len(t, slices, 3)
	assert.Equal(t, 50.0, slices[0].Quantity)
	assert.Equal(t, 50.0, slices[1].Quantity)
	assert.InDelta(t, 25.0, slices[2].Quantity, 1e-9)
	assert.InDelta(t, 125.0, sliceSum(slices), 1e-9)

	want := 100 * (1 + participateAdjustment)
	for _, sl := range slices {
		assert.InDelta(t, want, sl.Price, 1e-9)
	}
}

// TestParticipate_SmallOrder tests a parent smaller than one slice
func TestParticipate_SmallOrder(t *testing.T) {
	s := NewParticipateStrategy(nil)
	window := flatWindow(30, 100, 500)

	slices, err := s.Execute(buyParent(10), window)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 10.0, slices[0].Quantity)
}

// TestParticipate_InvalidRateFallsBack tests clamping of out-of-range rates
func TestParticipate_InvalidRateFallsBack(t *testing.T) {
	s := NewParticipateStrategy(map[string]interface{}{"participation_rate": 1.5})
	assert.Equal(t, 0.10, s.Params()["participation_rate"])

	s = NewParticipateStrategy(map[string]interface{}{"participation_rate": -0.2})
	assert.Equal(t, 0.10, s.Params()["participation_rate"])
}

// TestParticipate_ZeroVolume tests the single slice at the last close
func TestParticipate_ZeroVolume(t *testing.T) {
	s := NewParticipateStrategy(nil)
	window := flatWindow(30, 100, 0)

	slices, err := s.Execute(buyParent(77), window)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 77.0, slices[0].Quantity)
	assert.Equal(t, 100.0, slices[0].Price)
}

// TestParticipate_EmptyWindow tests the best-effort slice at price zero
func TestParticipate_EmptyWindow(t *testing.T) {
	s := NewParticipateStrategy(nil)
	slices, err := s.Execute(buyParent(50), nil)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 0.0, slices[0].Price)
}

// TestMinSlippage_CalmMarket tests the low-volatility slice count and adjustment
func TestMinSlippage_CalmMarket(t *testing.T) {
	s := NewMinSlippageStrategy(nil)
	window := flatWindow(30, 100, 1000) // zero realized volatility

	slices, err := s.Execute(buyParent(5000), window)
	require.NoError(t, err)
	assert.Len(t, slices, 5) // 5000 / 1000
	assert.InDelta(t, 5000.0, sliceSum(slices), 1e-9)
	for _, sl := range slices {
		assert.InDelta(t, 100*(1+calmAdjustment), sl.Price, 1e-9)
	}
}

// TestMinSlippage_VolatileMarket tests the high-volatility branch
func TestMinSlippage_VolatileMarket(t *testing.T) {
	window := flatWindow(30, 100, 1000)
	for i := range window {
		if i%2 == 0 {
			window[i].Close = 100
		} else {
			window[i].Close = 110
		}
	}
	require.Greater(t, annualizedVolatility(window[len(window)-20:]), highVolThreshold)

	s := NewMinSlippageStrategy(nil)
	slices, err := s.Execute(buyParent(1000), window)
	require.NoError(t, err)
	assert.Len(t, slices, 10) // 1000 / 100
	assert.InDelta(t, 1000.0, sliceSum(slices), 1e-9)

	last := window[len(window)-1].Close
	for _, sl := range slices {
		assert.InDelta(t, last*(1+volatileAdjustment), sl.Price, 1e-9)
	}
}

// TestMinSlippage_MinimumSliceCounts tests the floor on slice counts per regime
func TestMinSlippage_MinimumSliceCounts(t *testing.T) {
	s := NewMinSlippageStrategy(nil)
	window := flatWindow(30, 100, 1000)

	slices, err := s.Execute(buyParent(50), window)
	require.NoError(t, err)
	assert.Len(t, slices, 1)
	assert.Equal(t, 50.0, slices[0].Quantity)
}

// TestMinSlippage_ShortWindowFallback tests the single-slice fallback
func TestMinSlippage_ShortWindowFallback(t *testing.T) {
	s := NewMinSlippageStrategy(nil)
	window := flatWindow(5, 100, 1000)

	slices, err := s.Execute(buyParent(5000), window)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 5000.0, slices[0].Quantity)
	assert.InDelta(t, 100*(1+fallbackAdjustment), slices[0].Price, 1e-9)
}

// TestMinSlippage_EmptyWindow tests the insufficient-data error
func TestMinSlippage_EmptyWindow(t *testing.T) {
	s := NewMinSlippageStrategy(nil)
	_, err := s.Execute(buyParent(100), nil)
	assert.True(t, errors.IsInsufficientData(err))
}

// TestIceberg_DisplayAndHiddenSlices tests the tip plus hidden chunk layout
func TestIceberg_DisplayAndHiddenSlices(t *testing.T) {
	s := NewIcebergStrategy(nil)
	window := flatWindow(10, 100, 1000)

	slices, err := s.Execute(buyParent(250), window)
	require.NoError(t, err)
	require.Len(t, slices, 3)

	assert.Equal(t, 100.0, slices[0].Quantity)
	assert.InDelta(t, 100*(1+icebergDisplayedAdjustment), slices[0].Price, 1e-9)

	assert.Equal(t, 100.0, slices[1].Quantity)
	assert.InDelta(t, 50.0, slices[2].Quantity, 1e-9)
	for _, sl := range slices[1:] {
		assert.InDelta(t, 100*(1+icebergHiddenAdjustment), sl.Price, 1e-9)
	}
	assert.InDelta(t, 250.0, sliceSum(slices), 1e-9)
}

// TestIceberg_OrderSmallerThanDisplay tests a parent fitting entirely in the tip
func TestIceberg_OrderSmallerThanDisplay(t *testing.T) {
	s := NewIcebergStrategy(map[string]interface{}{"display_size": 500.0})
	window := flatWindow(10, 100, 1000)

	slices, err := s.Execute(buyParent(80), window)
	require.NoError(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 80.0, slices[0].Quantity)
}

// TestIceberg_EmptyWindow tests the insufficient-data error
func TestIceberg_EmptyWindow(t *testing.T) {
	s := NewIcebergStrategy(nil)
	_, err := s.Execute(buyParent(100), nil)
	assert.True(t, errors.IsInsufficientData(err))
}

// TestEvenSlices tests exact quantity conservation with awkward divisors
func TestEvenSlices(t *testing.T) {
	for _, tc := range []struct {
		quantity float64
		n        int
	}{
		{100, 12},
		{1, 3},
		{0.7, 7},
		{99.99, 13},
	} {
		parts := evenSlices(tc.quantity, tc.n)
		require.Len(t, parts, tc.n)
		var sum float64
		for _, p := range parts {
			sum += p
		}
		assert.Equal(t, tc.quantity, sum, "qty=%v n=%d", tc.quantity, tc.n)
	}
}
