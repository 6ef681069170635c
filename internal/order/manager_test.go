package order

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/trading-core/internal/errors"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(nil)
}

// TestCreateOrder_MarketOrder tests that a valid market order is created in NEW
func TestCreateOrder_MarketOrder(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	assert.Equal(t, "ORDER_000001", o.ID)
	assert.Equal(t, "CLIENT_ORDER_000001", o.ClientOrderID)
	assert.Equal(t, StatusNew, o.Status)
	assert.Equal(t, 0.0, o.FilledQuantity)
	assert.False(t, o.CreatedAt.IsZero())
}

// TestCreateOrder_Validation tests the rejection rules for malformed intents
func TestCreateOrder_Validation(t *testing.T) {
	m := newTestManager(t)

	_, err := m.CreateOrder("", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, -5, 0, 0, GoodTillCancelled)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.CreateOrder("BTCUSDT", SideBuy, TypeLimit, 10, 0, 0, GoodTillCancelled)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.CreateOrder("BTCUSDT", SideBuy, TypeStop, 10, 0, 0, GoodTillCancelled)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.CreateOrder("BTCUSDT", SideBuy, TypeStopLimit, 10, 100, 0, GoodTillCancelled)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.CreateOrder("BTCUSDT", OrderSide("hold"), TypeMarket, 10, 0, 0, GoodTillCancelled)
	assert.True(t, errors.IsInvalidOrder(err))
}

// TestProcessFill_AverageFillPrice tests the volume-weighted average across partial fills
func TestProcessFill_AverageFillPrice(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	_, err = m.ProcessFill(o.ID, 6, 100.0, 0)
	require.NoError(t, err)

	mid, err := m.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyFilled, mid.Status)
	assert.Equal(t, 6.0, mid.FilledQuantity)
	assert.Equal(t, 100.0, mid.AvgFillPrice)

	_, err = m.ProcessFill(o.ID, 4, 110.0, 0)
	require.NoError(t, err)

	final, err := m.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, final.Status)
	assert.Equal(t, 10.0, final.FilledQuantity)
	assert.Equal(t, 104.0, final.AvgFillPrice)
}

// TestProcessFill_ClampsOverfill tests that a fill larger than the remaining quantity is clamped
func TestProcessFill_ClampsOverfill(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	_, err = m.ProcessFill(o.ID, 8, 100.0, 0)
	require.NoError(t, err)

	fill, err := m.ProcessFill(o.ID, 25, 105.0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, fill.Quantity)

	final, err := m.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, final.Status)
	assert.Equal(t, 10.0, final.FilledQuantity)
}

// TestProcessFill_TerminalOrderRejected tests that fills against a filled order fail
func TestProcessFill_TerminalOrderRejected(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 5, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	_, err = m.ProcessFill(o.ID, 5, 100.0, 0)
	require.NoError(t, err)

	_, err = m.ProcessFill(o.ID, 1, 100.0, 0)
	assert.True(t, errors.IsInvalidState(err))
}

// TestProcessFill_Validation tests fill argument validation
func TestProcessFill_Validation(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 5, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	_, err = m.ProcessFill(o.ID, 0, 100.0, 0)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.ProcessFill(o.ID, 1, -100.0, 0)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.ProcessFill(o.ID, 1, 100.0, -1)
	assert.True(t, errors.IsInvalidOrder(err))

	_, err = m.ProcessFill("ORDER_999999", 1, 100.0, 0)
	assert.True(t, errors.IsNotFound(err))
}

// TestCancelOrder tests cancellation of working and terminal orders
func TestCancelOrder(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeLimit, 10, 100.0, 0, GoodTillCancelled)
	require.NoError(t, err)

	require.NoError(t, m.CancelOrder(o.ID))

	cancelled, err := m.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Empty(t, m.GetActiveOrders())

	// Cancelling again must fail, the order is terminal
	err = m.CancelOrder(o.ID)
	assert.True(t, errors.IsInvalidState(err))
}

// TestCancelOrder_AfterFullFill tests that a filled order cannot be cancelled
func TestCancelOrder_AfterFullFill(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 5, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	_, err = m.ProcessFill(o.ID, 5, 100.0, 0)
	require.NoError(t, err)

	err = m.CancelOrder(o.ID)
	assert.True(t, errors.IsInvalidState(err))
}

// TestCancelOrder_PartiallyFilled tests that a partially filled order can still be cancelled
func TestCancelOrder_PartiallyFilled(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	_, err = m.ProcessFill(o.ID, 4, 100.0, 0)
	require.NoError(t, err)

	require.NoError(t, m.CancelOrder(o.ID))

	cancelled, err := m.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 4.0, cancelled.FilledQuantity)
}

// TestRejectOrder tests the NEW -> REJECTED transition
func TestRejectOrder(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 5, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	require.NoError(t, m.RejectOrder(o.ID))

	rejected, err := m.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	// Rejection is only reachable from NEW
	o2, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 5, 0, 0, GoodTillCancelled)
	require.NoError(t, err)
	_, err = m.ProcessFill(o2.ID, 1, 100.0, 0)
	require.NoError(t, err)
	assert.True(t, errors.IsInvalidState(m.RejectOrder(o2.ID)))
}

// TestModifyOrder tests quantity and price updates on a working order
func TestModifyOrder(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeLimit, 10, 100.0, 0, GoodTillCancelled)
	require.NoError(t, err)

	qty := 20.0
	price := 95.0
	updated, err := m.ModifyOrder(o.ID, &qty, &price)
	require.NoError(t, err)
	assert.Equal(t, 20.0, updated.Quantity)
	assert.Equal(t, 95.0, updated.Price)

	// A nil field is untouched
	qty2 := 25.0
	updated, err = m.ModifyOrder(o.ID, &qty2, nil)
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Quantity)
	assert.Equal(t, 95.0, updated.Price)

	// Quantity below the filled amount is invalid
	_, err = m.ProcessFill(o.ID, 10, 95.0, 0)
	require.NoError(t, err)
	low := 5.0
	_, err = m.ModifyOrder(o.ID, &low, nil)
	assert.True(t, errors.IsInvalidOrder(err))
}

// TestModifyOrder_Terminal tests that terminal orders reject modification
func TestModifyOrder_Terminal(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeLimit, 10, 100.0, 0, GoodTillCancelled)
	require.NoError(t, err)
	require.NoError(t, m.CancelOrder(o.ID))

	qty := 20.0
	_, err = m.ModifyOrder(o.ID, &qty, nil)
	assert.True(t, errors.IsInvalidState(err))
}

// TestRegister_ChildOrder tests registration of externally built child orders
func TestRegister_ChildOrder(t *testing.T) {
	m := newTestManager(t)

	child := Order{
		ID:       "ORDER_000001_CHILD_000",
		Symbol:   "BTCUSDT",
		Side:     SideBuy,
		Type:     TypeLimit,
		Quantity: 5,
		Price:    100.0,
	}
	registered, err := m.Register(child)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, registered.Status)

	_, err = m.Register(child)
	assert.True(t, errors.IsInvalidState(err))

	_, err = m.Register(Order{Symbol: "BTCUSDT", Side: SideBuy, Type: TypeMarket, Quantity: 1})
	assert.True(t, errors.IsInvalidOrder(err))
}

// TestGetOrderHistory tests most-recent-first ordering and symbol filtering
func TestGetOrderHistory(t *testing.T) {
	m := newTestManager(t)

	first, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 1, 0, 0, GoodTillCancelled)
	require.NoError(t, err)
	_, err = m.CreateOrder("ETHUSDT", SideSell, TypeMarket, 2, 0, 0, GoodTillCancelled)
	require.NoError(t, err)
	last, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 3, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	all := m.GetOrderHistory("")
	require.Len(t, all, 3)
	assert.Equal(t, last.ID, all[0].ID)
	assert.Equal(t, first.ID, all[2].ID)

	btc := m.GetOrderHistory("BTCUSDT")
	require.Len(t, btc, 2)
	assert.Equal(t, last.ID, btc[0].ID)
}

// TestGetFillsForOrder tests that fills round-trip through the fill log
func TestGetFillsForOrder(t *testing.T) {
	m := newTestManager(t)

	o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
	require.NoError(t, err)

	f1, err := m.ProcessFill(o.ID, 6, 100.0, 0.6)
	require.NoError(t, err)
	f2, err := m.ProcessFill(o.ID, 4, 110.0, 0.4)
	require.NoError(t, err)

	fills := m.GetFillsForOrder(o.ID)
	require.Len(t, fills, 2)
	assert.Equal(t, f1.Quantity, fills[0].Quantity)
	assert.Equal(t, f1.Price, fills[0].Price)
	assert.Equal(t, f2.Quantity, fills[1].Quantity)
	assert.Equal(t, f2.Price, fills[1].Price)

	var notional float64
	for _, f := range fills {
		notional += f.Value()
	}
	assert.InDelta(t, 6*100.0+4*110.0, notional, 1e-9)
}

// TestGetPortfolioSummary tests aggregate counters and realized P&L from the cost book
func TestGetPortfolioSummary(t *testing.T) {
	m := newTestManager(t)

	buy, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
	require.NoError(t, err)
	_, err = m.ProcessFill(buy.ID, 10, 100.0, 1.0)
	require.NoError(t, err)

	sell, err := m.CreateOrder("BTCUSDT", SideSell, TypeMarket, 10, 0, 0, GoodTillCancelled)
	require.NoError(t, err)
	_, err = m.ProcessFill(sell.ID, 10, 110.0, 1.1)
	require.NoError(t, err)

	s := m.GetPortfolioSummary()
	assert.Equal(t, 0, s.ActiveOrders)
	assert.Equal(t, 2, s.TotalOrders)
	assert.Equal(t, 2, s.TotalFills)
	assert.InDelta(t, 2.1, s.TotalFees, 1e-9)
	assert.InDelta(t, 100.0, s.RealizedPnL, 1e-9)
}

// TestRealizedPnL_ShortCycle tests realization when selling first and covering later
func TestRealizedPnL_ShortCycle(t *testing.T) {
	m := newTestManager(t)

	sell, err := m.CreateOrder("ETHUSDT", SideSell, TypeMarket, 5, 0, 0, GoodTillCancelled)
	require.NoError(t, err)
	_, err = m.ProcessFill(sell.ID, 5, 200.0, 0)
	require.NoError(t, err)

	cover, err := m.CreateOrder("ETHUSDT", SideBuy, TypeMarket, 5, 0, 0, GoodTillCancelled)
	require.NoError(t, err)
	_, err = m.ProcessFill(cover.ID, 5, 180.0, 0)
	require.NoError(t, err)

	s := m.GetPortfolioSummary()
	assert.InDelta(t, 100.0, s.RealizedPnL, 1e-9)
}

// TestConcurrentFills tests that parallel fills across orders keep totals consistent
func TestConcurrentFills(t *testing.T) {
	m := newTestManager(t)

	const orders = 8
	ids := make([]string, orders)
	for i := range ids {
		o, err := m.CreateOrder("BTCUSDT", SideBuy, TypeMarket, 10, 0, 0, GoodTillCancelled)
		require.NoError(t, err)
		ids[i] = o.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				m.ProcessFill(id, 1, 100.0, 0)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		o, err := m.GetOrder(id)
		require.NoError(t, err)
		assert.Equal(t, StatusFilled, o.Status)
		assert.Equal(t, 10.0, o.FilledQuantity)
	}
	assert.Empty(t, m.GetActiveOrders())
}
