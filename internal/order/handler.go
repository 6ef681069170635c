package order

import (
	"fmt"

	"go.uber.org/zap"
)

// ExecutionHandler submits finalized orders to a venue. Fills are reported
// back into the Manager via ProcessFill, synchronously or asynchronously
// depending on the implementation.
type ExecutionHandler interface {
	Submit(o Order) error
	Cancel(orderID string) error
}

// QuoteFunc returns the latest known price for a symbol
type QuoteFunc func(symbol string) float64

// SimulatedHandler fills submitted orders immediately: limit orders at their
// limit price, market orders at the latest quote. Orders that cannot be
// priced are rejected through the manager.
type SimulatedHandler struct {
	manager *Manager
	quote   QuoteFunc
	feeRate float64
	log     *zap.Logger
}

// NewSimulatedHandler creates a handler wired to the given manager. quote
// supplies marks for market orders; feeRate is charged on notional value.
func NewSimulatedHandler(manager *Manager, quote QuoteFunc, feeRate float64, log *zap.Logger) *SimulatedHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SimulatedHandler{
		manager: manager,
		quote:   quote,
		feeRate: feeRate,
		log:     log,
	}
}

// Submit fills the order in full at its resolved price
func (h *SimulatedHandler) Submit(o Order) error {
	price := o.Price
	if price <= 0 && h.quote != nil {
		price = h.quote(o.Symbol)
	}
	if price <= 0 {
		if err := h.manager.RejectOrder(o.ID); err != nil {
			return err
		}
		return fmt.Errorf("no price available for %s", o.Symbol)
	}

	fee := price * o.Quantity * h.feeRate
	_, err := h.manager.ProcessFill(o.ID, o.Quantity, price, fee)
	if err != nil {
		h.log.Warn("simulated fill failed",
			zap.String("order_id", o.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// Cancel forwards to the manager
func (h *SimulatedHandler) Cancel(orderID string) error {
	return h.manager.CancelOrder(orderID)
}
