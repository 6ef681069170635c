package order

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantpulse/trading-core/internal/errors"
)

const component = "order_manager"

// managedOrder pairs an order with its own mutex so that lifecycle
// operations on one id serialize while distinct ids proceed in parallel.
type managedOrder struct {
	mu sync.Mutex
	o  Order
}

// costBasis tracks a per-symbol average-cost book fed by fills. Buys extend
// the basis, sells realize P&L against it; a sell past flat opens a short
// basis at the fill price.
type costBasis struct {
	qty     float64
	avgCost float64
}

// PortfolioSummary aggregates order-level bookkeeping
type PortfolioSummary struct {
	ActiveOrders int
	TotalOrders  int
	TotalFills   int
	TotalFees    float64
	RealizedPnL  float64
}

// Manager owns all Order and Fill records and enforces the order lifecycle
// state machine
type Manager struct {
	mu      sync.RWMutex
	orders  map[string]*managedOrder
	created []string // ids in creation order
	active  map[string]struct{}
	fills   []Fill
	counter int

	book      map[string]*costBasis
	realized  float64
	totalFees float64

	pub *Publisher
	log *zap.Logger
}

// NewManager creates an order manager. A nil logger disables logging.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		orders: make(map[string]*managedOrder),
		active: make(map[string]struct{}),
		book:   make(map[string]*costBasis),
		pub:    NewPublisher(log),
		log:    log,
	}
}

// Events exposes the manager's publish/subscribe surface
func (m *Manager) Events() *Publisher {
	return m.pub
}

// CreateOrder validates and registers a new order. The order is created in
// PENDING_NEW and transitioned immediately to NEW; the transition is
// published to status subscribers.
func (m *Manager) CreateOrder(symbol string, side OrderSide, typ OrderType, quantity, price, stopPrice float64, tif TimeInForce) (Order, error) {
	if err := validateIntent(symbol, side, typ, quantity, price, stopPrice); err != nil {
		return Order{}, err
	}
	if tif == "" {
		tif = GoodTillCancelled
	}

	m.mu.Lock()
	m.counter++
	id := fmt.Sprintf("ORDER_%06d", m.counter)
	o := Order{
		ID:            id,
		ClientOrderID: "CLIENT_" + id,
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		Quantity:      quantity,
		Price:         price,
		StopPrice:     stopPrice,
		TimeInForce:   tif,
		Status:        StatusNew,
		CreatedAt:     time.Now(),
	}
	mo := &managedOrder{o: o}
	m.orders[id] = mo
	m.created = append(m.created, id)
	m.active[id] = struct{}{}
	m.mu.Unlock()

	m.log.Debug("order created",
		zap.String("order_id", id),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("quantity", quantity))

	m.pub.publishStatus(o, StatusPendingNew, StatusNew)
	return o, nil
}

// Register adds an externally constructed order (typically a child order
// produced by the execution engine) under its own id. The same
// PENDING_NEW -> NEW transition applies.
func (m *Manager) Register(o Order) (Order, error) {
	if err := validateIntent(o.Symbol, o.Side, o.Type, o.Quantity, o.Price, o.StopPrice); err != nil {
		return Order{}, err
	}
	if o.ID == "" {
		return Order{}, errors.NewInvalidOrderError(component, "register", "order id is required")
	}

	m.mu.Lock()
	if _, exists := m.orders[o.ID]; exists {
		m.mu.Unlock()
		return Order{}, errors.NewInvalidStateError(component, "register",
			fmt.Sprintf("order %s already registered", o.ID))
	}
	o.Status = StatusNew
	o.FilledQuantity = 0
	o.AvgFillPrice = 0
	if o.TimeInForce == "" {
		o.TimeInForce = GoodTillCancelled
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	m.orders[o.ID] = &managedOrder{o: o}
	m.created = append(m.created, o.ID)
	m.active[o.ID] = struct{}{}
	m.mu.Unlock()

	m.pub.publishStatus(o, StatusPendingNew, StatusNew)
	return o, nil
}

// CancelOrder transitions a non-terminal order to CANCELLED and removes it
// from the active set
func (m *Manager) CancelOrder(id string) error {
	mo, err := m.lookup(id, "cancel")
	if err != nil {
		return err
	}

	mo.mu.Lock()
	if mo.o.Status.IsTerminal() {
		status := mo.o.Status
		mo.mu.Unlock()
		return errors.NewInvalidStateError(component, "cancel",
			fmt.Sprintf("order %s is %s", id, status))
	}
	from := mo.o.Status
	mo.o.Status = StatusCancelled
	snapshot := mo.o

	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
	mo.mu.Unlock()

	m.log.Debug("order cancelled", zap.String("order_id", id))
	m.pub.publishStatus(snapshot, from, StatusCancelled)
	return nil
}

// RejectOrder transitions a non-terminal order to REJECTED. Used by
// execution handlers when venue submission fails.
func (m *Manager) RejectOrder(id string) error {
	mo, err := m.lookup(id, "reject")
	if err != nil {
		return err
	}

	mo.mu.Lock()
	if !mo.o.Status.CanTransitionTo(StatusRejected) {
		status := mo.o.Status
		mo.mu.Unlock()
		return errors.NewInvalidStateError(component, "reject",
			fmt.Sprintf("order %s is %s", id, status))
	}
	from := mo.o.Status
	mo.o.Status = StatusRejected
	snapshot := mo.o

	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
	mo.mu.Unlock()

	m.pub.publishStatus(snapshot, from, StatusRejected)
	return nil
}

// ModifyOrder mutates quantity and/or price of a working order. Nil leaves a
// field unchanged.
func (m *Manager) ModifyOrder(id string, quantity, price *float64) (Order, error) {
	mo, err := m.lookup(id, "modify")
	if err != nil {
		return Order{}, err
	}

	mo.mu.Lock()
	defer mo.mu.Unlock()

	if mo.o.Status.IsTerminal() {
		return Order{}, errors.NewInvalidStateError(component, "modify",
			fmt.Sprintf("order %s is %s", id, mo.o.Status))
	}
	if quantity != nil {
		if *quantity <= 0 || *quantity < mo.o.FilledQuantity {
			return Order{}, errors.NewInvalidOrderError(component, "modify",
				fmt.Sprintf("quantity %.4f is invalid for order %s", *quantity, id))
		}
		mo.o.Quantity = *quantity
	}
	if price != nil {
		if *price <= 0 {
			return Order{}, errors.NewInvalidOrderError(component, "modify",
				fmt.Sprintf("price %.4f is invalid for order %s", *price, id))
		}
		mo.o.Price = *price
	}
	return mo.o, nil
}

// ProcessFill applies an execution report to a working order. The fill
// quantity is clamped to the remaining unfilled quantity; the running
// volume-weighted average fill price is recomputed; an immutable Fill record
// is appended. The fill event is published first, the status event second.
func (m *Manager) ProcessFill(id string, fillQuantity, fillPrice, fee float64) (Fill, error) {
	if fillQuantity <= 0 {
		return Fill{}, errors.NewInvalidOrderError(component, "process_fill", "fill quantity must be positive")
	}
	if fillPrice <= 0 {
		return Fill{}, errors.NewInvalidOrderError(component, "process_fill", "fill price must be positive")
	}
	if fee < 0 {
		return Fill{}, errors.NewInvalidOrderError(component, "process_fill", "fee must not be negative")
	}

	mo, err := m.lookup(id, "process_fill")
	if err != nil {
		return Fill{}, err
	}

	mo.mu.Lock()
	if mo.o.Status.IsTerminal() {
		status := mo.o.Status
		mo.mu.Unlock()
		return Fill{}, errors.NewInvalidStateError(component, "process_fill",
			fmt.Sprintf("order %s is %s", id, status))
	}

	delta := math.Min(fillQuantity, mo.o.UnfilledQuantity())
	total := mo.o.AvgFillPrice*mo.o.FilledQuantity + fillPrice*delta
	mo.o.FilledQuantity += delta
	mo.o.AvgFillPrice = total / mo.o.FilledQuantity

	from := mo.o.Status
	to := StatusPartiallyFilled
	if mo.o.FilledQuantity >= mo.o.Quantity {
		to = StatusFilled
	}
	mo.o.Status = to

	fill := Fill{
		OrderID:   id,
		Symbol:    mo.o.Symbol,
		Side:      mo.o.Side,
		Quantity:  delta,
		Price:     fillPrice,
		Fee:       fee,
		Timestamp: time.Now(),
	}
	snapshot := mo.o

	m.mu.Lock()
	m.fills = append(m.fills, fill)
	m.totalFees += fee
	m.applyFillToBook(fill)
	if to == StatusFilled {
		delete(m.active, id)
	}
	m.mu.Unlock()
	mo.mu.Unlock()

	m.log.Debug("fill processed",
		zap.String("order_id", id),
		zap.Float64("quantity", delta),
		zap.Float64("price", fillPrice),
		zap.String("status", string(to)))

	m.pub.publishFill(fill)
	m.pub.publishStatus(snapshot, from, to)
	return fill, nil
}

// GetOrder returns a snapshot of the order with the given id
func (m *Manager) GetOrder(id string) (Order, error) {
	mo, err := m.lookup(id, "get_order")
	if err != nil {
		return Order{}, err
	}
	mo.mu.Lock()
	defer mo.mu.Unlock()
	return mo.o, nil
}

// GetActiveOrders returns snapshots of all working orders in creation order
func (m *Manager) GetActiveOrders() []Order {
	m.mu.RLock()
	ids := make([]string, 0, len(m.active))
	for _, id := range m.created {
		if _, ok := m.active[id]; ok {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		if o, err := m.GetOrder(id); err == nil {
			out = append(out, o)
		}
	}
	return out
}

// GetOrderHistory returns all orders most-recent-first, optionally filtered
// by symbol. An empty symbol matches everything.
func (m *Manager) GetOrderHistory(symbol string) []Order {
	m.mu.RLock()
	ids := make([]string, len(m.created))
	copy(ids, m.created)
	m.mu.RUnlock()

	out := make([]Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		o, err := m.GetOrder(ids[i])
		if err != nil {
			continue
		}
		if symbol == "" || o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out
}

// GetFillsForOrder returns the fills recorded against an order, oldest first
func (m *Manager) GetFillsForOrder(id string) []Fill {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Fill
	for _, f := range m.fills {
		if f.OrderID == id {
			out = append(out, f)
		}
	}
	return out
}

// GetFillHistory returns all fills most-recent-first, optionally filtered by
// symbol
func (m *Manager) GetFillHistory(symbol string) []Fill {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Fill, 0, len(m.fills))
	for i := len(m.fills) - 1; i >= 0; i-- {
		if symbol == "" || m.fills[i].Symbol == symbol {
			out = append(out, m.fills[i])
		}
	}
	return out
}

// GetPortfolioSummary aggregates order bookkeeping. Realized P&L comes from
// the per-symbol average-cost book fed by fills.
func (m *Manager) GetPortfolioSummary() PortfolioSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return PortfolioSummary{
		ActiveOrders: len(m.active),
		TotalOrders:  len(m.orders),
		TotalFills:   len(m.fills),
		TotalFees:    m.totalFees,
		RealizedPnL:  m.realized,
	}
}

func (m *Manager) lookup(id, operation string) (*managedOrder, error) {
	m.mu.RLock()
	mo, ok := m.orders[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError(component, operation,
			fmt.Sprintf("order %s does not exist", id))
	}
	return mo, nil
}

// applyFillToBook updates the average-cost book and realized P&L. Caller
// holds m.mu.
func (m *Manager) applyFillToBook(f Fill) {
	b := m.book[f.Symbol]
	if b == nil {
		b = &costBasis{}
		m.book[f.Symbol] = b
	}

	if f.Side == SideBuy {
		if b.qty < 0 {
			cover := math.Min(f.Quantity, -b.qty)
			m.realized += (b.avgCost - f.Price) * cover
			b.qty += cover
			if rest := f.Quantity - cover; rest > 0 {
				b.qty = rest
				b.avgCost = f.Price
			}
		} else {
			b.avgCost = (b.avgCost*b.qty + f.Price*f.Quantity) / (b.qty + f.Quantity)
			b.qty += f.Quantity
		}
	} else {
		if b.qty > 0 {
			closed := math.Min(f.Quantity, b.qty)
			m.realized += (f.Price - b.avgCost) * closed
			b.qty -= closed
			if rest := f.Quantity - closed; rest > 0 {
				b.qty = -rest
				b.avgCost = f.Price
			}
		} else {
			b.avgCost = (b.avgCost*(-b.qty) + f.Price*f.Quantity) / (-b.qty + f.Quantity)
			b.qty -= f.Quantity
		}
	}
}

func validateIntent(symbol string, side OrderSide, typ OrderType, quantity, price, stopPrice float64) error {
	if symbol == "" {
		return errors.NewInvalidOrderError(component, "create", "symbol is required")
	}
	if side != SideBuy && side != SideSell {
		return errors.NewInvalidOrderError(component, "create",
			fmt.Sprintf("unknown side %q", side))
	}
	if quantity <= 0 {
		return errors.NewInvalidOrderError(component, "create",
			fmt.Sprintf("quantity %.4f must be positive", quantity))
	}
	switch typ {
	case TypeMarket:
	case TypeLimit:
		if price <= 0 {
			return errors.NewInvalidOrderError(component, "create", "limit order requires a price")
		}
	case TypeStop, TypeTrailingStop:
		if stopPrice <= 0 {
			return errors.NewInvalidOrderError(component, "create", "stop order requires a stop price")
		}
	case TypeStopLimit:
		if price <= 0 || stopPrice <= 0 {
			return errors.NewInvalidOrderError(component, "create", "stop-limit order requires price and stop price")
		}
	default:
		return errors.NewInvalidOrderError(component, "create",
			fmt.Sprintf("unknown order type %q", typ))
	}
	return nil
}
