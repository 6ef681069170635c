package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantpulse/trading-core/internal/errors"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/pkg/types"
)

// AuditRecord is an immutable record of one strategy execution
type AuditRecord struct {
	ID            string
	ParentOrderID string
	Algorithm     string
	Timestamp     time.Time
	ChildCount    int
	TotalQuantity float64
	Params        map[string]interface{}
	Cancelled     bool
}

// Engine coordinates execution strategies: it resolves the requested
// algorithm, applies caller overrides, materializes child orders from the
// returned slices and keeps an execution audit trail. Slicing itself is pure
// and CPU-bound; the engine only locks around its own history.
type Engine struct {
	mu      sync.Mutex
	history []AuditRecord
	log     *zap.Logger
}

// NewEngine creates an execution engine. A nil logger disables logging.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// newStrategy instantiates the strategy for the algorithm with caller
// overrides applied on top of defaults
func newStrategy(algo Algorithm, overrides map[string]interface{}) (Strategy, error) {
	switch algo {
	case AlgorithmTWAP:
		return NewTWAPStrategy(overrides), nil
	case AlgorithmVWAP:
		return NewVWAPStrategy(overrides), nil
	case AlgorithmParticipate:
		return NewParticipateStrategy(overrides), nil
	case AlgorithmMinSlippage:
		return NewMinSlippageStrategy(overrides), nil
	case AlgorithmIceberg:
		return NewIcebergStrategy(overrides), nil
	default:
		return nil, errors.NewUnknownStrategyError(component, "new_strategy",
			fmt.Sprintf("unknown execution algorithm %d", algo))
	}
}

// ExecuteWithStrategy slices the parent order using the named algorithm and
// returns the child orders. Child ids derive from the parent id plus a
// zero-padded sequence number; slices with a positive price become LIMIT
// orders, others MARKET. The children are not registered with any order
// manager; that is the caller's responsibility.
func (e *Engine) ExecuteWithStrategy(parent order.Order, algo Algorithm, window []types.OHLCV, overrides map[string]interface{}) ([]order.Order, error) {
	strategy, err := newStrategy(algo, overrides)
	if err != nil {
		return nil, err
	}

	slices, err := strategy.Execute(parent, window)
	if err != nil {
		return nil, err
	}

	children := make([]order.Order, 0, len(slices))
	for i, slice := range slices {
		typ := order.TypeMarket
		price := 0.0
		if slice.Price > 0 {
			typ = order.TypeLimit
			price = slice.Price
		}
		children = append(children, order.Order{
			ID:          fmt.Sprintf("%s_CHILD_%03d", parent.ID, i),
			Symbol:      parent.Symbol,
			Side:        parent.Side,
			Type:        typ,
			Quantity:    slice.Quantity,
			Price:       price,
			TimeInForce: order.GoodTillCancelled,
			Status:      order.StatusPendingNew,
			CreatedAt:   time.Now(),
		})
	}

	record := AuditRecord{
		ID:            uuid.NewString(),
		ParentOrderID: parent.ID,
		Algorithm:     algo.String(),
		Timestamp:     time.Now(),
		ChildCount:    len(children),
		TotalQuantity: parent.Quantity,
		Params:        strategy.Params(),
	}

	e.mu.Lock()
	e.history = append(e.history, record)
	e.mu.Unlock()

	e.log.Info("execution sliced",
		zap.String("parent_order_id", parent.ID),
		zap.String("algorithm", algo.String()),
		zap.Int("children", len(children)),
		zap.Float64("total_quantity", parent.Quantity))

	return children, nil
}

// CancelExecution marks the most recent audit record for the parent as
// cancelled. Already-created child orders are untouched; cancelling them is
// the caller's responsibility through the order manager.
func (e *Engine) CancelExecution(parentOrderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ParentOrderID == parentOrderID {
			e.history[i].Cancelled = true
			return nil
		}
	}
	return errors.NewNotFoundError(component, "cancel_execution",
		fmt.Sprintf("no execution record for parent order %s", parentOrderID))
}

// GetExecutionHistory returns a copy of the audit trail, oldest first
func (e *Engine) GetExecutionHistory() []AuditRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]AuditRecord, len(e.history))
	copy(out, e.history)
	return out
}
