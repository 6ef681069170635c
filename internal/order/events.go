package order

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FillHandler receives every fill recorded by the manager
type FillHandler func(Fill)

// StatusHandler receives order status transitions
type StatusHandler func(o Order, from, to OrderStatus)

type fillSub struct {
	token   string
	handler FillHandler
}

type statusSub struct {
	token   string
	handler StatusHandler
}

// Publisher delivers order events to subscribers synchronously, in
// subscription order. A panicking subscriber is logged and skipped; it never
// affects other subscribers or the calling operation.
type Publisher struct {
	mu         sync.RWMutex
	fillSubs   []fillSub
	statusSubs []statusSub
	log        *zap.Logger
}

// NewPublisher creates an event publisher. A nil logger disables logging.
func NewPublisher(log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{log: log}
}

// SubscribeFills registers a fill handler and returns an unsubscribe token
func (p *Publisher) SubscribeFills(h FillHandler) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	token := uuid.NewString()
	p.fillSubs = append(p.fillSubs, fillSub{token: token, handler: h})
	return token
}

// UnsubscribeFills removes the fill handler registered under token
func (p *Publisher) UnsubscribeFills(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.fillSubs {
		if sub.token == token {
			p.fillSubs = append(p.fillSubs[:i], p.fillSubs[i+1:]...)
			return
		}
	}
}

// SubscribeStatus registers a status-change handler and returns a token
func (p *Publisher) SubscribeStatus(h StatusHandler) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	token := uuid.NewString()
	p.statusSubs = append(p.statusSubs, statusSub{token: token, handler: h})
	return token
}

// UnsubscribeStatus removes the status handler registered under token
func (p *Publisher) UnsubscribeStatus(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.statusSubs {
		if sub.token == token {
			p.statusSubs = append(p.statusSubs[:i], p.statusSubs[i+1:]...)
			return
		}
	}
}

func (p *Publisher) publishFill(f Fill) {
	p.mu.RLock()
	subs := make([]fillSub, len(p.fillSubs))
	copy(subs, p.fillSubs)
	p.mu.RUnlock()

	for _, sub := range subs {
		p.safeFill(sub, f)
	}
}

func (p *Publisher) publishStatus(o Order, from, to OrderStatus) {
	p.mu.RLock()
	subs := make([]statusSub, len(p.statusSubs))
	copy(subs, p.statusSubs)
	p.mu.RUnlock()

	for _, sub := range subs {
		p.safeStatus(sub, o, from, to)
	}
}

func (p *Publisher) safeFill(sub fillSub, f Fill) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("fill subscriber panicked",
				zap.String("order_id", f.OrderID),
				zap.Any("panic", r))
		}
	}()
	sub.handler(f)
}

func (p *Publisher) safeStatus(sub statusSub, o Order, from, to OrderStatus) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("status subscriber panicked",
				zap.String("order_id", o.ID),
				zap.Any("panic", r))
		}
	}()
	sub.handler(o, from, to)
}
