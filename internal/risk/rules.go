package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/quantpulse/trading-core/internal/position"
)

// Rule is a named, enablable predicate over a risk context. Check returns
// true when the rule is violated, having recorded one or more violations
// first. Rules may carry running state (daily P&L, peak value) that is
// explicitly resettable.
type Rule interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	Check(ctx *Context) bool
	Violations() []Violation
	ClearViolations()
}

// baseRule carries the bookkeeping shared by all rules
type baseRule struct {
	name    string
	mu      sync.Mutex
	enabled bool
	history []Violation
}

func newBaseRule(name string) baseRule {
	return baseRule{name: name, enabled: true}
}

func (b *baseRule) Name() string { return b.name }

func (b *baseRule) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

func (b *baseRule) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

func (b *baseRule) Violations() []Violation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Violation, len(b.history))
	copy(out, b.history)
	return out
}

func (b *baseRule) ClearViolations() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}

func (b *baseRule) addViolation(reason string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, Violation{
		Rule:      b.name,
		Reason:    reason,
		Details:   details,
		Timestamp: time.Now(),
	})
}

// MaxPositionSizeRule flags positions larger than a fixed size
type MaxPositionSizeRule struct {
	baseRule
	maxSize float64
}

func NewMaxPositionSizeRule(maxSize float64) *MaxPositionSizeRule {
	return &MaxPositionSizeRule{
		baseRule: newBaseRule("MaxPositionSizeRule"),
		maxSize:  maxSize,
	}
}

func (r *MaxPositionSizeRule) Check(ctx *Context) bool {
	if ctx.PositionSize <= r.maxSize {
		return false
	}
	r.addViolation(
		fmt.Sprintf("Position size %.2f exceeds maximum %.2f", ctx.PositionSize, r.maxSize),
		map[string]interface{}{
			"symbol":        ctx.Symbol,
			"position_size": ctx.PositionSize,
		})
	return true
}

// MaxDailyLossRule accumulates trade P&L across checks and flags when the
// running daily total drops below the loss limit. ResetDay starts a new
// trading day.
type MaxDailyLossRule struct {
	baseRule
	maxDailyLoss float64

	stateMu    sync.Mutex
	dailyPnL   float64
	tradeCount int
}

func NewMaxDailyLossRule(maxDailyLoss float64) *MaxDailyLossRule {
	return &MaxDailyLossRule{
		baseRule:     newBaseRule("MaxDailyLossRule"),
		maxDailyLoss: maxDailyLoss,
	}
}

func (r *MaxDailyLossRule) Check(ctx *Context) bool {
	r.stateMu.Lock()
	if ctx.TradePnL != nil {
		r.dailyPnL += *ctx.TradePnL
		r.tradeCount++
	}
	pnl := r.dailyPnL
	trades := r.tradeCount
	r.stateMu.Unlock()

	if pnl >= -r.maxDailyLoss {
		return false
	}
	r.addViolation(
		fmt.Sprintf("Daily loss %.2f exceeds maximum %.2f", -pnl, r.maxDailyLoss),
		map[string]interface{}{
			"daily_pnl":    pnl,
			"daily_trades": trades,
		})
	return true
}

// ResetDay zeroes the running total and clears violations
func (r *MaxDailyLossRule) ResetDay() {
	r.stateMu.Lock()
	r.dailyPnL = 0
	r.tradeCount = 0
	r.stateMu.Unlock()
	r.ClearViolations()
}

// DailyPnL returns the running daily total
func (r *MaxDailyLossRule) DailyPnL() float64 {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.dailyPnL
}

// MaxDrawdownRule tracks the running peak of portfolio value and flags when
// the decline from the peak exceeds the threshold percentage. ResetPeak
// clears the baseline.
type MaxDrawdownRule struct {
	baseRule
	maxDrawdownPercent float64

	stateMu      sync.Mutex
	peakValue    float64
	currentValue float64
}

func NewMaxDrawdownRule(maxDrawdownPercent float64) *MaxDrawdownRule {
	return &MaxDrawdownRule{
		baseRule:           newBaseRule("MaxDrawdownRule"),
		maxDrawdownPercent: maxDrawdownPercent,
	}
}

func (r *MaxDrawdownRule) Check(ctx *Context) bool {
	r.stateMu.Lock()
	if ctx.PortfolioValue != nil {
		r.currentValue = *ctx.PortfolioValue
		if r.currentValue > r.peakValue {
			r.peakValue = r.currentValue
		}
	}
	peak := r.peakValue
	current := r.currentValue
	r.stateMu.Unlock()

	if peak <= 0 {
		return false
	}
	drawdown := (peak - current) / peak * 100
	if drawdown <= r.maxDrawdownPercent {
		return false
	}
	r.addViolation(
		fmt.Sprintf("Drawdown %.2f%% exceeds maximum %.2f%%", drawdown, r.maxDrawdownPercent),
		map[string]interface{}{
			"peak_value":    peak,
			"current_value": current,
			"drawdown":      drawdown,
		})
	return true
}

// ResetPeak clears the peak baseline and violations
func (r *MaxDrawdownRule) ResetPeak() {
	r.stateMu.Lock()
	r.peakValue = 0
	r.stateMu.Unlock()
	r.ClearViolations()
}

// StopLossRule flags positions whose mark price has crossed their stop
// level: below the stop for longs, above it for shorts. Each crossing
// yields a distinct violation naming the closing action.
type StopLossRule struct {
	baseRule
}

func NewStopLossRule() *StopLossRule {
	return &StopLossRule{baseRule: newBaseRule("StopLossRule")}
}

func (r *StopLossRule) Check(ctx *Context) bool {
	violated := false
	for _, p := range ctx.Positions {
		if p.StopLoss <= 0 || p.CurrentPrice <= 0 {
			continue
		}
		crossed := (p.Side == position.SideBuy && p.CurrentPrice <= p.StopLoss) ||
			(p.Side == position.SideSell && p.CurrentPrice >= p.StopLoss)
		if !crossed {
			continue
		}
		violated = true
		r.addViolation("Stop loss triggered", map[string]interface{}{
			"symbol":        p.Symbol,
			"stop_price":    p.StopLoss,
			"current_price": p.CurrentPrice,
			"action":        string(p.Side.Opposite()),
		})
	}
	return violated
}

// TakeProfitRule flags positions whose mark price has crossed their take
// profit level: above it for longs, below it for shorts
type TakeProfitRule struct {
	baseRule
}

func NewTakeProfitRule() *TakeProfitRule {
	return &TakeProfitRule{baseRule: newBaseRule("TakeProfitRule")}
}

func (r *TakeProfitRule) Check(ctx *Context) bool {
	violated := false
	for _, p := range ctx.Positions {
		if p.TakeProfit <= 0 || p.CurrentPrice <= 0 {
			continue
		}
		crossed := (p.Side == position.SideBuy && p.CurrentPrice >= p.TakeProfit) ||
			(p.Side == position.SideSell && p.CurrentPrice <= p.TakeProfit)
		if !crossed {
			continue
		}
		violated = true
		r.addViolation("Take profit triggered", map[string]interface{}{
			"symbol":        p.Symbol,
			"profit_price":  p.TakeProfit,
			"current_price": p.CurrentPrice,
			"action":        string(p.Side.Opposite()),
		})
	}
	return violated
}
