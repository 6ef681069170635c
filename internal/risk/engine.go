package risk

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/quantpulse/trading-core/internal/errors"
)

const engineComponent = "risk_rules_engine"

// RulesEngine holds an ordered list of rules and evaluates them against a
// risk context. A rule that panics during Check is reported and skipped; it
// never prevents the remaining rules from running.
type RulesEngine struct {
	mu      sync.Mutex
	rules   []Rule
	enabled bool
	log     *zap.Logger
}

// NewRulesEngine creates an empty rules engine. A nil logger disables
// logging.
func NewRulesEngine(log *zap.Logger) *RulesEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &RulesEngine{enabled: true, log: log}
}

// AddRule appends a rule to the evaluation order
func (e *RulesEngine) AddRule(rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// RemoveRule removes all rules with the given name
func (e *RulesEngine) RemoveRule(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.rules[:0]
	for _, r := range e.rules {
		if r.Name() != name {
			kept = append(kept, r)
		}
	}
	e.rules = kept
}

// GetRule returns the first rule with the given name
func (e *RulesEngine) GetRule(name string) (Rule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.rules {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// CheckRules evaluates all enabled rules against the context and returns
// the violations newly recorded during this evaluation
func (e *RulesEngine) CheckRules(ctx *Context) []Violation {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return nil
	}
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.Unlock()

	var violations []Violation
	for _, rule := range rules {
		if !rule.Enabled() {
			continue
		}

		before := len(rule.Violations())
		violated, err := e.checkRule(rule, ctx)
		if err != nil {
			e.log.Error("rule evaluation failed",
				zap.String("rule", rule.Name()),
				zap.Error(err))
			continue
		}
		if violated {
			violations = append(violations, rule.Violations()[before:]...)
		}
	}
	return violations
}

// checkRule isolates a panicking rule behind a RuleEvaluationError
func (e *RulesEngine) checkRule(rule Rule, ctx *Context) (violated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewRuleEvaluationError(engineComponent, rule.Name(),
				fmt.Errorf("rule panicked: %v", r))
		}
	}()
	return rule.Check(ctx), nil
}

// GetAllViolations returns the accumulated violations of every rule in
// evaluation order
func (e *RulesEngine) GetAllViolations() []Violation {
	e.mu.Lock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.Unlock()

	var out []Violation
	for _, r := range rules {
		out = append(out, r.Violations()...)
	}
	return out
}

// ClearAllViolations clears the violation history of every rule
func (e *RulesEngine) ClearAllViolations() {
	e.mu.Lock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.Unlock()

	for _, r := range rules {
		r.ClearViolations()
	}
}

// EnableRules enables the engine and every rule
func (e *RulesEngine) EnableRules() {
	e.setEnabled(true)
}

// DisableRules disables the engine and every rule
func (e *RulesEngine) DisableRules() {
	e.setEnabled(false)
}

func (e *RulesEngine) setEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.Unlock()

	for _, r := range rules {
		r.SetEnabled(enabled)
	}
}

// CreateDefaultRules wires the five standard rules into the engine
func (e *RulesEngine) CreateDefaultRules(maxPositionSize, maxDailyLoss, maxDrawdownPercent float64) {
	e.AddRule(NewMaxPositionSizeRule(maxPositionSize))
	e.AddRule(NewMaxDailyLossRule(maxDailyLoss))
	e.AddRule(NewMaxDrawdownRule(maxDrawdownPercent))
	e.AddRule(NewStopLossRule())
	e.AddRule(NewTakeProfitRule())

	e.log.Info("default risk rules created", zap.Int("rules", 5))
}
