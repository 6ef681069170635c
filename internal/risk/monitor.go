package risk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantpulse/trading-core/internal/errors"
	"github.com/quantpulse/trading-core/internal/position"
)

const monitorComponent = "risk_monitor"

// AlertCallback receives every alert raised by the monitor
type AlertCallback func(Alert)

type alertSub struct {
	token    string
	callback AlertCallback
}

// Summary is the composite risk report produced by GetRiskSummary
type Summary struct {
	Timestamp              time.Time
	AlertsTotal24h         int
	AlertsByLevel          map[AlertLevel]int
	UnacknowledgedCritical int
	PortfolioRisk          position.PortfolioRisk
	ViolationsTotal        int
	ViolationsByRule       map[string]int
}

// Monitor wraps a position manager and a rules engine: it periodically
// snapshots portfolio state, evaluates the rules and turns new violations
// into levelled alerts dispatched to subscribers. It owns the alert log and
// never mutates position or order state.
type Monitor struct {
	positions *position.Manager
	rules     *RulesEngine

	mu            sync.Mutex // serializes check cycles and guards the fields below
	alerts        []Alert
	lastCheck     time.Time
	checkInterval time.Duration

	cbMu      sync.RWMutex
	callbacks []alertSub

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup

	log *zap.Logger
}

// NewMonitor creates a risk monitor with the given check interval. A nil
// logger disables logging.
func NewMonitor(positions *position.Manager, rules *RulesEngine, checkInterval time.Duration, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	if checkInterval <= 0 {
		checkInterval = 5 * time.Minute
	}
	return &Monitor{
		positions:     positions,
		rules:         rules,
		checkInterval: checkInterval,
		stop:          make(chan struct{}),
		log:           log,
	}
}

// AddAlertCallback subscribes a callback and returns an unsubscribe token
func (m *Monitor) AddAlertCallback(cb AlertCallback) string {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()

	token := uuid.NewString()
	m.callbacks = append(m.callbacks, alertSub{token: token, callback: cb})
	return token
}

// RemoveAlertCallback unsubscribes the callback registered under token
func (m *Monitor) RemoveAlertCallback(token string) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()

	for i, sub := range m.callbacks {
		if sub.token == token {
			m.callbacks = append(m.callbacks[:i], m.callbacks[i+1:]...)
			return
		}
	}
}

// SetCheckInterval changes the rate limit between check cycles
func (m *Monitor) SetCheckInterval(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkInterval = interval
}

// CheckRisk evaluates the rule set against a consistent snapshot of
// portfolio state and returns the alerts raised. Calls arriving before the
// check interval has elapsed are skipped silently and return nil. Cycles
// never overlap.
func (m *Monitor) CheckRisk() []Alert {
	m.mu.Lock()

	now := time.Now()
	if !m.lastCheck.IsZero() && now.Sub(m.lastCheck) < m.checkInterval {
		m.mu.Unlock()
		return nil
	}
	m.lastCheck = now

	// Snapshot before evaluating so rules never see a partially updated
	// portfolio.
	ctx := &Context{
		PortfolioValue: Float(m.positions.GetPortfolioValue()),
		Positions:      m.positions.GetAllPositions(),
		Timestamp:      now,
	}

	violations := m.rules.CheckRules(ctx)

	newAlerts := make([]Alert, 0, len(violations))
	for _, v := range violations {
		alert := Alert{
			ID:        uuid.NewString(),
			Level:     classifyViolation(v),
			Message:   v.Reason,
			Details:   v.Details,
			Timestamp: v.Timestamp,
		}
		m.alerts = append(m.alerts, alert)
		newAlerts = append(newAlerts, alert)
	}
	m.mu.Unlock()

	for _, alert := range newAlerts {
		m.dispatch(alert)
	}
	return newAlerts
}

// classifyViolation maps rule names to alert levels
func classifyViolation(v Violation) AlertLevel {
	switch {
	case strings.Contains(v.Rule, "MaxDrawdown") || strings.Contains(v.Rule, "MaxDailyLoss"):
		return LevelCritical
	case strings.Contains(v.Rule, "MaxPositionSize") || strings.Contains(v.Rule, "StopLoss"):
		return LevelWarning
	default:
		return LevelInfo
	}
}

// dispatch delivers an alert to every subscriber. A panicking subscriber is
// logged and never interrupts the cycle.
func (m *Monitor) dispatch(alert Alert) {
	m.cbMu.RLock()
	subs := make([]alertSub, len(m.callbacks))
	copy(subs, m.callbacks)
	m.cbMu.RUnlock()

	for _, sub := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("alert callback panicked",
						zap.String("alert_id", alert.ID),
						zap.Any("panic", r))
				}
			}()
			sub.callback(alert)
		}()
	}
}

// Start runs the periodic check loop until ctx is cancelled or Stop is
// called. The loop ticks at the check interval; CheckRisk's own rate limit
// makes manual and periodic checks compose.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.mu.Lock()
		interval := m.checkInterval
		m.mu.Unlock()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.CheckRisk()
			}
		}
	}()
}

// Stop terminates the periodic check loop and waits for it to exit
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// GetRecentAlerts returns alerts raised within the last N hours
func (m *Monitor) GetRecentAlerts(hours int) []Alert {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Alert
	for _, a := range m.alerts {
		if !a.Timestamp.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// GetCriticalAlerts returns all unacknowledged critical alerts
func (m *Monitor) GetCriticalAlerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Alert
	for _, a := range m.alerts {
		if a.Level == LevelCritical && !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// AcknowledgeAlert marks the alert at the given index acknowledged
func (m *Monitor) AcknowledgeAlert(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.alerts) {
		return errors.NewNotFoundError(monitorComponent, "acknowledge_alert",
			fmt.Sprintf("no alert at index %d", index))
	}
	m.alerts[index].Acknowledged = true
	return nil
}

// ClearAlerts empties the alert log
func (m *Monitor) ClearAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = nil
}

// GetRiskSummary builds the composite risk report. It is read-only: calling
// it never raises alerts or records violations.
func (m *Monitor) GetRiskSummary() Summary {
	recent := m.GetRecentAlerts(24)
	critical := m.GetCriticalAlerts()
	violations := m.rules.GetAllViolations()

	byLevel := map[AlertLevel]int{
		LevelCritical: 0,
		LevelWarning:  0,
		LevelInfo:     0,
	}
	for _, a := range recent {
		byLevel[a.Level]++
	}

	byRule := make(map[string]int)
	for _, v := range violations {
		byRule[v.Rule]++
	}

	return Summary{
		Timestamp:              time.Now(),
		AlertsTotal24h:         len(recent),
		AlertsByLevel:          byLevel,
		UnacknowledgedCritical: len(critical),
		PortfolioRisk:          m.positions.GetPortfolioRisk(),
		ViolationsTotal:        len(violations),
		ViolationsByRule:       byRule,
	}
}

// ResetDailyStats resets the daily-loss total and the drawdown peak, e.g.
// at a session boundary
func (m *Monitor) ResetDailyStats() {
	if rule, ok := m.rules.GetRule("MaxDailyLossRule"); ok {
		if daily, ok := rule.(*MaxDailyLossRule); ok {
			daily.ResetDay()
		}
	}
	if rule, ok := m.rules.GetRule("MaxDrawdownRule"); ok {
		if dd, ok := rule.(*MaxDrawdownRule); ok {
			dd.ResetPeak()
		}
	}
	m.log.Info("daily risk stats reset")
}
