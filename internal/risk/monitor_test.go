package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/trading-core/internal/position"
)

func newTestMonitor(checkInterval time.Duration) (*Monitor, *position.Manager, *RulesEngine) {
	positions := position.NewManager(100000, 0.25, 0.02, nil)
	rules := NewRulesEngine(nil)
	rules.CreateDefaultRules(10000, 5000, 10)
	return NewMonitor(positions, rules, checkInterval, nil), positions, rules
}

// TestMonitor_CheckRisk_RaisesAlerts tests alert creation from stop crossings
func TestMonitor_CheckRisk_RaisesAlerts(t *testing.T) {
	m, positions, _ := newTestMonitor(time.Nanosecond)

	positions.OpenPosition("BTCUSDT", position.SideBuy, 10, 100.0, 95.0, 0)
	positions.UpdatePositionPrice("BTCUSDT", 94.0)

	time.Sleep(time.Microsecond)
	alerts := m.CheckRisk()
	require.Len(t, alerts, 1)
	assert.Equal(t, LevelWarning, alerts[0].Level)
	assert.Equal(t, "Stop loss triggered", alerts[0].Message)
	assert.NotEmpty(t, alerts[0].ID)
}

// TestMonitor_CheckRisk_RateLimited tests that calls inside the interval are skipped
func TestMonitor_CheckRisk_RateLimited(t *testing.T) {
	m, positions, _ := newTestMonitor(time.Hour)

	positions.OpenPosition("BTCUSDT", position.SideBuy, 10, 100.0, 95.0, 0)
	positions.UpdatePositionPrice("BTCUSDT", 94.0)

	first := m.CheckRisk()
	require.Len(t, first, 1)

	// Second call arrives long before the hour elapses
	assert.Nil(t, m.CheckRisk())
	assert.Len(t, m.GetRecentAlerts(1), 1)
}

// TestMonitor_AlertLevels tests classification of violations into levels
func TestMonitor_AlertLevels(t *testing.T) {
	assert.Equal(t, LevelCritical, classifyViolation(Violation{Rule: "MaxDrawdownRule"}))
	assert.Equal(t, LevelCritical, classifyViolation(Violation{Rule: "MaxDailyLossRule"}))
	assert.Equal(t, LevelWarning, classifyViolation(Violation{Rule: "MaxPositionSizeRule"}))
	assert.Equal(t, LevelWarning, classifyViolation(Violation{Rule: "StopLossRule"}))
	assert.Equal(t, LevelInfo, classifyViolation(Violation{Rule: "TakeProfitRule"}))
}

// TestMonitor_Callbacks tests subscription, panic isolation and removal
func TestMonitor_Callbacks(t *testing.T) {
	m, positions, _ := newTestMonitor(time.Nanosecond)

	m.AddAlertCallback(func(a Alert) {
		panic("callback exploded")
	})
	var received []Alert
	token := m.AddAlertCallback(func(a Alert) {
		received = append(received, a)
	})

	positions.OpenPosition("BTCUSDT", position.SideBuy, 10, 100.0, 95.0, 0)
	positions.UpdatePositionPrice("BTCUSDT", 94.0)

	time.Sleep(time.Microsecond)
	m.CheckRisk()
	require.Len(t, received, 1)

	m.RemoveAlertCallback(token)
	positions.UpdatePositionPrice("BTCUSDT", 93.0)
	time.Sleep(time.Microsecond)
	m.CheckRisk()
	assert.Len(t, received, 1)
}

// TestMonitor_AcknowledgeAlert tests acknowledgement and the critical filter
func TestMonitor_AcknowledgeAlert(t *testing.T) {
	m, positions, rules := newTestMonitor(time.Nanosecond)

	// Push the daily loss past its limit for a critical alert
	rule, ok := rules.GetRule("MaxDailyLossRule")
	require.True(t, ok)
	rule.(*MaxDailyLossRule).Check(&Context{TradePnL: Float(-6000)})
	rules.ClearAllViolations()

	positions.OpenPosition("BTCUSDT", position.SideBuy, 10, 100.0, 0, 0)
	time.Sleep(time.Microsecond)
	alerts := m.CheckRisk()
	require.Len(t, alerts, 1)
	require.Equal(t, LevelCritical, alerts[0].Level)

	critical := m.GetCriticalAlerts()
	require.Len(t, critical, 1)

	require.NoError(t, m.AcknowledgeAlert(0))
	assert.Empty(t, m.GetCriticalAlerts())

	assert.Error(t, m.AcknowledgeAlert(99))
	assert.Error(t, m.AcknowledgeAlert(-1))
}

// TestMonitor_GetRiskSummary_Idempotent tests that building the summary twice changes nothing
func TestMonitor_GetRiskSummary_Idempotent(t *testing.T) {
	m, positions, _ := newTestMonitor(time.Nanosecond)

	positions.OpenPosition("BTCUSDT", position.SideBuy, 10, 100.0, 95.0, 0)
	positions.UpdatePositionPrice("BTCUSDT", 94.0)
	time.Sleep(time.Microsecond)
	m.CheckRisk()

	first := m.GetRiskSummary()
	second := m.GetRiskSummary()

	assert.Equal(t, first.AlertsTotal24h, second.AlertsTotal24h)
	assert.Equal(t, first.AlertsByLevel, second.AlertsByLevel)
	assert.Equal(t, first.UnacknowledgedCritical, second.UnacknowledgedCritical)
	assert.Equal(t, first.ViolationsTotal, second.ViolationsTotal)
	assert.Equal(t, first.ViolationsByRule, second.ViolationsByRule)

	assert.Equal(t, 1, first.AlertsTotal24h)
	assert.Equal(t, 1, first.AlertsByLevel[LevelWarning])
	assert.Equal(t, 1, first.ViolationsByRule["StopLossRule"])
}

// TestMonitor_ClearAlerts tests emptying the alert log
func TestMonitor_ClearAlerts(t *testing.T) {
	m, positions, _ := newTestMonitor(time.Nanosecond)

	positions.OpenPosition("BTCUSDT", position.SideBuy, 10, 100.0, 95.0, 0)
	positions.UpdatePositionPrice("BTCUSDT", 94.0)
	time.Sleep(time.Microsecond)
	m.CheckRisk()
	require.NotEmpty(t, m.GetRecentAlerts(1))

	m.ClearAlerts()
	assert.Empty(t, m.GetRecentAlerts(1))
}

// TestMonitor_ResetDailyStats tests resetting the daily loss total and drawdown peak
func TestMonitor_ResetDailyStats(t *testing.T) {
	m, _, rules := newTestMonitor(time.Nanosecond)

	daily, ok := rules.GetRule("MaxDailyLossRule")
	require.True(t, ok)
	daily.(*MaxDailyLossRule).Check(&Context{TradePnL: Float(-1000)})
	require.Equal(t, -1000.0, daily.(*MaxDailyLossRule).DailyPnL())

	m.ResetDailyStats()
	assert.Equal(t, 0.0, daily.(*MaxDailyLossRule).DailyPnL())
}
