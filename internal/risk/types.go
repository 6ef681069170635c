package risk

import (
	"time"

	"github.com/quantpulse/trading-core/internal/position"
)

// Context is the snapshot of portfolio, position and trade data passed into
// a rule's Check. Nil pointer fields mean the value is absent from this
// evaluation, not zero.
type Context struct {
	Symbol         string
	PositionSize   float64
	TradePnL       *float64
	PortfolioValue *float64
	Positions      []position.Position
	Timestamp      time.Time
}

// Violation is an immutable record of one rule breach
type Violation struct {
	Rule      string
	Reason    string
	Details   map[string]interface{}
	Timestamp time.Time
}

// AlertLevel classifies alert severity
type AlertLevel string

const (
	LevelInfo     AlertLevel = "info"
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

// Alert is raised by the monitor for each new violation. Append-only except
// for acknowledgement.
type Alert struct {
	ID           string
	Level        AlertLevel
	Message      string
	Details      map[string]interface{}
	Timestamp    time.Time
	Acknowledged bool
}

// Float returns a pointer for optional Context fields
func Float(v float64) *float64 {
	return &v
}
