package position

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxTotalExposure caps total portfolio exposure at a fixed fraction of
// capital
const maxTotalExposure = 0.5

// PortfolioRisk aggregates stop-loss-implied risk and exposure across open
// positions
type PortfolioRisk struct {
	TotalRisk       float64
	TotalExposure   float64
	PortfolioValue  float64
	RiskPercent     float64
	ExposurePercent float64
}

// Summary is a snapshot of the manager's aggregate state
type Summary struct {
	InitialCapital float64
	Capital        float64
	PortfolioValue float64
	TotalPositions int
	TotalTrades    int
	TotalRisk      float64
	RiskPercent    float64
	WinRate        float64
}

type managedPosition struct {
	mu sync.Mutex
	p  Position
}

// Manager owns the position map and aggregate capital. Mutations on one
// symbol serialize on that position's lock; mark updates on distinct symbols
// proceed in parallel.
type Manager struct {
	mu             sync.RWMutex
	initialCapital float64
	capital        float64
	maxPositionPct float64 // fraction of capital per position
	maxRiskPct     float64 // fraction of capital risked per trade
	positions      map[string]*managedPosition
	trades         []TradeLogEntry
	log            *zap.Logger
}

// NewManager creates a position manager. maxPositionPct and maxRiskPct are
// fractions of capital (e.g. 0.2 and 0.02). A nil logger disables logging.
func NewManager(initialCapital, maxPositionPct, maxRiskPct float64, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		initialCapital: initialCapital,
		capital:        initialCapital,
		maxPositionPct: maxPositionPct,
		maxRiskPct:     maxRiskPct,
		positions:      make(map[string]*managedPosition),
		log:            log,
	}
}

// Capital returns current capital including realized P&L
func (m *Manager) Capital() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capital
}

// InitialCapital returns the starting capital
func (m *Manager) InitialCapital() float64 {
	return m.initialCapital
}

// CalculatePositionSize sizes a candidate position. With a stop it risks
// riskAmount (default capital * maxRiskPct) against the per-unit stop
// distance; without one it allocates the full per-position budget. The
// result is floored to whole units, raised to at least 1, then capped so
// size * entryPrice stays within the per-position budget.
func (m *Manager) CalculatePositionSize(symbol string, entryPrice, stopLoss, riskAmount float64) float64 {
	if entryPrice <= 0 {
		return 0
	}

	m.mu.RLock()
	capital := m.capital
	m.mu.RUnlock()

	if riskAmount <= 0 {
		riskAmount = capital * m.maxRiskPct
	}

	var units float64
	if stopLoss > 0 && stopLoss != entryPrice {
		units = math.Floor(riskAmount / math.Abs(entryPrice-stopLoss))
	} else {
		units = math.Floor(capital * m.maxPositionPct / entryPrice)
	}

	units = math.Max(1, units)
	maxUnits := math.Floor(capital * m.maxPositionPct / entryPrice)
	return math.Min(units, maxUnits)
}

// OpenPosition creates (or overwrites) the position for the symbol and
// appends a trade-log entry
func (m *Manager) OpenPosition(symbol string, side Side, quantity, entryPrice, stopLoss, takeProfit float64) Position {
	signed := quantity
	if side == SideSell {
		signed = -quantity
	}

	p := Position{
		Symbol:        symbol,
		Quantity:      signed,
		Side:          side,
		AvgEntryPrice: entryPrice,
		CurrentPrice:  entryPrice,
		StopLoss:      stopLoss,
		TakeProfit:    takeProfit,
		OpenedAt:      time.Now(),
	}

	m.mu.Lock()
	m.positions[symbol] = &managedPosition{p: p}
	m.trades = append(m.trades, TradeLogEntry{
		Symbol:    symbol,
		Action:    "open",
		Side:      side,
		Quantity:  quantity,
		Price:     entryPrice,
		Timestamp: time.Now(),
	})
	m.mu.Unlock()

	m.log.Debug("position opened",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("quantity", quantity),
		zap.Float64("entry", entryPrice))
	return p
}

// ClosePosition realizes P&L into capital, logs the trade and removes the
// position. Returns 0 when no position exists for the symbol.
func (m *Manager) ClosePosition(symbol string, exitPrice float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, ok := m.positions[symbol]
	if !ok {
		return 0
	}
	mp.mu.Lock()
	p := mp.p
	mp.mu.Unlock()

	var pnl float64
	if p.Side == SideBuy {
		pnl = (exitPrice - p.AvgEntryPrice) * p.Quantity
	} else {
		pnl = (p.AvgEntryPrice - exitPrice) * math.Abs(p.Quantity)
	}

	m.capital += pnl
	m.trades = append(m.trades, TradeLogEntry{
		Symbol:     symbol,
		Action:     "close",
		Side:       p.Side,
		Quantity:   math.Abs(p.Quantity),
		Price:      exitPrice,
		ProfitLoss: pnl,
		Timestamp:  time.Now(),
	})
	delete(m.positions, symbol)

	m.log.Debug("position closed",
		zap.String("symbol", symbol),
		zap.Float64("exit", exitPrice),
		zap.Float64("pnl", pnl))
	return pnl
}

// UpdatePositionPrice updates the mark price and recomputes unrealized P&L.
// No-op when the symbol has no open position.
func (m *Manager) UpdatePositionPrice(symbol string, price float64) {
	m.mu.RLock()
	mp, ok := m.positions[symbol]
	m.mu.RUnlock()
	if !ok {
		return
	}

	mp.mu.Lock()
	mp.p.CurrentPrice = price
	mp.p.UnrealizedPnL = unrealized(mp.p.Quantity, mp.p.AvgEntryPrice, price)
	mp.mu.Unlock()
}

// SetStopLoss updates the stop level of an open position
func (m *Manager) SetStopLoss(symbol string, stopLoss float64) {
	m.mu.RLock()
	mp, ok := m.positions[symbol]
	m.mu.RUnlock()
	if !ok {
		return
	}
	mp.mu.Lock()
	mp.p.StopLoss = stopLoss
	mp.mu.Unlock()
}

// GetPosition returns a snapshot of the position for symbol
func (m *Manager) GetPosition(symbol string) (Position, bool) {
	m.mu.RLock()
	mp, ok := m.positions[symbol]
	m.mu.RUnlock()
	if !ok {
		return Position{}, false
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.p, true
}

// GetAllPositions returns snapshots of all open positions
func (m *Manager) GetAllPositions() []Position {
	m.mu.RLock()
	managed := make([]*managedPosition, 0, len(m.positions))
	for _, mp := range m.positions {
		managed = append(managed, mp)
	}
	m.mu.RUnlock()

	out := make([]Position, 0, len(managed))
	for _, mp := range managed {
		mp.mu.Lock()
		out = append(out, mp.p)
		mp.mu.Unlock()
	}
	return out
}

// GetPortfolioValue returns total exposure plus residual cash (capital minus
// the entry value still tied up in open positions)
func (m *Manager) GetPortfolioValue() float64 {
	m.mu.RLock()
	capital := m.capital
	positions := make([]*managedPosition, 0, len(m.positions))
	for _, mp := range m.positions {
		positions = append(positions, mp)
	}
	m.mu.RUnlock()

	var exposure, entryValue float64
	for _, mp := range positions {
		mp.mu.Lock()
		exposure += mp.p.Exposure()
		entryValue += mp.p.Quantity * mp.p.AvgEntryPrice
		mp.mu.Unlock()
	}
	return exposure + capital - entryValue
}

// GetPortfolioRisk aggregates stop-implied risk (long positions only,
// clamped at zero) and total exposure, absolute and as a percentage of
// portfolio value
func (m *Manager) GetPortfolioRisk() PortfolioRisk {
	var risk PortfolioRisk
	for _, p := range m.GetAllPositions() {
		if p.StopLoss > 0 && p.Quantity > 0 {
			risk.TotalRisk += math.Max(0, (p.AvgEntryPrice-p.StopLoss)*p.Quantity)
		}
		risk.TotalExposure += p.Exposure()
	}

	risk.PortfolioValue = m.GetPortfolioValue()
	if risk.PortfolioValue > 0 {
		risk.RiskPercent = risk.TotalRisk / risk.PortfolioValue * 100
		risk.ExposurePercent = risk.TotalExposure / risk.PortfolioValue * 100
	}
	return risk
}

// CheckPositionLimits reports whether a candidate position passes the
// per-position budget and the global exposure cap
func (m *Manager) CheckPositionLimits(symbol string, quantity, price float64) bool {
	m.mu.RLock()
	capital := m.capital
	m.mu.RUnlock()

	candidateValue := quantity * price
	if candidateValue > capital*m.maxPositionPct {
		return false
	}

	var currentExposure float64
	for _, p := range m.GetAllPositions() {
		currentExposure += p.Quantity * p.CurrentPrice
	}
	return currentExposure+candidateValue <= capital*maxTotalExposure
}

// GetTradeLog returns a copy of the trade log, oldest first
func (m *Manager) GetTradeLog() []TradeLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]TradeLogEntry, len(m.trades))
	copy(out, m.trades)
	return out
}

// GetSummary returns an aggregate snapshot including the win rate over
// closed trades
func (m *Manager) GetSummary() Summary {
	risk := m.GetPortfolioRisk()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var closed, wins int
	for _, t := range m.trades {
		if t.Action != "close" {
			continue
		}
		closed++
		if t.ProfitLoss > 0 {
			wins++
		}
	}
	winRate := 0.0
	if closed > 0 {
		winRate = float64(wins) / float64(closed) * 100
	}

	return Summary{
		InitialCapital: m.initialCapital,
		Capital:        m.capital,
		PortfolioValue: risk.PortfolioValue,
		TotalPositions: len(m.positions),
		TotalTrades:    len(m.trades),
		TotalRisk:      risk.TotalRisk,
		RiskPercent:    risk.RiskPercent,
		WinRate:        winRate,
	}
}
