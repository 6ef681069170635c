package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

type HealthChecker struct {
	mu             sync.RWMutex
	lastOrder      time.Time
	lastFill       time.Time
	activeOrders   int
	criticalAlerts int
	errors         []string
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastOrder      time.Time `json:"last_order"`
	LastFill       time.Time `json:"last_fill"`
	ActiveOrders   int       `json:"active_orders"`
	CriticalAlerts int       `json:"critical_alerts"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// RecordOrderActivity updates the last-order timestamp and active order count
func (h *HealthChecker) RecordOrderActivity(activeOrders int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastOrder = time.Now()
	h.activeOrders = activeOrders
}

// RecordFillActivity updates the last-fill timestamp
func (h *HealthChecker) RecordFillActivity() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFill = time.Now()
}

// SetCriticalAlerts updates the unacknowledged critical alert count
func (h *HealthChecker) SetCriticalAlerts(count int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.criticalAlerts = count
}

// RecordFailure appends an error message to the health report
func (h *HealthChecker) RecordFailure(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if h.criticalAlerts > 0 {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastOrder:      h.lastOrder,
		LastFill:       h.lastFill,
		ActiveOrders:   h.activeOrders,
		CriticalAlerts: h.criticalAlerts,
		Uptime:         time.Since(startTime).String(),
		Errors:         h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
