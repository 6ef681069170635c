package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Order flow metrics
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_orders_total",
			Help: "Total number of orders created",
		},
		[]string{"symbol", "side", "type"},
	)

	ordersByStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_order_status_transitions_total",
			Help: "Order status transitions observed",
		},
		[]string{"status"},
	)

	fillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_fills_total",
			Help: "Total number of fills applied",
		},
		[]string{"symbol", "side"},
	)

	fillValue = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_core_fill_value",
			Help:    "Distribution of fill notional values",
			Buckets: prometheus.ExponentialBuckets(10, 10, 7),
		},
		[]string{"symbol"},
	)

	// Execution metrics
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_executions_total",
			Help: "Total number of algorithmic executions",
		},
		[]string{"algorithm"},
	)

	childOrders = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_core_child_orders_per_execution",
			Help:    "Distribution of child order counts per execution",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"algorithm"},
	)

	// Portfolio metrics
	portfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_core_portfolio_value",
			Help: "Current total portfolio value",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_core_open_positions",
			Help: "Number of currently open positions",
		},
	)

	positionExposure = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_core_position_exposure",
			Help: "Absolute exposure per open position",
		},
		[]string{"symbol"},
	)

	// Risk metrics
	riskAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_risk_alerts_total",
			Help: "Total number of risk alerts raised",
		},
		[]string{"level"},
	)

	ruleViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_rule_violations_total",
			Help: "Total number of risk rule violations",
		},
		[]string{"rule"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_core_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(ordersByStatus)
	prometheus.MustRegister(fillsTotal)
	prometheus.MustRegister(fillValue)
	prometheus.MustRegister(executionsTotal)
	prometheus.MustRegister(childOrders)
	prometheus.MustRegister(portfolioValue)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(positionExposure)
	prometheus.MustRegister(riskAlertsTotal)
	prometheus.MustRegister(ruleViolationsTotal)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordOrder records a new order
func RecordOrder(symbol, side, orderType string) {
	ordersTotal.WithLabelValues(symbol, side, orderType).Inc()
}

// RecordStatusTransition records an order status change
func RecordStatusTransition(status string) {
	ordersByStatus.WithLabelValues(status).Inc()
}

// RecordFill records an applied fill
func RecordFill(symbol, side string, value float64) {
	fillsTotal.WithLabelValues(symbol, side).Inc()
	fillValue.WithLabelValues(symbol).Observe(value)
}

// RecordExecution records an algorithmic execution
func RecordExecution(algorithm string, children int) {
	executionsTotal.WithLabelValues(algorithm).Inc()
	childOrders.WithLabelValues(algorithm).Observe(float64(children))
}

// UpdatePortfolioValue updates the portfolio value gauge
func UpdatePortfolioValue(value float64) {
	portfolioValue.Set(value)
}

// UpdateOpenPositions updates the open position count gauge
func UpdateOpenPositions(count int) {
	openPositions.Set(float64(count))
}

// UpdatePositionExposure updates the exposure gauge for a symbol
func UpdatePositionExposure(symbol string, exposure float64) {
	positionExposure.WithLabelValues(symbol).Set(exposure)
}

// RecordRiskAlert records a raised risk alert
func RecordRiskAlert(level string) {
	riskAlertsTotal.WithLabelValues(level).Inc()
}

// RecordRuleViolation records a risk rule violation
func RecordRuleViolation(rule string) {
	ruleViolationsTotal.WithLabelValues(rule).Inc()
}

// RecordError records an error by category
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
