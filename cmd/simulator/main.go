package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quantpulse/trading-core/internal/config"
	"github.com/quantpulse/trading-core/internal/execution"
	"github.com/quantpulse/trading-core/internal/logger"
	"github.com/quantpulse/trading-core/internal/monitoring"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/internal/position"
	"github.com/quantpulse/trading-core/internal/risk"
	"github.com/quantpulse/trading-core/pkg/reporting"
	"github.com/quantpulse/trading-core/pkg/types"
)

func main() {
	var (
		envFile   = flag.String("env", ".env", "path to env file")
		symbol    = flag.String("symbol", "BTCUSDT", "symbol to simulate")
		algorithm = flag.String("algo", "twap", "execution algorithm (twap, vwap, participate, min_slippage, iceberg)")
		quantity  = flag.Float64("qty", 100, "parent order quantity")
		startPx   = flag.Float64("price", 50000, "starting price for synthetic market data")
		excelOut  = flag.String("excel", "", "write activity workbook to this path")
		csvOut    = flag.Bool("csv", false, "write fill and trade-log CSV files to the results directory")
		jsonOut   = flag.Bool("json", false, "write the risk summary JSON to the results directory")
		serve     = flag.Bool("serve", false, "expose metrics and health endpoints and keep running")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	log.Info("starting trading core simulator",
		zap.String("symbol", *symbol),
		zap.String("algorithm", *algorithm),
		zap.Float64("quantity", *quantity))

	sim, err := newSimulator(cfg, log)
	if err != nil {
		log.Fatal("failed to build simulator", zap.Error(err))
	}

	window := syntheticWindow(*startPx, 64)

	if err := sim.run(*symbol, *algorithm, *quantity, window); err != nil {
		log.Fatal("simulation failed", zap.Error(err))
	}

	sim.report()

	if *excelOut != "" {
		if err := sim.writeExcel(*symbol, *excelOut); err != nil {
			log.Error("failed to write workbook", zap.Error(err))
		} else {
			log.Info("workbook written", zap.String("path", *excelOut))
		}
	}

	if *csvOut || *jsonOut {
		if err := sim.writeReports(*symbol, *csvOut, *jsonOut); err != nil {
			log.Error("failed to write reports", zap.Error(err))
		}
	}

	if *serve {
		sim.serve(cfg)
	}
}

// simulator wires the order, execution, position and risk subsystems together
type simulator struct {
	cfg       *config.Config
	orders    *order.Manager
	engine    *execution.Engine
	positions *position.Manager
	rules     *risk.RulesEngine
	monitor   *risk.Monitor
	handler   *order.SimulatedHandler
	health    *monitoring.HealthChecker
	log       *zap.Logger

	lastPrice float64
}

func newSimulator(cfg *config.Config, log *zap.Logger) (*simulator, error) {
	s := &simulator{
		cfg:       cfg,
		orders:    order.NewManager(log),
		engine:    execution.NewEngine(log),
		positions: position.NewManager(cfg.Portfolio.InitialCapital, cfg.Portfolio.MaxPositionPct, cfg.Portfolio.MaxRiskPct, log),
		rules:     risk.NewRulesEngine(log),
		health:    monitoring.NewHealthChecker(),
		log:       log,
	}

	s.rules.CreateDefaultRules(cfg.Risk.MaxPositionSize, cfg.Risk.MaxDailyLoss, cfg.Risk.MaxDrawdownPercent)
	s.monitor = risk.NewMonitor(s.positions, s.rules, cfg.Risk.CheckInterval, log)
	s.monitor.AddAlertCallback(func(a risk.Alert) {
		monitoring.RecordRiskAlert(string(a.Level))
		log.Warn("risk alert", zap.String("level", string(a.Level)), zap.String("message", a.Message))
	})

	s.handler = order.NewSimulatedHandler(s.orders, func(string) float64 { return s.lastPrice }, cfg.Execution.FeeRate, log)

	// Feed order flow into metrics and health via the event bus.
	s.orders.Events().SubscribeStatus(func(o order.Order, from, to order.OrderStatus) {
		monitoring.RecordStatusTransition(string(to))
		s.health.RecordOrderActivity(len(s.orders.GetActiveOrders()))
	})
	s.orders.Events().SubscribeFills(func(f order.Fill) {
		monitoring.RecordFill(f.Symbol, string(f.Side), f.Value())
		s.health.RecordFillActivity()
	})

	return s, nil
}

// run slices a parent order with the requested algorithm, fills the children
// through the simulated handler and opens the resulting position
func (s *simulator) run(symbol, algorithm string, quantity float64, window []types.OHLCV) error {
	if len(window) > 0 {
		s.lastPrice = window[len(window)-1].Close
	}

	algo, err := execution.ParseAlgorithm(algorithm)
	if err != nil {
		return err
	}

	parent, err := s.orders.CreateOrder(symbol, order.SideBuy, order.TypeMarket, quantity, 0, 0, order.GoodTillCancelled)
	if err != nil {
		return err
	}
	monitoring.RecordOrder(symbol, string(parent.Side), string(parent.Type))

	children, err := s.engine.ExecuteWithStrategy(parent, algo, window, strategyOverrides(algo, s.cfg))
	if err != nil {
		return err
	}
	monitoring.RecordExecution(algo.String(), len(children))

	s.log.Info("parent order sliced",
		zap.String("order_id", parent.ID),
		zap.String("algorithm", algo.String()),
		zap.Int("children", len(children)))

	var filledQty, filledNotional float64
	for _, child := range children {
		registered, err := s.orders.Register(child)
		if err != nil {
			return err
		}
		if err := s.handler.Submit(registered); err != nil {
			s.log.Warn("child order rejected", zap.String("order_id", registered.ID), zap.Error(err))
			continue
		}
		final, err := s.orders.GetOrder(registered.ID)
		if err != nil {
			return err
		}
		filledQty += final.FilledQuantity
		filledNotional += final.FilledQuantity * final.AvgFillPrice
	}

	if filledQty > 0 {
		avgPrice := filledNotional / filledQty
		stop := avgPrice * 0.95
		take := avgPrice * 1.10
		pos := s.positions.OpenPosition(symbol, position.SideBuy, filledQty, avgPrice, stop, take)
		s.positions.UpdatePositionPrice(symbol, s.lastPrice)
		monitoring.UpdatePositionExposure(symbol, pos.Exposure())
	}

	monitoring.UpdatePortfolioValue(s.positions.GetPortfolioValue())
	monitoring.UpdateOpenPositions(len(s.positions.GetAllPositions()))

	alerts := s.monitor.CheckRisk()
	s.health.SetCriticalAlerts(len(s.monitor.GetCriticalAlerts()))
	s.log.Info("risk check complete", zap.Int("alerts", len(alerts)))

	return nil
}

// strategyOverrides maps the configured execution tuning onto the selected
// algorithm's parameter keys
func strategyOverrides(algo execution.Algorithm, cfg *config.Config) map[string]interface{} {
	switch algo {
	case execution.AlgorithmTWAP:
		return map[string]interface{}{
			"time_window_minutes":    cfg.Execution.TWAPWindowMinutes,
			"slice_interval_minutes": cfg.Execution.TWAPSliceMinutes,
		}
	case execution.AlgorithmVWAP:
		return map[string]interface{}{
			"lookback_days": cfg.Execution.VWAPLookbackDays,
		}
	case execution.AlgorithmParticipate:
		return map[string]interface{}{
			"participation_rate": cfg.Execution.ParticipationRate,
		}
	case execution.AlgorithmMinSlippage:
		return map[string]interface{}{
			"volatility_lookback": cfg.Execution.VolatilityLookback,
		}
	case execution.AlgorithmIceberg:
		return map[string]interface{}{
			"display_size": cfg.Execution.IcebergDisplaySize,
		}
	default:
		return nil
	}
}

func (s *simulator) report() {
	console := reporting.NewConsoleReporter()
	console.PrintPortfolioSummary(s.positions.GetSummary(), s.orders.GetPortfolioSummary())
	console.PrintPositions(s.positions.GetAllPositions())
	console.PrintRiskSummary(s.monitor.GetRiskSummary())
	console.PrintExecutionHistory(s.engine.GetExecutionHistory())
}

func (s *simulator) writeExcel(symbol, path string) error {
	excel := reporting.NewExcelReporter()
	return excel.WriteActivityXLSX(
		s.orders.GetOrderHistory(symbol),
		s.orders.GetFillHistory(symbol),
		s.engine.GetExecutionHistory(),
		s.positions.GetTradeLog(),
		path,
	)
}

// writeReports exports CSV and JSON reports into the symbol's results
// directory, one dated file per report
func (s *simulator) writeReports(symbol string, csvOut, jsonOut bool) error {
	dir := reporting.DefaultOutputDir(symbol)
	date := time.Now().Format("20060102")

	if csvOut {
		fillsPath := reporting.TimestampedPath(dir, "fills", date, "csv")
		if err := reporting.WriteFills(s.orders.GetFillHistory(symbol), fillsPath); err != nil {
			return err
		}
		tradesPath := reporting.TimestampedPath(dir, "trades", date, "csv")
		if err := reporting.NewCSVReporter().WriteTradeLogCSV(s.positions.GetTradeLog(), tradesPath); err != nil {
			return err
		}
		s.log.Info("csv reports written", zap.String("fills", fillsPath), zap.String("trades", tradesPath))
	}

	if jsonOut {
		path := reporting.TimestampedPath(dir, "risk_summary", date, "json")
		if err := reporting.WriteRiskSummaryJSON(s.monitor.GetRiskSummary(), path); err != nil {
			return err
		}
		s.log.Info("risk summary written", zap.String("path", path))
	}

	return nil
}

// serve exposes the metrics and health endpoints and runs the periodic risk
// monitor until interrupted
func (s *simulator) serve(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.monitor.Start(ctx)
	defer s.monitor.Stop()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		s.log.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, monitoring.NewMetricsHandler()); err != nil {
			s.log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		s.log.Info("health endpoint listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, s.health); err != nil {
			s.log.Error("health server stopped", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	s.log.Info("shutting down")
}

// syntheticWindow generates a random-walk OHLCV window ending now, one bar
// per minute
func syntheticWindow(startPrice float64, bars int) []types.OHLCV {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	window := make([]types.OHLCV, 0, bars)
	price := startPrice
	now := time.Now()

	for i := 0; i < bars; i++ {
		drift := price * 0.002 * rng.NormFloat64()
		open := price
		close := price + drift
		high := math.Max(open, close) * (1 + 0.0005*rng.Float64())
		low := math.Min(open, close) * (1 - 0.0005*rng.Float64())
		volume := 500 + 1000*rng.Float64()

		window = append(window, types.OHLCV{
			Timestamp: now.Add(-time.Duration(bars-i) * time.Minute),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		})
		price = close
	}
	return window
}
