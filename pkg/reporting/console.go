package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantpulse/trading-core/internal/execution"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/internal/position"
	"github.com/quantpulse/trading-core/internal/risk"
)

// ConsoleReporter renders portfolio, position, risk and execution state as
// rounded tables
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a console reporter writing to stdout
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a console reporter writing to w
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// PrintPortfolioSummary renders capital and trade statistics
func (r *ConsoleReporter) PrintPortfolioSummary(s position.Summary, o order.PortfolioSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("PORTFOLIO SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Initial Capital", fmt.Sprintf("$%.2f", s.InitialCapital)},
		{"💰 Current Capital", fmt.Sprintf("$%.2f", s.Capital)},
		{"📈 Portfolio Value", fmt.Sprintf("$%.2f", s.PortfolioValue)},
		{"📊 Open Positions", fmt.Sprintf("%d", s.TotalPositions)},
		{"🔄 Trades", fmt.Sprintf("%d", s.TotalTrades)},
		{"✅ Win Rate", fmt.Sprintf("%.1f%%", s.WinRate)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"📋 Total Orders", fmt.Sprintf("%d", o.TotalOrders)},
		{"📋 Active Orders", fmt.Sprintf("%d", o.ActiveOrders)},
		{"💹 Total Fills", fmt.Sprintf("%d", o.TotalFills)},
		{"💵 Realized P&L", fmt.Sprintf("$%.2f", o.RealizedPnL)},
		{"💸 Total Fees", fmt.Sprintf("$%.2f", o.TotalFees)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintPositions renders a row per open position
func (r *ConsoleReporter) PrintPositions(positions []position.Position) {
	if len(positions) == 0 {
		fmt.Fprintln(r.out, "No open positions")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("OPEN POSITIONS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Symbol", "Side", "Quantity", "Entry", "Mark", "Unrealized P&L", "Stop"})
	for _, p := range positions {
		stop := "-"
		if p.StopLoss > 0 {
			stop = fmt.Sprintf("%.2f", p.StopLoss)
		}
		t.AppendRow(table.Row{
			p.Symbol,
			p.Side,
			fmt.Sprintf("%.4f", p.Quantity),
			fmt.Sprintf("%.2f", p.AvgEntryPrice),
			fmt.Sprintf("%.2f", p.CurrentPrice),
			fmt.Sprintf("%+.2f", p.UnrealizedPnL),
			stop,
		})
	}

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintRiskSummary renders alert counts and portfolio risk
func (r *ConsoleReporter) PrintRiskSummary(s risk.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("RISK SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🚨 Alerts (24h)", fmt.Sprintf("%d", s.AlertsTotal24h)},
		{"🔴 Critical", fmt.Sprintf("%d", s.AlertsByLevel[risk.LevelCritical])},
		{"🟡 Warning", fmt.Sprintf("%d", s.AlertsByLevel[risk.LevelWarning])},
		{"🔵 Info", fmt.Sprintf("%d", s.AlertsByLevel[risk.LevelInfo])},
		{"❗ Unacked Critical", fmt.Sprintf("%d", s.UnacknowledgedCritical)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"🎯 Total Exposure", fmt.Sprintf("$%.2f (%.1f%%)", s.PortfolioRisk.TotalExposure, s.PortfolioRisk.ExposurePercent)},
		{"🎯 Stop-Implied Risk", fmt.Sprintf("$%.2f (%.2f%%)", s.PortfolioRisk.TotalRisk, s.PortfolioRisk.RiskPercent)},
		{"📋 Violations", fmt.Sprintf("%d", s.ViolationsTotal)},
	})

	for rule, count := range s.ViolationsByRule {
		t.AppendRow(table.Row{"  " + rule, fmt.Sprintf("%d", count)})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 25, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintExecutionHistory renders the execution audit trail
func (r *ConsoleReporter) PrintExecutionHistory(records []execution.AuditRecord) {
	if len(records) == 0 {
		fmt.Fprintln(r.out, "No executions recorded")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("EXECUTION HISTORY")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Time", "Parent Order", "Algorithm", "Children", "Quantity", "Status"})
	for _, rec := range records {
		status := "done"
		if rec.Cancelled {
			status = "cancelled"
		}
		t.AppendRow(table.Row{
			rec.Timestamp.Format(time.TimeOnly),
			rec.ParentOrderID,
			rec.Algorithm,
			fmt.Sprintf("%d", rec.ChildCount),
			fmt.Sprintf("%.4f", rec.TotalQuantity),
			status,
		})
	}

	t.Render()
	fmt.Fprintln(r.out)
}
