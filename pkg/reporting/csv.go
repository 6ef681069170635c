package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/internal/position"
)

// CSVReporter writes fill and trade-log records as CSV files
type CSVReporter struct{}

// NewCSVReporter creates a new CSV reporter
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// WriteFillsCSV writes the fill history to a CSV file, one row per fill plus
// a trailing summary row
func (r *CSVReporter) WriteFillsCSV(fills []order.Fill, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Order_ID",
		"Symbol",
		"Side",
		"Quantity",
		"Price",
		"Value_$",
		"Fee_$",
		"Timestamp",
	}); err != nil {
		return err
	}

	var totalValue, totalFees float64
	for _, fill := range fills {
		totalValue += fill.Value()
		totalFees += fill.Fee

		row := []string{
			fill.OrderID,
			fill.Symbol,
			string(fill.Side),
			fmt.Sprintf("%.8f", fill.Quantity),
			fmt.Sprintf("%.8f", fill.Price),
			fmt.Sprintf("$%.2f", fill.Value()),
			fmt.Sprintf("$%.4f", fill.Fee),
			fill.Timestamp.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("SUMMARY: total_fills=%d; total_value=$%.2f; total_fees=$%.4f",
		len(fills), totalValue, totalFees)
	summaryRow := make([]string, 8)
	summaryRow[7] = summary
	return w.Write(summaryRow)
}

// WriteTradeLogCSV writes the position trade log to a CSV file
func (r *CSVReporter) WriteTradeLogCSV(trades []position.TradeLogEntry, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Symbol",
		"Action",
		"Side",
		"Quantity",
		"Price",
		"PnL_$",
		"Win_Loss",
		"Timestamp",
	}); err != nil {
		return err
	}

	var totalPnL float64
	var closed, wins int
	for _, t := range trades {
		winLoss := ""
		if t.Action == "close" {
			closed++
			winLoss = "W"
			if t.ProfitLoss < 0 {
				winLoss = "L"
			} else if t.ProfitLoss > 0 {
				wins++
			}
			totalPnL += t.ProfitLoss
		}

		row := []string{
			t.Symbol,
			t.Action,
			string(t.Side),
			fmt.Sprintf("%.8f", t.Quantity),
			fmt.Sprintf("%.8f", t.Price),
			fmt.Sprintf("$%.2f", t.ProfitLoss),
			winLoss,
			t.Timestamp.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	winRate := 0.0
	if closed > 0 {
		winRate = float64(wins) / float64(closed) * 100
	}
	summary := fmt.Sprintf("SUMMARY: total_pnl=$%.2f; closed_trades=%d; win_rate=%.1f%%",
		totalPnL, closed, winRate)
	summaryRow := make([]string, 8)
	summaryRow[7] = summary
	return w.Write(summaryRow)
}

// WriteFills writes fills to path, delegating to the Excel writer when the
// extension asks for a workbook
func WriteFills(fills []order.Fill, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return NewExcelReporter().WriteActivityXLSX(nil, fills, nil, nil, path)
	}
	return NewCSVReporter().WriteFillsCSV(fills, path)
}
