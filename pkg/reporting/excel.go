package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/quantpulse/trading-core/internal/execution"
	"github.com/quantpulse/trading-core/internal/order"
	"github.com/quantpulse/trading-core/internal/position"
)

// ExcelStyles holds the style ids used across workbook sheets
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	NumberStyle   int
	DateStyle     int
}

// ExcelReporter writes order, fill and execution records to a workbook
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteActivityXLSX writes the full trading activity to an Excel file with
// Orders, Fills, Executions and Trades sheets
func (r *ExcelReporter) WriteActivityXLSX(orders []order.Order, fills []order.Fill, executions []execution.AuditRecord, trades []position.TradeLogEntry, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const ordersSheet = "Orders"
	const fillsSheet = "Fills"
	const executionsSheet = "Executions"
	const tradesSheet = "Trades"

	fx.SetSheetName(fx.GetSheetName(0), ordersSheet)
	fx.NewSheet(fillsSheet)
	fx.NewSheet(executionsSheet)
	fx.NewSheet(tradesSheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeOrdersSheet(fx, ordersSheet, orders, styles); err != nil {
		return err
	}
	if err := r.writeFillsSheet(fx, fillsSheet, fills, styles); err != nil {
		return err
	}
	if err := r.writeExecutionsSheet(fx, executionsSheet, executions, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, trades, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	// Header style - dark background with white text
	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.NumberStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 4,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.DateStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 22,
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeHeader(fx *excelize.File, sheet string, headers []string, styles ExcelStyles) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelReporter) writeOrdersSheet(fx *excelize.File, sheet string, orders []order.Order, styles ExcelStyles) error {
	headers := []string{"Order ID", "Client ID", "Symbol", "Side", "Type", "Quantity", "Price", "Filled", "Avg Fill Price", "Status", "Created"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, o := range orders {
		row := i + 2
		values := []interface{}{
			o.ID, o.ClientOrderID, o.Symbol, string(o.Side), string(o.Type),
			o.Quantity, o.Price, o.FilledQuantity, o.AvgFillPrice,
			string(o.Status), o.CreatedAt,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			switch col {
			case 5, 7: // Quantity, Filled
				fx.SetCellStyle(sheet, cell, cell, styles.NumberStyle)
			case 6, 8: // Price, Avg Fill Price
				fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle)
			case 10: // Created
				fx.SetCellStyle(sheet, cell, cell, styles.DateStyle)
			}
		}
	}
	return fx.SetColWidth(sheet, "A", "K", 16)
}

func (r *ExcelReporter) writeFillsSheet(fx *excelize.File, sheet string, fills []order.Fill, styles ExcelStyles) error {
	headers := []string{"Order ID", "Symbol", "Side", "Quantity", "Price", "Value", "Fee", "Timestamp"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, f := range fills {
		row := i + 2
		values := []interface{}{
			f.OrderID, f.Symbol, string(f.Side), f.Quantity, f.Price, f.Value(), f.Fee, f.Timestamp,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			switch col {
			case 3: // Quantity
				fx.SetCellStyle(sheet, cell, cell, styles.NumberStyle)
			case 4, 5, 6: // Price, Value, Fee
				fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle)
			case 7: // Timestamp
				fx.SetCellStyle(sheet, cell, cell, styles.DateStyle)
			}
		}
	}
	return fx.SetColWidth(sheet, "A", "H", 16)
}

func (r *ExcelReporter) writeExecutionsSheet(fx *excelize.File, sheet string, executions []execution.AuditRecord, styles ExcelStyles) error {
	headers := []string{"ID", "Parent Order", "Algorithm", "Children", "Quantity", "Cancelled", "Timestamp"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, rec := range executions {
		row := i + 2
		values := []interface{}{
			rec.ID, rec.ParentOrderID, rec.Algorithm, rec.ChildCount,
			rec.TotalQuantity, rec.Cancelled, rec.Timestamp,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			switch col {
			case 4: // Quantity
				fx.SetCellStyle(sheet, cell, cell, styles.NumberStyle)
			case 6: // Timestamp
				fx.SetCellStyle(sheet, cell, cell, styles.DateStyle)
			}
		}
	}
	return fx.SetColWidth(sheet, "A", "G", 18)
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []position.TradeLogEntry, styles ExcelStyles) error {
	headers := []string{"Symbol", "Action", "Side", "Quantity", "Price", "P&L", "Timestamp"}
	if err := r.writeHeader(fx, sheet, headers, styles); err != nil {
		return err
	}

	for i, tr := range trades {
		row := i + 2
		values := []interface{}{
			tr.Symbol, tr.Action, string(tr.Side), tr.Quantity, tr.Price, tr.ProfitLoss, tr.Timestamp,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			switch col {
			case 3: // Quantity
				fx.SetCellStyle(sheet, cell, cell, styles.NumberStyle)
			case 4, 5: // Price, P&L
				fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle)
			case 6: // Timestamp
				fx.SetCellStyle(sheet, cell, cell, styles.DateStyle)
			}
		}
	}
	return fx.SetColWidth(sheet, "A", "G", 16)
}
