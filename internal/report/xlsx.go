package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"pivik/internal/core"
)

const sheetName = "Payment Report"

// XLSXRenderer writes the scope as a single-sheet workbook: one block per
// vendor with its subtotal, then the grand total.
type XLSXRenderer struct{}

var _ Renderer = XLSXRenderer{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXRenderer) Extension() string { return ".xlsx" }

func (XLSXRenderer) Render(ctx context.Context, s Scope) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := &sheetWriter{f: f, row: 1}
	w.put(bold, "Weekly Payment Report")
	w.put(0, fmt.Sprintf("Period: %s to %s", s.Start, s.End))
	w.row++

	for _, g := range s.Groups {
		w.put(bold, g.Vendor)
		w.put(bold, "Date", "Invoice #", "Category", "Amount", "Status", "Proof")
		for _, inv := range g.Invoices {
			proof := ""
			if inv.FileURL != "" {
				proof = ProofsDir + "/" + ProofName(inv)
			}
			number := inv.InvoiceNumber
			if number == "" {
				number = "N/A"
			}
			w.put(0, inv.Date.String(), number, core.CategoryOrOther(inv.Category),
				amountCell(inv.Amount), inv.Status.String(), proof)
		}
		w.put(bold, "", "", "Total for "+g.Vendor, g.Subtotal.Dollars())
		w.row++
	}
	w.put(bold, "", "", "GRAND TOTAL", s.GrandTotal.Dollars())
	if w.err != nil {
		return nil, fmt.Errorf("write cells: %w", w.err)
	}

	for col, width := range map[string]float64{"A": 14, "B": 16, "C": 22, "D": 12, "E": 18, "F": 48} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// amountCell keeps a missing amount visibly distinct from zero.
func amountCell(m *core.Money) any {
	if m == nil {
		return "N/A"
	}
	return m.Dollars()
}

type sheetWriter struct {
	f   *excelize.File
	row int
	err error
}

// put writes one row starting at column A and advances. A zero style leaves
// the default formatting.
func (w *sheetWriter) put(style int, values ...any) {
	if w.err != nil {
		return
	}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetCellValue(sheetName, cell, v); err != nil {
			w.err = err
			return
		}
		if style != 0 {
			if err := w.f.SetCellStyle(sheetName, cell, cell, style); err != nil {
				w.err = err
				return
			}
		}
	}
	w.row++
}
