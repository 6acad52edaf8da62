package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/barcut/internal/model"
)

// Sheet names of the plan workbook.
const (
	sheetSummary   = "Summary"
	sheetCutList   = "Cut List"
	sheetPurchases = "Purchases"
	sheetPlates    = "Plates"
)

// ExportXLSX writes the plan workbook to path.
func ExportXLSX(path string, report model.Report) error {
	f, err := BuildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

// WriteXLSX streams the plan workbook to w.
func WriteXLSX(w io.Writer, report model.Report) error {
	f, err := BuildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

// BuildWorkbook lays the report out over four sheets: per-key summary, cut
// list per bar, purchases per standard length, and plate totals.
func BuildWorkbook(report model.Report) (*excelize.File, error) {
	if len(report.Plans) == 0 {
		return nil, ErrNothingToExport
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetSummary)
	for _, name := range []string{sheetCutList, sheetPurchases, sheetPlates} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("export xlsx: %w", err)
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	w := sheetWriter{f: f, header: headerStyle}
	w.table(sheetSummary,
		[]string{"Material", "Type", "Pieces", "Existing units", "New bars", "Standard length", "Efficiency", "Purchase cost", "Error"},
		[]float64{22, 10, 8, 14, 10, 16, 12, 14, 50},
		summaryRows(report))
	w.table(sheetCutList,
		[]string{"Material", "Source", "Unit", "Bar length", "Qty", "Pieces (mm)", "Piece IDs", "Waste"},
		[]float64{22, 12, 12, 12, 6, 40, 50, 10},
		cutListRows(report))
	w.table(sheetPurchases,
		[]string{"Material", "Standard length", "Quantity", "Estimated cost"},
		[]float64{22, 16, 10, 16},
		purchaseRows(report))
	w.table(sheetPlates,
		[]string{"Material", "Thickness", "Count", "Area (m2)", "Weight (kg)"},
		[]float64{22, 10, 8, 12, 12},
		plateRows(report))

	if w.err != nil {
		f.Close()
		return nil, fmt.Errorf("export xlsx: %w", w.err)
	}
	return f, nil
}

// sheetWriter keeps the first error so tables can be written back to back.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) table(sheet string, headers []string, widths []float64, rows [][]interface{}) {
	if w.err != nil {
		return
	}
	hdr := make([]interface{}, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	if w.err = w.f.SetSheetRow(sheet, "A1", &hdr); w.err != nil {
		return
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	w.f.SetCellStyle(sheet, "A1", last+"1", w.header)

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if w.err = w.f.SetSheetRow(sheet, cell, &row); w.err != nil {
			return
		}
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		w.f.SetColWidth(sheet, col, col, width)
	}
}

func summaryRows(report model.Report) [][]interface{} {
	rows := make([][]interface{}, 0, len(report.Plans))
	for _, p := range report.Plans {
		cost, _ := p.PurchaseCost.Float64()
		rows = append(rows, []interface{}{
			string(p.MaterialKey), string(p.Type), p.PieceCount(), len(p.StockUsed),
			p.NewBarCount(), p.StandardLength, p.Efficiency, cost, p.Error,
		})
	}
	return rows
}

func cutListRows(report model.Report) [][]interface{} {
	var rows [][]interface{}
	for _, p := range report.Plans {
		for _, u := range p.StockUsed {
			rows = append(rows, []interface{}{
				string(p.MaterialKey), u.Kind.String(), u.UnitID, u.OriginalLength, 1,
				joinInts(u.Pieces), strings.Join(u.PieceIDs, ", "), u.Waste,
			})
		}
		for _, g := range p.NewStockNeeded {
			ids := make([]string, 0, len(g.PieceIDs))
			for _, bar := range g.PieceIDs {
				ids = append(ids, strings.Join(bar, ", "))
			}
			rows = append(rows, []interface{}{
				string(p.MaterialKey), "NEW", "", g.StandardLength, g.Quantity,
				joinInts(g.Pieces), strings.Join(ids, " | "), g.Waste,
			})
		}
		for _, u := range p.Unallocated {
			rows = append(rows, []interface{}{
				string(p.MaterialKey), "UNALLOCATED", "", "", 1, joinInts([]int{u.Length}), u.PieceID, "",
			})
		}
	}
	return rows
}

func purchaseRows(report model.Report) [][]interface{} {
	var rows [][]interface{}
	for _, p := range report.Plans {
		qty := map[int]int{}
		cost := map[int]decimal.Decimal{}
		var order []int
		for _, g := range p.NewStockNeeded {
			if _, ok := qty[g.StandardLength]; !ok {
				order = append(order, g.StandardLength)
			}
			qty[g.StandardLength] += g.Quantity
			cost[g.StandardLength] = cost[g.StandardLength].Add(g.EstimatedCost)
		}
		for _, length := range order {
			c, _ := cost[length].Float64()
			rows = append(rows, []interface{}{string(p.MaterialKey), length, qty[length], c})
		}
	}
	return rows
}

func plateRows(report model.Report) [][]interface{} {
	var rows [][]interface{}
	for _, p := range report.Plans {
		if p.Plate == nil {
			continue
		}
		rows = append(rows, []interface{}{
			string(p.MaterialKey), p.Plate.Thickness, p.Plate.Count, p.Plate.AreaM2, p.Plate.WeightKg,
		})
	}
	return rows
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " + ")
}
