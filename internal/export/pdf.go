// Package export renders cutting plans as printable PDF cut lists, QR-coded
// piece labels and Excel workbooks.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/barcut/internal/model"
)

// pieceColor represents an RGB fill for a piece segment.
type pieceColor struct {
	R, G, B int
}

var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 8.0
	barCaption   = 5.0
	barHeight    = 9.0
	barSpacing   = 6.0
	barInfoWidth = 45.0
)

// ErrNothingToExport is returned when a report holds no plans.
var ErrNothingToExport = errors.New("no plans to export")

// ExportPDF writes the cut list for report to path.
func ExportPDF(path string, report model.Report, settings model.CutSettings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	if err := RenderPDF(f, report, settings); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderPDF writes a cut list PDF: one section per profile plan with a bar
// diagram for every existing unit and new bar layout, followed by a summary
// page covering purchases, plates and unallocated pieces.
func RenderPDF(w io.Writer, report model.Report, settings model.CutSettings) error {
	if len(report.Plans) == 0 {
		return ErrNothingToExport
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, plan := range report.Plans {
		if plan.Type != model.PlanTypeProfile || plan.Failed() {
			continue
		}
		renderPlanPages(pdf, plan)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, report, settings)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return nil
}

// barRow is one diagram line: an existing unit or a group of identical new bars.
type barRow struct {
	caption  string
	length   int
	pieces   []int
	pieceIDs []string
	waste    int
	quantity int
}

func planRows(plan model.Plan) []barRow {
	rows := make([]barRow, 0, len(plan.StockUsed)+len(plan.NewStockNeeded))
	for _, u := range plan.StockUsed {
		rows = append(rows, barRow{
			caption:  fmt.Sprintf("%s %s", u.Kind, u.UnitID),
			length:   u.OriginalLength,
			pieces:   u.Pieces,
			pieceIDs: u.PieceIDs,
			waste:    u.Waste,
			quantity: 1,
		})
	}
	for i, g := range plan.NewStockNeeded {
		var ids []string
		if len(g.PieceIDs) > 0 {
			ids = g.PieceIDs[0]
		}
		rows = append(rows, barRow{
			caption:  fmt.Sprintf("NEW layout %d", i+1),
			length:   g.StandardLength,
			pieces:   g.Pieces,
			pieceIDs: ids,
			waste:    g.Waste,
			quantity: g.Quantity,
		})
	}
	return rows
}

// renderPlanPages draws the bar diagrams of one plan, continuing onto new
// pages when the rows do not fit.
func renderPlanPages(pdf *fpdf.Fpdf, plan model.Plan) {
	rows := planRows(plan)
	if len(rows) == 0 {
		return
	}

	// Every bar of a plan uses the same scale so lengths compare visually
	longest := 0
	for _, r := range rows {
		longest = max(longest, r.length)
	}
	drawWidth := pageWidth - marginLeft - marginRight - barInfoWidth
	scale := drawWidth / float64(longest)

	page := 0
	y := pageHeight
	for _, r := range rows {
		if y+barCaption+barHeight > pageHeight-marginBottom {
			page++
			pdf.AddPage()
			renderPlanHeader(pdf, plan, page)
			y = drawAreaTop
		}
		drawBar(pdf, r, plan.CutLoss, scale, y)
		y += barCaption + barHeight + barSpacing
	}
}

func renderPlanHeader(pdf *fpdf.Fpdf, plan model.Plan, page int) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := string(plan.MaterialKey)
	if page > 1 {
		title += fmt.Sprintf(" (continued, page %d)", page)
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Pieces: %d | Existing units: %d | New bars: %d x %d mm | Cut loss: %d mm | Efficiency: %.1f%%",
		plan.PieceCount(), len(plan.StockUsed), plan.NewBarCount(), plan.StandardLength, plan.CutLoss, plan.Efficiency*100)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")
}

// drawBar renders one bar as a scaled strip: colored pieces in cut order,
// cut loss gaps between them and the hatched waste at the end.
func drawBar(pdf *fpdf.Fpdf, r barRow, cutLoss int, scale, y float64) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	caption := fmt.Sprintf("%s - %d mm", r.caption, r.length)
	if r.quantity > 1 {
		caption += fmt.Sprintf(" (x%d)", r.quantity)
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, barCaption, caption, "", 0, "L", false, 0, "")

	top := y + barCaption
	barW := float64(r.length) * scale

	// Bar background (steel grey)
	pdf.SetFillColor(190, 195, 200)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.4)
	pdf.Rect(marginLeft, top, barW, barHeight, "FD")

	x := marginLeft
	for i, length := range r.pieces {
		col := pieceColors[i%len(pieceColors)]
		pw := float64(length) * scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.2)
		pdf.Rect(x, top, pw, barHeight, "FD")

		label := fmt.Sprintf("%d", length)
		if i < len(r.pieceIDs) && pdf.GetStringWidth(r.pieceIDs[i]+" "+label)+6 < pw {
			label = r.pieceIDs[i] + " " + label
		}
		pdf.SetFont("Helvetica", "", labelFontSize(pw, barHeight))
		if lw := pdf.GetStringWidth(label); lw < pw-1 {
			pdf.SetXY(x+(pw-lw)/2, top+barHeight/2-2)
			pdf.CellFormat(lw, 4, label, "", 0, "C", false, 0, "")
		}
		x += pw + float64(cutLoss)*scale
	}

	if r.waste > 0 {
		ww := float64(r.waste) * scale
		drawHatchPattern(pdf, marginLeft+barW-ww, top, ww, barHeight)
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)
	pdf.SetXY(pageWidth-marginRight-barInfoWidth+3, top+2)
	used := r.length - r.waste
	pdf.CellFormat(barInfoWidth-3, 5, fmt.Sprintf("used %d / waste %d", used, r.waste), "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// drawHatchPattern draws diagonal lines inside a rectangle to mark waste.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.15)

	spacing := 2.0
	for d := spacing; d < w+h; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)
		pdf.Line(x1, y1, x2, y2)
	}
}

// labelFontSize picks a font size that fits a segment of the given size.
func labelFontSize(w, h float64) float64 {
	size := math.Min(w/6, h*0.9)
	return math.Max(4, math.Min(size, 8))
}

// renderSummaryPage draws the final page with per-key totals, purchases,
// plate summaries and any unallocated pieces.
func renderSummaryPage(pdf *fpdf.Fpdf, report model.Report, settings model.CutSettings) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Cutting Plan Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, y)
	settingsLine := fmt.Sprintf("Cut loss %d mm | Standard length %d mm | Minimum remnant %d mm | Snapshot %d units | Purchase total %s",
		settings.CutLoss, settings.StandardLength, settings.MinRemnantLength, report.SnapshotSize, report.TotalPurchaseCost().StringFixed(2))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 6, settingsLine, "", 0, "L", false, 0, "")
	y += 10

	var profileRows, plateRows [][]string
	var unallocated []string
	for _, p := range report.Plans {
		switch {
		case p.Plate != nil:
			plateRows = append(plateRows, []string{
				string(p.MaterialKey),
				fmt.Sprintf("%d", p.Plate.Count),
				fmt.Sprintf("%.3f", p.Plate.AreaM2),
				fmt.Sprintf("%.1f", p.Plate.WeightKg),
			})
		case p.Failed():
			profileRows = append(profileRows, []string{string(p.MaterialKey), "-", "-", "-", "-", "ERROR: " + p.Error})
		default:
			profileRows = append(profileRows, []string{
				string(p.MaterialKey),
				fmt.Sprintf("%d", p.PieceCount()),
				fmt.Sprintf("%d", len(p.StockUsed)),
				fmt.Sprintf("%d x %d mm", p.NewBarCount(), p.StandardLength),
				fmt.Sprintf("%.1f%%", p.Efficiency*100),
				p.PurchaseCost.StringFixed(2),
			})
			for _, u := range p.Unallocated {
				unallocated = append(unallocated, fmt.Sprintf("- %s %s: %d mm", p.MaterialKey, u.PieceID, u.Length))
			}
		}
	}

	if len(profileRows) > 0 {
		y = drawTable(pdf, y, "Profiles",
			[]string{"Material", "Pieces", "Existing units", "New bars", "Efficiency", "Purchase cost"},
			[]float64{60, 25, 35, 45, 30, 72}, profileRows)
	}
	if len(plateRows) > 0 {
		y = drawTable(pdf, y, "Plates",
			[]string{"Material", "Count", "Area (m2)", "Weight (kg)"},
			[]float64{60, 30, 40, 40}, plateRows)
	}

	if len(unallocated) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unallocated Pieces", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, line := range unallocated {
			if y > pageHeight-marginBottom {
				pdf.AddPage()
				y = marginTop
			}
			pdf.SetXY(marginLeft+5, y)
			pdf.CellFormat(200, 5, line, "", 0, "L", false, 0, "")
			y += 5
		}
	}
}

// drawTable renders a titled table with a shaded header row and returns the
// y position below it.
func drawTable(pdf *fpdf.Fpdf, y float64, title string, headers []string, colWidths []float64, rows [][]string) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, title, "", 0, "L", false, 0, "")
	y += 9

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, row := range rows {
		if y+6 > pageHeight-marginBottom {
			pdf.AddPage()
			y = marginTop
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		xPos = marginLeft
		for j, cell := range row {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}
	return y + 8
}
