package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/barcut/internal/model"
)

// LabelInfo holds the data encoded into each label's QR code.
type LabelInfo struct {
	PieceID     string            `json:"piece"`
	MaterialKey model.MaterialKey `json:"material"`
	Length      int               `json:"length_mm"`
	Source      string            `json:"source"`    // unit ID, or "NEW" for purchased bars
	Bar         int               `json:"bar"`       // 1-based bar number within the plan
	Offset      int               `json:"offset_mm"` // start of the piece along the bar
	Remnant     bool              `json:"remnant,omitempty"`
	ParentID    string            `json:"parent,omitempty"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// CollectLabelInfos lists one label per allocated piece, in plan order. New
// bar groups are expanded so every purchased bar gets its own bar number.
func CollectLabelInfos(report model.Report) []LabelInfo {
	var labels []LabelInfo
	for _, plan := range report.Plans {
		if plan.Type != model.PlanTypeProfile {
			continue
		}
		bar := 0
		for _, u := range plan.StockUsed {
			bar++
			labels = append(labels, barLabels(plan.MaterialKey, u.UnitID, bar, u.Pieces, u.PieceIDs, plan.CutLoss)...)
		}
		for _, g := range plan.NewStockNeeded {
			for i := 0; i < g.Quantity; i++ {
				bar++
				var ids []string
				if i < len(g.PieceIDs) {
					ids = g.PieceIDs[i]
				}
				labels = append(labels, barLabels(plan.MaterialKey, "NEW", bar, g.Pieces, ids, plan.CutLoss)...)
			}
		}
	}
	return labels
}

func barLabels(key model.MaterialKey, source string, bar int, pieces []int, ids []string, cutLoss int) []LabelInfo {
	out := make([]LabelInfo, 0, len(pieces))
	offset := 0
	for i, length := range pieces {
		id := fmt.Sprintf("%s#%d.%d", key, bar, i+1)
		if i < len(ids) {
			id = ids[i]
		}
		out = append(out, LabelInfo{
			PieceID:     id,
			MaterialKey: key,
			Length:      length,
			Source:      source,
			Bar:         bar,
			Offset:      offset,
		})
		offset += length + cutLoss
	}
	return out
}

// RemnantLabels lists one label per registered remnant so offcuts can be
// tagged before they go back on the rack.
func RemnantLabels(remnants []model.StockUnit) []LabelInfo {
	labels := make([]LabelInfo, 0, len(remnants))
	for _, r := range remnants {
		labels = append(labels, LabelInfo{
			PieceID:     r.ID,
			MaterialKey: r.MaterialKey,
			Length:      r.Length,
			Source:      r.ID,
			Remnant:     true,
			ParentID:    r.ParentID,
		})
	}
	return labels
}

// ExportLabels generates a PDF of QR-coded labels laid out on a standard
// label sheet (Avery 5160, 3 columns x 10 rows on US Letter).
func ExportLabels(path string, labels []LabelInfo) error {
	if len(labels) == 0 {
		return errors.New("no labels to export")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		x := labelMarginLeft + float64(posOnPage%labelCols)*labelWidth
		y := labelMarginTop + float64(posOnPage/labelCols)*labelHeight

		if err := renderLabel(pdf, x, y, i, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.PieceID, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, n int, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", n)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions(imgName, x+labelWidth-qrSize-labelPadding, y+(labelHeight-qrSize)/2, qrSize, qrSize, false, opts, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, truncate(pdf, info.PieceID, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("%s  %d mm", info.MaterialKey, info.Length), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	where := fmt.Sprintf("Bar %d (%s) @ %d mm", info.Bar, info.Source, info.Offset)
	if info.Remnant {
		where = "From " + info.ParentID
	}
	pdf.CellFormat(textW, 3, where, "", 1, "L", false, 0, "")

	if info.Remnant {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "REMNANT - return to rack", "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// truncate shortens s with an ellipsis until it fits width w.
func truncate(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}
