package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/piwi3910/barcut/internal/model"
)

// buildTestReport creates a realistic report: one profile plan using a
// remnant and two identical new bars, one plate summary, one failed key.
func buildTestReport() model.Report {
	return model.Report{
		SnapshotSize: 3,
		Plans: []model.Plan{
			{
				MaterialKey:    "HEA-100/S355",
				Type:           model.PlanTypeProfile,
				CanOptimize:    true,
				StandardLength: 12000,
				CutLoss:        3,
				StockUsed: []model.StockUsage{
					{
						UnitID: "R-1", Kind: model.SourceRemnant, OriginalLength: 5000,
						UsedLength: 4003, Waste: 997, Pieces: []int{4000}, PieceIDs: []string{"C1"},
					},
				},
				NewStockNeeded: []model.NewBarGroup{
					{
						StandardLength: 12000, Quantity: 2, Pieces: []int{6000, 5000}, Waste: 994,
						PieceIDs:      [][]string{{"B1-001", "B2-001"}, {"B1-002", "B2-002"}},
						EstimatedCost: decimal.NewFromInt(516),
					},
				},
				Unallocated:  []model.UnallocatedPiece{{PieceID: "X1", Length: 13000}},
				Efficiency:   0.91,
				PurchaseCost: decimal.NewFromInt(516),
			},
			{
				MaterialKey: "IPE/S235",
				Type:        model.PlanTypeProfile,
				Error:       "missing dimensions",
			},
			{
				MaterialKey: "PL10/S235",
				Type:        model.PlanTypePlate,
				CanOptimize: true,
				Plate:       &model.PlateSummary{Thickness: 10, Material: "S235", Count: 4, AreaM2: 0.24, WeightKg: 18.84},
			},
		},
	}
}

func TestExportPDF_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cutlist.pdf")

	if err := ExportPDF(path, buildTestReport(), model.DefaultSettings()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestRenderPDF_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPDF(&buf, buildTestReport(), model.DefaultSettings()); err != nil {
		t.Fatalf("RenderPDF returned error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:8])
	}
}

func TestExportPDF_EmptyReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportPDF(path, model.Report{}, model.DefaultSettings())
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestExportPDF_ManyBars(t *testing.T) {
	report := buildTestReport()
	// Enough existing units to spill onto a second page
	for i := 0; i < 20; i++ {
		report.Plans[0].StockUsed = append(report.Plans[0].StockUsed, model.StockUsage{
			UnitID: "I-" + string(rune('A'+i)), Kind: model.SourceInventory, OriginalLength: 6000,
			UsedLength: 5003, Waste: 997, Pieces: []int{5000}, PieceIDs: []string{"P"},
		})
	}

	var buf bytes.Buffer
	if err := RenderPDF(&buf, report, model.DefaultSettings()); err != nil {
		t.Fatalf("RenderPDF returned error: %v", err)
	}
	if buf.Len() < 500 {
		t.Errorf("PDF seems too small: %d bytes", buf.Len())
	}
}

func TestPlanRows(t *testing.T) {
	rows := planRows(buildTestReport().Plans[0])
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].length != 5000 || rows[0].quantity != 1 {
		t.Errorf("unexpected existing row %+v", rows[0])
	}
	if rows[1].quantity != 2 || rows[1].pieceIDs[0] != "B1-001" {
		t.Errorf("unexpected new bar row %+v", rows[1])
	}
}

func TestLabelFontSize(t *testing.T) {
	if got := labelFontSize(1, 9); got != 4 {
		t.Errorf("expected minimum size 4, got %f", got)
	}
	if got := labelFontSize(200, 9); got != 8 {
		t.Errorf("expected maximum size 8, got %f", got)
	}
}
