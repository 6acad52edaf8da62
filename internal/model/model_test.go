package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestProfileSpecKey(t *testing.T) {
	tests := []struct {
		spec ProfileSpec
		want MaterialKey
	}{
		{ProfileSpec{Type: "HEA", Dimensions: "100", Grade: "S355"}, "HEA-100/S355"},
		{ProfileSpec{Type: " hea ", Dimensions: "100", Grade: "s355"}, "HEA-100/S355"},
		{ProfileSpec{Type: "RHS", Dimensions: "100x50x4", Grade: "S355"}, "RHS-100x50x4/S355"},
		{ProfileSpec{Type: "IPE", Grade: "S235"}, "IPE/S235"},
	}
	for _, tt := range tests {
		if got := tt.spec.Key(); got != tt.want {
			t.Errorf("Key(%+v) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestProfileSpecComplete(t *testing.T) {
	if !(ProfileSpec{Type: "HEA", Dimensions: "100", Grade: "S355"}).Complete() {
		t.Error("expected full spec to be complete")
	}
	if (ProfileSpec{Type: "HEA", Dimensions: "100"}).Complete() {
		t.Error("expected spec without grade to be incomplete")
	}
	if (ProfileSpec{Type: " ", Dimensions: "100", Grade: "S355"}).Complete() {
		t.Error("expected blank type to be incomplete")
	}
}

func TestPlatePartKey(t *testing.T) {
	p := NewPlatePart("Base plate", 10, 200, 300, "s235", 4)
	if p.Key() != "PL10/S235" {
		t.Errorf("expected PL10/S235, got %s", p.Key())
	}
	if p.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestNewProfilePart(t *testing.T) {
	p := NewProfilePart("Column", ProfileSpec{Type: "HEA", Dimensions: "200", Grade: "S355"}, 3200, 2)
	if len(p.ID) != 8 {
		t.Errorf("expected 8 char ID, got %q", p.ID)
	}
	if p.Length != 3200 || p.Quantity != 2 {
		t.Errorf("unexpected part %+v", p)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.StandardLength != 12000 {
		t.Errorf("expected 12000 standard length, got %d", s.StandardLength)
	}
	if s.CutLoss != 3 {
		t.Errorf("expected cut loss 3, got %d", s.CutLoss)
	}
	if len(s.StandardLengths) != 2 {
		t.Errorf("expected 2 alternative lengths, got %v", s.StandardLengths)
	}
}

// ─── Stock Tests ───

func TestSourceKindJSON(t *testing.T) {
	data, err := json.Marshal(SourceRemnant)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"REMNANT"` {
		t.Errorf("expected \"REMNANT\", got %s", data)
	}

	var k SourceKind
	if err := json.Unmarshal([]byte(`"inventory"`), &k); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if k != SourceInventory {
		t.Errorf("expected inventory, got %v", k)
	}
	if err := json.Unmarshal([]byte(`"pallet"`), &k); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestStockUnitValue(t *testing.T) {
	u := NewStockUnit(SourceInventory, "HEA-100/S355", 6000, decimal.RequireFromString("21.50"))
	got := u.Value(2000)
	if !got.Equal(decimal.RequireFromString("43")) {
		t.Errorf("expected 43.00, got %s", got)
	}

	u.FixedCost = decimal.NewFromInt(120)
	got = u.Value(1500)
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected fixed cost share 30, got %s", got)
	}

	if !u.Value(0).IsZero() {
		t.Error("expected zero value for zero length")
	}
}

func TestStockUnitAvailable(t *testing.T) {
	u := NewStockUnit(SourceRemnant, "IPE-200/S235", 1500, decimal.Zero)
	if !u.Available() {
		t.Error("new unit should be available")
	}
	u.State = StockConsumed
	if u.Available() {
		t.Error("consumed unit should not be available")
	}
}

func TestStockLedgerFindUnit(t *testing.T) {
	l := StockLedger{Units: []StockUnit{{ID: "a"}, {ID: "b"}}}
	if u := l.FindUnit("b"); u == nil || u.ID != "b" {
		t.Errorf("expected unit b, got %+v", u)
	}
	if l.FindUnit("zz") != nil {
		t.Error("expected nil for missing unit")
	}
}

// ─── Error Tests ───

func TestPlanErrorIs(t *testing.T) {
	err := StockConflictError("HEA-100/S355", "u1")
	if !errors.Is(err, ErrStockConflict) {
		t.Error("expected errors.Is to match ErrStockConflict")
	}
	if errors.Is(err, ErrPieceTooLong) {
		t.Error("did not expect match against ErrPieceTooLong")
	}

	joined := errors.Join(PieceTooLongError("K", PieceDemand{PieceID: "p1", Length: 13000}, 12000), err)
	if !errors.Is(joined, ErrPieceTooLong) || !errors.Is(joined, ErrStockConflict) {
		t.Error("expected joined error to match both kinds")
	}

	var pe *PlanError
	if !errors.As(joined, &pe) {
		t.Fatal("expected errors.As to find a PlanError")
	}
	if pe.PieceID != "p1" {
		t.Errorf("expected first joined error, got %+v", pe)
	}
}

func TestPlanErrorMessage(t *testing.T) {
	err := OverrideOutOfRangeError("IPE-200/S235", "length %d below piece %d", 100, 400)
	want := "override_out_of_range [IPE-200/S235]: length 100 below piece 400"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

// ─── Plan / Report Tests ───

func TestPlanCounts(t *testing.T) {
	p := Plan{
		StockUsed: []StockUsage{
			{Pieces: []int{1000, 2000}, Waste: 300},
		},
		NewStockNeeded: []NewBarGroup{
			{StandardLength: 12000, Quantity: 2, Pieces: []int{5000, 5000}, Waste: 1994},
		},
		Unallocated: []UnallocatedPiece{{PieceID: "x", Length: 13000}},
	}
	if p.NewBarCount() != 2 {
		t.Errorf("expected 2 new bars, got %d", p.NewBarCount())
	}
	if p.PieceCount() != 7 {
		t.Errorf("expected 7 pieces, got %d", p.PieceCount())
	}
	if p.TotalWaste() != 300+2*1994 {
		t.Errorf("unexpected total waste %d", p.TotalWaste())
	}
}

func TestPlanFailed(t *testing.T) {
	if (Plan{CanOptimize: true, Error: "piece too long"}).Failed() {
		t.Error("plan that can still optimize is not failed")
	}
	if !(Plan{Error: "missing grade"}).Failed() {
		t.Error("expected plan with error and no optimization to be failed")
	}
	if (Plan{Plate: &PlateSummary{}}).Failed() {
		t.Error("plate summary is not a failure")
	}
}

func TestReportReplace(t *testing.T) {
	r := Report{Plans: []Plan{
		{MaterialKey: "A", Type: PlanTypeProfile, Efficiency: 0.5},
		{MaterialKey: "PL10/S235", Type: PlanTypePlate},
	}}

	r2 := r.Replace(Plan{MaterialKey: "A", Type: PlanTypeProfile, Efficiency: 0.9})
	if p, _ := r2.Find("A"); p.Efficiency != 0.9 {
		t.Errorf("expected replaced plan, got %+v", p)
	}
	if p, _ := r.Find("A"); p.Efficiency != 0.5 {
		t.Error("original report must not change")
	}

	r3 := r.Replace(Plan{MaterialKey: "B", Type: PlanTypeProfile})
	if len(r3.Plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(r3.Plans))
	}
	if r3.Plans[1].MaterialKey != "B" || r3.Plans[2].Type != PlanTypePlate {
		t.Errorf("expected profiles before plates, got %v", r3.Plans)
	}
}

func TestReportTotalPurchaseCost(t *testing.T) {
	r := Report{Plans: []Plan{
		{PurchaseCost: decimal.RequireFromString("258.00")},
		{PurchaseCost: decimal.RequireFromString("12.50")},
	}}
	if !r.TotalPurchaseCost().Equal(decimal.RequireFromString("270.5")) {
		t.Errorf("unexpected total %s", r.TotalPurchaseCost())
	}
}
