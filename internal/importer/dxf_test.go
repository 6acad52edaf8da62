package importer

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"
)

func saveDrawing(t *testing.T, build func(d *drawing.Drawing)) string {
	t.Helper()
	d := dxf.NewDrawing()
	build(d)
	path := filepath.Join(t.TempDir(), "plates.dxf")
	if err := d.SaveAs(path); err != nil {
		t.Fatalf("failed to save DXF: %v", err)
	}
	return path
}

func rectLines(d *drawing.Drawing, x, y, w, h float64) {
	d.Line(x, y, 0, x+w, y, 0)
	d.Line(x+w, y, 0, x+w, y+h, 0)
	d.Line(x+w, y+h, 0, x, y+h, 0)
	d.Line(x, y+h, 0, x, y, 0)
}

func TestImportDXF_RectanglesAndCircle(t *testing.T) {
	path := saveDrawing(t, func(d *drawing.Drawing) {
		rectLines(d, 0, 0, 300, 200)
		rectLines(d, 1000, 0, 200, 300) // same plate rotated
		rectLines(d, 2000, 0, 150, 150)
		d.Circle(5000, 0, 0, 100)
	})

	result := ImportDXF(path, 10, "S235")

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Plates) != 2 {
		t.Fatalf("expected 2 distinct plates, got %d: %+v", len(result.Plates), result.Plates)
	}

	byKey := map[[2]int]int{}
	for _, p := range result.Plates {
		if p.Key() != "PL10/S235" {
			t.Errorf("unexpected key %s", p.Key())
		}
		byKey[[2]int{p.Width, p.Length}] += p.Quantity
	}
	if byKey[[2]int{200, 300}] != 2 {
		t.Errorf("expected the two 200x300 shapes merged, got %v", byKey)
	}
	// 150x150 rectangle and the 200 mm circle are different rectangles
	if byKey[[2]int{150, 150}]+byKey[[2]int{200, 200}] != 2 {
		t.Errorf("expected square and circle plates, got %v", byKey)
	}
}

func TestImportDXF_InvalidThickness(t *testing.T) {
	result := ImportDXF("unused.dxf", 0, "S235")
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "thickness") {
		t.Errorf("expected thickness error, got %v", result.Errors)
	}
}

func TestImportDXF_FileNotFound(t *testing.T) {
	if result := ImportDXF("/nonexistent/plates.dxf", 10, "S235"); len(result.Errors) == 0 {
		t.Error("expected error for nonexistent file")
	}
}

func TestImportDXF_OpenChain(t *testing.T) {
	path := saveDrawing(t, func(d *drawing.Drawing) {
		d.Line(0, 0, 0, 100, 0, 0)
	})

	result := ImportDXF(path, 10, "S235")
	if len(result.Errors) == 0 {
		t.Error("expected error when no closed shape exists")
	}
}

// ─── Geometry Tests ────────────────────────────────────────

func TestChainSegments(t *testing.T) {
	segs := []segment{
		{point{0, 0}, point{100, 0}},
		{point{100, 50}, point{0, 50}},
		{point{100, 0}, point{100, 50}},
		{point{0, 0}, point{0, 50}}, // reversed direction
	}
	outlines := chainSegments(segs, 0.01)
	if len(outlines) != 1 {
		t.Fatalf("expected 1 outline, got %d", len(outlines))
	}
	if len(outlines[0]) != 4 {
		t.Errorf("expected 4 corners, got %d", len(outlines[0]))
	}
	if a := outlines[0].area(); math.Abs(a-5000) > 1e-6 {
		t.Errorf("expected area 5000, got %f", a)
	}
}

func TestOutlineBounds(t *testing.T) {
	o := outline{{10, 20}, {110, 20}, {110, 70}, {10, 70}}
	w, h := o.bounds()
	if w != 100 || h != 50 {
		t.Errorf("expected 100x50, got %fx%f", w, h)
	}
	if w, h := (outline{}).bounds(); w != 0 || h != 0 {
		t.Error("expected zero bounds for empty outline")
	}
}

func TestBulgeArcPoints(t *testing.T) {
	// A bulge of 1 is a half circle
	pts := bulgeArcPoints(point{0, 0}, point{100, 0}, 1, 16)
	if len(pts) != 17 {
		t.Fatalf("expected 17 points, got %d", len(pts))
	}
	for _, p := range pts {
		r := math.Hypot(p.X-50, p.Y)
		if math.Abs(r-50) > 1e-6 {
			t.Errorf("point %+v not on radius 50", p)
		}
	}
	if !pointsClose(pts[0], point{0, 0}, 1e-6) || !pointsClose(pts[16], point{100, 0}, 1e-6) {
		t.Errorf("arc must start and end at the vertices, got %+v .. %+v", pts[0], pts[16])
	}
}
