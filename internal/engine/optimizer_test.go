package engine

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/barcut/internal/model"
)

var hea100 = model.ProfileSpec{Type: "HEA", Dimensions: "100", Grade: "S355"}

func defaultTestSettings() model.CutSettings {
	s := model.DefaultSettings()
	// Simplify for testing: no saw kerf
	s.CutLoss = 0
	return s
}

func part(id string, spec model.ProfileSpec, length, qty int) model.ProfilePart {
	return model.ProfilePart{ID: id, Label: id, Profile: spec, Length: length, Quantity: qty}
}

func unit(id string, kind model.SourceKind, key model.MaterialKey, length int) model.StockUnit {
	return model.StockUnit{ID: id, Kind: kind, MaterialKey: key, Length: length, State: model.StockAvailable}
}

func TestPlan_ScenarioA_RemnantThenInventory(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	req := Request{
		Profiles: []model.ProfilePart{
			part("p1", hea100, 4000, 1),
			part("p2", hea100, 3000, 1),
			part("p3", hea100, 2500, 1),
		},
		Snapshot: []model.StockUnit{
			unit("inv", model.SourceInventory, "HEA-100/S355", 12000),
			unit("rem", model.SourceRemnant, "HEA-100/S355", 5000),
		},
	}

	report := opt.Plan(req)
	require.Len(t, report.Plans, 1)
	plan := report.Plans[0]

	assert.True(t, plan.CanOptimize)
	assert.Empty(t, plan.NewStockNeeded)
	assert.Empty(t, plan.Unallocated)
	require.Len(t, plan.StockUsed, 2)

	rem := plan.StockUsed[0]
	assert.Equal(t, "rem", rem.UnitID)
	assert.Equal(t, model.SourceRemnant, rem.Kind)
	assert.Equal(t, []int{4000}, rem.Pieces)
	assert.Equal(t, 4000, rem.UsedLength)
	assert.Equal(t, 1000, rem.Waste)

	inv := plan.StockUsed[1]
	assert.Equal(t, "inv", inv.UnitID)
	assert.Equal(t, []int{3000, 2500}, inv.Pieces)
	assert.Equal(t, 5500, inv.UsedLength)
	assert.Equal(t, 6500, inv.Waste)

	// Efficiency counts the full length of every unit taken off the rack
	assert.InDelta(t, 9500.0/17000.0, plan.Efficiency, 1e-9)
	assert.Equal(t, 2, report.SnapshotSize)
	assert.Len(t, report.Snapshot, 2)
}

func TestPlan_ScenarioB_PieceTooLong(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	req := Request{Profiles: []model.ProfilePart{part("long", hea100, 13000, 1)}}

	plan := opt.Plan(req).Plans[0]

	assert.True(t, plan.CanOptimize)
	assert.Empty(t, plan.NewStockNeeded)
	assert.Empty(t, plan.StockUsed)
	require.Len(t, plan.Unallocated, 1)
	assert.Equal(t, 13000, plan.Unallocated[0].Length)
	assert.Equal(t, 0.0, plan.Efficiency)
	assert.NotEmpty(t, plan.Error)
	require.Len(t, plan.Errors, 1)
	assert.ErrorIs(t, plan.Errors[0], model.ErrPieceTooLong)
	assert.Equal(t, "long", plan.Errors[0].PieceID)
}

func TestPlan_LongPieceFitsLongerStockUnit(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	req := Request{
		Profiles: []model.ProfilePart{part("long", hea100, 13000, 1)},
		Snapshot: []model.StockUnit{unit("u15", model.SourceInventory, "HEA-100/S355", 15000)},
	}

	plan := opt.Plan(req).Plans[0]
	assert.Empty(t, plan.Unallocated)
	require.Len(t, plan.StockUsed, 1)
	assert.Equal(t, 2000, plan.StockUsed[0].Waste)
}

func TestPlan_NewBarsGroupedByLayout(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	req := Request{Profiles: []model.ProfilePart{part("p", hea100, 5000, 5)}}

	plan := opt.Plan(req).Plans[0]
	require.Len(t, plan.NewStockNeeded, 2)

	full := plan.NewStockNeeded[0]
	assert.Equal(t, 2, full.Quantity)
	assert.Equal(t, []int{5000, 5000}, full.Pieces)
	assert.Equal(t, 2000, full.Waste)
	assert.Len(t, full.PieceIDs, 2)

	last := plan.NewStockNeeded[1]
	assert.Equal(t, 1, last.Quantity)
	assert.Equal(t, []int{5000}, last.Pieces)
	assert.Equal(t, 3, plan.NewBarCount())
}

func TestPlan_CutLossCountsPerPiece(t *testing.T) {
	s := defaultTestSettings()
	s.CutLoss = 5
	opt := New(s, nil)
	req := Request{Profiles: []model.ProfilePart{part("p", hea100, 6000, 2)}}

	plan := opt.Plan(req).Plans[0]
	// 6000+5 twice exceeds 12000, so each piece gets its own bar
	assert.Equal(t, 2, plan.NewBarCount())
	assert.Equal(t, 5995, plan.NewStockNeeded[0].Waste)
}

func TestPlan_FullLengthPieceNeedsNoKerf(t *testing.T) {
	opt := New(model.DefaultSettings(), nil)
	req := Request{Profiles: []model.ProfilePart{
		part("full", hea100, 12000, 1),
		part("near", hea100, 11998, 1),
	}}

	plan := opt.Plan(req).Plans[0]
	assert.Empty(t, plan.Unallocated)
	assert.Empty(t, plan.Errors)
	assert.Equal(t, 2, plan.NewBarCount())
	for _, g := range plan.NewStockNeeded {
		assert.Equal(t, 0, g.Waste, "layout %v", g.Pieces)
	}
}

func TestPlan_ExactFitOnStockUnit(t *testing.T) {
	s := defaultTestSettings()
	s.CutLoss = 3
	opt := New(s, nil)
	req := Request{
		Profiles: []model.ProfilePart{part("p", hea100, 4997, 1), part("q", hea100, 2000, 1)},
		Snapshot: []model.StockUnit{unit("r1", model.SourceRemnant, "HEA-100/S355", 5000)},
	}

	plan := opt.Plan(req).Plans[0]
	require.Len(t, plan.StockUsed, 1)
	assert.Equal(t, []int{4997}, plan.StockUsed[0].Pieces)
	assert.Equal(t, 5000, plan.StockUsed[0].UsedLength)
	assert.Equal(t, 0, plan.StockUsed[0].Waste)
	require.Len(t, plan.NewStockNeeded, 1)
	assert.Equal(t, []int{2000}, plan.NewStockNeeded[0].Pieces)
}

func TestPlan_PieceLongerThanBarStillUnallocated(t *testing.T) {
	opt := New(model.DefaultSettings(), nil)
	plan := opt.Plan(Request{Profiles: []model.ProfilePart{part("x", hea100, 12001, 1)}}).Plans[0]

	require.Len(t, plan.Unallocated, 1)
	assert.ErrorIs(t, plan.Errors[0], model.ErrPieceTooLong)
}

func TestPlan_ReservedAndConsumedStockIgnored(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	reserved := unit("r", model.SourceRemnant, "HEA-100/S355", 5000)
	reserved.State = model.StockReserved
	consumed := unit("c", model.SourceInventory, "HEA-100/S355", 12000)
	consumed.State = model.StockConsumed
	other := unit("o", model.SourceInventory, "IPE-200/S235", 12000)

	req := Request{
		Profiles: []model.ProfilePart{part("p", hea100, 1000, 1)},
		Snapshot: []model.StockUnit{reserved, consumed, other},
	}
	plan := opt.Plan(req).Plans[0]
	assert.Empty(t, plan.StockUsed)
	assert.Equal(t, 1, plan.NewBarCount())
}

func TestPlan_ResolutionErrorIsolatedPerKey(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	req := Request{Profiles: []model.ProfilePart{
		part("good", hea100, 2000, 1),
		part("nograde", model.ProfileSpec{Type: "IPE", Dimensions: "200"}, 2000, 1),
		part("zero", model.ProfileSpec{Type: "UPN", Dimensions: "100", Grade: "S235"}, 0, 1),
	}}

	report := opt.Plan(req)
	require.Len(t, report.Plans, 3)

	good, ok := report.Find("HEA-100/S355")
	require.True(t, ok)
	assert.True(t, good.CanOptimize)
	assert.Empty(t, good.Error)

	bad, ok := report.Find("IPE-200/")
	require.True(t, ok)
	assert.False(t, bad.CanOptimize)
	assert.True(t, bad.Failed())
	require.NotEmpty(t, bad.Errors)
	assert.ErrorIs(t, bad.Errors[0], model.ErrMaterialResolution)

	zero, ok := report.Find("UPN-100/S235")
	require.True(t, ok)
	assert.False(t, zero.CanOptimize)
	assert.Equal(t, "zero", zero.Errors[0].PieceID)
}

func TestPlan_CatalogPricesNewBarsAndRejectsUnknownKeys(t *testing.T) {
	catalog := model.ProfileCatalog{Profiles: []model.ProfilePreset{
		{ID: "x", Profile: hea100, PricePerMeter: decimal.RequireFromString("21.50")},
	}}
	opt := New(defaultTestSettings(), &catalog)
	req := Request{Profiles: []model.ProfilePart{
		part("p", hea100, 5000, 3),
		part("q", model.ProfileSpec{Type: "HEB", Dimensions: "300", Grade: "S355"}, 1000, 1),
	}}

	report := opt.Plan(req)
	plan, _ := report.Find("HEA-100/S355")
	assert.Equal(t, 2, plan.NewBarCount())
	assert.True(t, plan.PurchaseCost.Equal(decimal.NewFromInt(516)), "got %s", plan.PurchaseCost)
	assert.True(t, report.TotalPurchaseCost().Equal(decimal.NewFromInt(516)))

	unknown, _ := report.Find("HEB-300/S355")
	assert.False(t, unknown.CanOptimize)
	assert.ErrorIs(t, unknown.Errors[0], model.ErrMaterialResolution)
}

func TestPlan_StockValueFromCostPerMeter(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	u := unit("u", model.SourceInventory, "HEA-100/S355", 6000)
	u.CostPerMeter = decimal.NewFromInt(20)
	req := Request{
		Profiles: []model.ProfilePart{part("p", hea100, 1500, 1)},
		Snapshot: []model.StockUnit{u},
	}
	plan := opt.Plan(req).Plans[0]
	require.Len(t, plan.StockUsed, 1)
	assert.True(t, plan.StockUsed[0].Value.Equal(decimal.NewFromInt(30)))
}

func TestPlan_PlatesAndProfilesOrdered(t *testing.T) {
	opt := New(defaultTestSettings(), nil)
	req := Request{
		Profiles: []model.ProfilePart{part("p", hea100, 1000, 1)},
		Plates: []model.PlatePart{
			{ID: "pl", Label: "Base", Thickness: 10, Width: 200, Length: 300, Material: "S235", Quantity: 2},
		},
	}
	report := opt.Plan(req)
	require.Len(t, report.Plans, 2)
	assert.Equal(t, model.PlanTypeProfile, report.Plans[0].Type)
	assert.Equal(t, model.PlanTypePlate, report.Plans[1].Type)
	assert.False(t, report.Plans[1].CanOptimize)
}

// ─── Property Tests ───

func propertyRequest() Request {
	ipe := model.ProfileSpec{Type: "IPE", Dimensions: "200", Grade: "S235"}
	return Request{
		Profiles: []model.ProfilePart{
			part("a", hea100, 4200, 3),
			part("b", hea100, 2750, 4),
			part("c", hea100, 900, 7),
			part("d", hea100, 11990, 1),
			part("e", hea100, 12500, 1),
			part("f", ipe, 3100, 5),
			part("g", ipe, 6000, 2),
		},
		Snapshot: []model.StockUnit{
			unit("r1", model.SourceRemnant, "HEA-100/S355", 3000),
			unit("r2", model.SourceRemnant, "HEA-100/S355", 1800),
			unit("r3", model.SourceRemnant, "HEA-100/S355", 1800),
			unit("i1", model.SourceInventory, "HEA-100/S355", 12000),
			unit("i2", model.SourceInventory, "IPE-200/S235", 6000),
		},
	}
}

func propertySettings() model.CutSettings {
	s := model.DefaultSettings()
	s.CutLoss = 3
	return s
}

func TestProperty_Conservation(t *testing.T) {
	req := propertyRequest()
	opt := New(propertySettings(), nil)
	report := opt.Plan(req)

	for _, grp := range Aggregate(req.Profiles, nil) {
		plan, ok := report.Find(grp.Key)
		require.True(t, ok)

		var want, got []int
		for _, p := range grp.Pieces {
			want = append(want, p.Length)
		}
		ids := make(map[string]int)
		for _, u := range plan.StockUsed {
			got = append(got, u.Pieces...)
			for _, id := range u.PieceIDs {
				ids[id]++
			}
		}
		for _, g := range plan.NewStockNeeded {
			for _, barIDs := range g.PieceIDs {
				got = append(got, g.Pieces...)
				for _, id := range barIDs {
					ids[id]++
				}
			}
		}
		for _, u := range plan.Unallocated {
			got = append(got, u.Length)
			ids[u.PieceID]++
		}

		sort.Ints(want)
		sort.Ints(got)
		assert.Equal(t, want, got, "key %s", grp.Key)
		assert.Len(t, ids, len(grp.Pieces), "key %s", grp.Key)
		for id, n := range ids {
			assert.Equal(t, 1, n, "piece %s placed %d times", id, n)
		}
	}
}

func TestProperty_Capacity(t *testing.T) {
	settings := propertySettings()
	report := New(settings, nil).Plan(propertyRequest())

	for _, plan := range report.Plans {
		for _, u := range plan.StockUsed {
			sum := 0
			for _, l := range u.Pieces {
				sum += l
			}
			assert.LessOrEqual(t, sum, u.OriginalLength, "unit %s", u.UnitID)
			assert.LessOrEqual(t, u.UsedLength-sum, settings.CutLoss*len(u.Pieces), "unit %s", u.UnitID)
			assert.Equal(t, u.OriginalLength, u.UsedLength+u.Waste)
			assert.GreaterOrEqual(t, u.Waste, 0)
		}
		for _, g := range plan.NewStockNeeded {
			sum := 0
			for _, l := range g.Pieces {
				sum += l
			}
			assert.LessOrEqual(t, sum, g.StandardLength)
			assert.LessOrEqual(t, g.StandardLength-g.Waste-sum, settings.CutLoss*len(g.Pieces))
			assert.GreaterOrEqual(t, g.Waste, 0)
		}
	}
}

func TestProperty_Determinism(t *testing.T) {
	req := propertyRequest()
	opt := New(propertySettings(), nil)

	first, err := json.Marshal(opt.Plan(req))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		// Shuffled snapshot order must not matter either
		shuffled := req
		shuffled.Snapshot = append([]model.StockUnit(nil), req.Snapshot...)
		for a, b := 0, len(shuffled.Snapshot)-1; a < b; a, b = a+1, b-1 {
			shuffled.Snapshot[a], shuffled.Snapshot[b] = shuffled.Snapshot[b], shuffled.Snapshot[a]
		}
		again, err := json.Marshal(opt.Plan(shuffled))
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(again))
	}
}

func TestProperty_EfficiencyBounds(t *testing.T) {
	report := New(propertySettings(), nil).Plan(propertyRequest())
	for _, plan := range report.Plans {
		if !plan.CanOptimize {
			continue
		}
		assert.GreaterOrEqual(t, plan.Efficiency, 0.0)
		assert.LessOrEqual(t, plan.Efficiency, 1.0)
		if len(plan.StockUsed) == 0 && len(plan.NewStockNeeded) == 0 {
			assert.Equal(t, 0.0, plan.Efficiency)
		}
	}
}
