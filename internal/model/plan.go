package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// StockUsage is one existing stock unit consumed by a plan, with its cut layout.
type StockUsage struct {
	UnitID         string          `json:"unit_id"`
	Kind           SourceKind      `json:"kind"`
	OriginalLength int             `json:"original_length"`
	UsedLength     int             `json:"used_length"` // pieces plus cut loss
	Waste          int             `json:"waste"`
	Pieces         []int           `json:"pieces"`    // lengths in cut order
	PieceIDs       []string        `json:"piece_ids"` // parallel to Pieces
	Value          decimal.Decimal `json:"value"`     // material value of UsedLength
}

// NewBarGroup is a set of identical new bars: same standard length, same
// cut layout.
type NewBarGroup struct {
	StandardLength int             `json:"standard_length"`
	Quantity       int             `json:"quantity"`
	Pieces         []int           `json:"pieces"`    // layout of each bar
	PieceIDs       [][]string      `json:"piece_ids"` // one entry per bar
	Waste          int             `json:"waste"`     // per bar
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
}

// PieceCount returns the number of pieces cut from the whole group.
func (g NewBarGroup) PieceCount() int {
	return g.Quantity * len(g.Pieces)
}

// UnallocatedPiece is a piece no real or standard bar can hold.
type UnallocatedPiece struct {
	PieceID string `json:"piece_id"`
	Label   string `json:"label,omitempty"`
	Length  int    `json:"length"`
}

// PlateSummary aggregates plate demand for one key.
type PlateSummary struct {
	Thickness int     `json:"thickness"`
	Material  string  `json:"material"`
	Count     int     `json:"count"`
	AreaM2    float64 `json:"area_m2"`
	WeightKg  float64 `json:"weight_kg"`
}

// Plan is the optimizer output for one material key.
type Plan struct {
	MaterialKey    MaterialKey        `json:"material_key"`
	Type           PlanType           `json:"type"`
	CanOptimize    bool               `json:"can_optimize"`
	StandardLength int                `json:"standard_length,omitempty"`
	CutLoss        int                `json:"cut_loss,omitempty"`
	StockUsed      []StockUsage       `json:"stock_used"`
	NewStockNeeded []NewBarGroup      `json:"new_stock_needed"`
	Unallocated    []UnallocatedPiece `json:"unallocated"`
	Efficiency     float64            `json:"efficiency"`
	PurchaseCost   decimal.Decimal    `json:"purchase_cost"`
	Plate          *PlateSummary      `json:"plate,omitempty"`
	Error          string             `json:"error,omitempty"`
	Errors         []*PlanError       `json:"errors,omitempty"`
}

// NewBarCount returns the number of new bars to buy.
func (p Plan) NewBarCount() int {
	n := 0
	for _, g := range p.NewStockNeeded {
		n += g.Quantity
	}
	return n
}

// PieceCount returns the number of pieces accounted for by the plan.
func (p Plan) PieceCount() int {
	n := len(p.Unallocated)
	for _, u := range p.StockUsed {
		n += len(u.Pieces)
	}
	for _, g := range p.NewStockNeeded {
		n += g.PieceCount()
	}
	return n
}

// TotalWaste returns the waste over existing units and new bars.
func (p Plan) TotalWaste() int {
	w := 0
	for _, u := range p.StockUsed {
		w += u.Waste
	}
	for _, g := range p.NewStockNeeded {
		w += g.Waste * g.Quantity
	}
	return w
}

// Failed reports whether the plan carries a blocking error.
func (p Plan) Failed() bool {
	return p.Error != "" && !p.CanOptimize && p.Plate == nil
}

// Report is the full result of one planning call, one plan per material key.
// Snapshot is the stock the report was planned against; overrides re-plan
// against it rather than the current rack.
type Report struct {
	Plans        []Plan      `json:"plans"`
	Snapshot     []StockUnit `json:"snapshot"`
	SnapshotSize int         `json:"snapshot_size"`
}

// Find returns the plan for the given key.
func (r Report) Find(key MaterialKey) (Plan, bool) {
	for _, p := range r.Plans {
		if p.MaterialKey == key {
			return p, true
		}
	}
	return Plan{}, false
}

// Replace returns a copy of the report with the plan for p.MaterialKey
// swapped for p. Other plans are left untouched.
func (r Report) Replace(p Plan) Report {
	out := Report{Plans: make([]Plan, 0, len(r.Plans)+1), Snapshot: r.Snapshot, SnapshotSize: r.SnapshotSize}
	found := false
	for _, existing := range r.Plans {
		if existing.MaterialKey == p.MaterialKey {
			out.Plans = append(out.Plans, p)
			found = true
			continue
		}
		out.Plans = append(out.Plans, existing)
	}
	if !found {
		out.Plans = append(out.Plans, p)
		SortPlans(out.Plans)
	}
	return out
}

// TotalPurchaseCost sums the estimated purchase cost of all plans.
func (r Report) TotalPurchaseCost() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Plans {
		total = total.Add(p.PurchaseCost)
	}
	return total
}

// SortPlans orders profile plans before plate plans, each by key.
func SortPlans(plans []Plan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Type != plans[j].Type {
			return plans[i].Type == PlanTypeProfile
		}
		return plans[i].MaterialKey < plans[j].MaterialKey
	})
}
