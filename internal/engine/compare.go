package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/piwi3910/barcut/internal/model"
)

// ComparisonScenario is one standard bar length to evaluate for a key.
type ComparisonScenario struct {
	Name           string `json:"name"`
	StandardLength int    `json:"standard_length"`
}

// ComparisonResult holds the plan and headline numbers for one scenario.
type ComparisonResult struct {
	Scenario         ComparisonScenario `json:"scenario"`
	Plan             model.Plan         `json:"plan"`
	NewBars          int                `json:"new_bars"`
	ExistingUnits    int                `json:"existing_units"`
	Waste            int                `json:"waste"`
	WastePercent     float64            `json:"waste_percent"`
	UnallocatedCount int                `json:"unallocated_count"`
	PurchaseCost     decimal.Decimal    `json:"purchase_cost"`
}

// CompareStandardLengths plans key once per standard length so the caller
// can see what buying shorter or longer bars would mean. The request's own
// override for key is ignored; other keys are not planned at all.
func (o *Optimizer) CompareStandardLengths(req Request, key model.MaterialKey, lengths []int) ([]ComparisonResult, error) {
	grp, ok := findGroup(Aggregate(req.Profiles, o.Catalog), key)
	if !ok {
		return nil, fmt.Errorf("compare standard lengths: no profile demand for %s", key)
	}
	if grp.Failed() {
		return nil, grp.Errors[0]
	}

	results := make([]ComparisonResult, 0, len(lengths))
	for _, scenario := range BuildScenarios(lengths) {
		if err := validateGroupOverride(grp, scenario.StandardLength); err != nil {
			return nil, err
		}
		plan := o.planPieces(key, grp.Pieces, req.Snapshot, scenario.StandardLength)
		results = append(results, ComparisonResult{
			Scenario:         scenario,
			Plan:             plan,
			NewBars:          plan.NewBarCount(),
			ExistingUnits:    len(plan.StockUsed),
			Waste:            plan.TotalWaste(),
			WastePercent:     wastePercent(plan),
			UnallocatedCount: len(plan.Unallocated),
			PurchaseCost:     plan.PurchaseCost,
		})
	}
	return results, nil
}

// BuildScenarios names one scenario per distinct length, keeping input order.
func BuildScenarios(lengths []int) []ComparisonScenario {
	seen := make(map[int]bool)
	var scenarios []ComparisonScenario
	for _, l := range lengths {
		if seen[l] {
			continue
		}
		seen[l] = true
		scenarios = append(scenarios, ComparisonScenario{
			Name:           fmt.Sprintf("%d mm bars", l),
			StandardLength: l,
		})
	}
	return scenarios
}

func wastePercent(p model.Plan) float64 {
	if p.Efficiency == 0 {
		return 0
	}
	return (1 - p.Efficiency) * 100
}
