package model

import (
	"sort"

	"github.com/google/uuid"
)

// remnantNamespace seeds deterministic remnant IDs so that a retried commit
// registers the same remnant instead of a second one.
var remnantNamespace = uuid.MustParse("6f1c2a7e-3b0d-4d8e-9a51-0c7d2b1e4f93")

// RemnantID returns the ID of the remnant left on parentID by commitID.
func RemnantID(commitID, parentID string) string {
	return "R" + uuid.NewSHA1(remnantNamespace, []byte(commitID+"/"+parentID)).String()[:8]
}

// DetectRemnants returns the leftovers of a plan that are long enough to go
// back on the rack. Only existing stock units produce remnants; new bars are
// purchase intents and have not been received yet.
func DetectRemnants(plan Plan, units map[string]StockUnit, commitID string, minLength int) []StockUnit {
	var remnants []StockUnit
	for _, used := range plan.StockUsed {
		if used.Waste < minLength || used.Waste <= 0 {
			continue
		}
		parent, ok := units[used.UnitID]
		if !ok {
			continue
		}
		r := StockUnit{
			ID:          RemnantID(commitID, parent.ID),
			Kind:        SourceRemnant,
			MaterialKey: plan.MaterialKey,
			Label:       "Remnant of " + parent.ID,
			Length:      used.Waste,
			State:       StockAvailable,
			ParentID:    parent.ID,
		}
		// Remnants keep the per-meter price; a fixed price is split by length.
		if !parent.FixedCost.IsZero() {
			r.FixedCost = parent.Value(used.Waste)
		} else {
			r.CostPerMeter = parent.CostPerMeter
		}
		remnants = append(remnants, r)
	}

	// Longest first, matching how the rack is labelled after a cut run
	sort.SliceStable(remnants, func(i, j int) bool {
		return remnants[i].Length > remnants[j].Length
	})
	return remnants
}

// TotalRemnantLength returns the combined length of the given remnants in mm.
func TotalRemnantLength(remnants []StockUnit) int {
	total := 0
	for _, r := range remnants {
		total += r.Length
	}
	return total
}
