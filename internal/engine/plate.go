package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piwi3910/barcut/internal/model"
)

// SteelDensity is used to estimate plate weight, in kg/m³.
const SteelDensity = 7850.0

// SummarizePlates groups plates by key and totals count, area and weight.
// Plates are never packed; each key yields a plan with CanOptimize false.
// Like a profile key, a plate key with any invalid row fails as a whole and
// carries no summary.
func SummarizePlates(plates []model.PlatePart) []model.Plan {
	byKey := make(map[model.MaterialKey]*model.Plan)
	var keys []model.MaterialKey

	for i, p := range plates {
		key := p.Key()
		plan, ok := byKey[key]
		if !ok {
			plan = &model.Plan{
				MaterialKey: key,
				Type:        model.PlanTypePlate,
				Plate: &model.PlateSummary{
					Thickness: p.Thickness,
					Material:  strings.ToUpper(strings.TrimSpace(p.Material)),
				},
			}
			byKey[key] = plan
			keys = append(keys, key)
		}

		id := p.ID
		if id == "" {
			id = fmt.Sprintf("plate%d", i+1)
		}
		if err := validatePlate(key, id, p); err != nil {
			plan.Errors = append(plan.Errors, err)
			if plan.Error == "" {
				plan.Error = err.Message
			}
			continue
		}

		area := float64(p.Width) * float64(p.Length) / 1e6 * float64(p.Quantity)
		plan.Plate.Count += p.Quantity
		plan.Plate.AreaM2 += area
		plan.Plate.WeightKg += area * float64(p.Thickness) / 1000 * SteelDensity
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]model.Plan, len(keys))
	for i, k := range keys {
		plan := byKey[k]
		if len(plan.Errors) > 0 {
			plan.Plate = nil
		}
		out[i] = *plan
	}
	return out
}

func validatePlate(key model.MaterialKey, id string, p model.PlatePart) *model.PlanError {
	switch {
	case strings.TrimSpace(p.Material) == "":
		return model.MaterialResolutionError(key, id, "plate %q has no material", p.Label)
	case p.Thickness <= 0 || p.Width <= 0 || p.Length <= 0:
		return model.MaterialResolutionError(key, id,
			"plate %q has non-positive dimensions %dx%dx%d", p.Label, p.Thickness, p.Width, p.Length)
	case p.Quantity <= 0:
		return model.MaterialResolutionError(key, id, "plate %q has non-positive quantity %d", p.Label, p.Quantity)
	}
	return nil
}
