package engine

import (
	"github.com/piwi3910/barcut/internal/model"
)

// ValidateOverride rejects a standard length that is non-positive or shorter
// than the smallest piece of the key.
func ValidateOverride(key model.MaterialKey, length int, pieces []model.PieceDemand) error {
	if err := validateGroupOverride(DemandGroup{Key: key, Pieces: sortedCopy(pieces)}, length); err != nil {
		return err
	}
	return nil
}

func validateGroupOverride(grp DemandGroup, length int) *model.PlanError {
	if length <= 0 {
		return model.OverrideOutOfRangeError(grp.Key, "standard length %d mm must be positive", length)
	}
	if smallest := grp.Smallest(); smallest > 0 && length < smallest {
		return model.OverrideOutOfRangeError(grp.Key,
			"standard length %d mm is shorter than the smallest piece (%d mm)", length, smallest)
	}
	return nil
}

// ApplyOverride re-plans only key with the given standard length against the
// request's snapshot and returns a new report. Plans of other keys are
// carried over unchanged. The override is validated before any planning.
func (o *Optimizer) ApplyOverride(req Request, report model.Report, key model.MaterialKey, length int) (model.Report, error) {
	grp, ok := findGroup(Aggregate(req.Profiles, o.Catalog), key)
	if !ok {
		return report, model.OverrideOutOfRangeError(key, "no profile demand for %s", key)
	}
	if err := validateGroupOverride(grp, length); err != nil {
		return report, err
	}

	plan := o.planGroup(grp, req.Snapshot, map[model.MaterialKey]int{key: length})
	return report.Replace(plan), nil
}

func findGroup(groups []DemandGroup, key model.MaterialKey) (DemandGroup, bool) {
	for _, g := range groups {
		if g.Key == key {
			return g, true
		}
	}
	return DemandGroup{}, false
}

func sortedCopy(pieces []model.PieceDemand) []model.PieceDemand {
	out := make([]model.PieceDemand, len(pieces))
	copy(out, pieces)
	sortPieces(out)
	return out
}
