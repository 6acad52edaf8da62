package engine

import (
	"sort"

	"github.com/piwi3910/barcut/internal/model"
)

// Candidates returns the available stock units of key in the order the
// allocator tries them: remnants before inventory bars, shortest first,
// ties by ID. No stock for the key yields an empty list.
func Candidates(key model.MaterialKey, snapshot []model.StockUnit) []model.StockUnit {
	var out []model.StockUnit
	for _, u := range snapshot {
		if u.MaterialKey == key && u.Available() {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind == model.SourceRemnant
		}
		if a.Length != b.Length {
			return a.Length < b.Length
		}
		return a.ID < b.ID
	})
	return out
}
