package engine

import (
	"fmt"
	"sort"

	"github.com/piwi3910/barcut/internal/model"
)

// DemandGroup is the expanded demand of one material key, longest piece
// first. A group with Errors set is not planned.
type DemandGroup struct {
	Key    model.MaterialKey
	Pieces []model.PieceDemand
	Errors []*model.PlanError
}

// Failed reports whether the group carries a resolution error.
func (g DemandGroup) Failed() bool {
	return len(g.Errors) > 0
}

// Smallest returns the shortest piece length of the group, or 0 when empty.
func (g DemandGroup) Smallest() int {
	if len(g.Pieces) == 0 {
		return 0
	}
	return g.Pieces[len(g.Pieces)-1].Length
}

// Aggregate groups profile parts by material key and expands quantities into
// one PieceDemand per physical piece. Invalid rows mark their own key as
// failed; other keys are unaffected. Groups are returned sorted by key.
func Aggregate(profiles []model.ProfilePart, catalog *model.ProfileCatalog) []DemandGroup {
	byKey := make(map[model.MaterialKey]*DemandGroup)
	var order []model.MaterialKey

	group := func(key model.MaterialKey) *DemandGroup {
		g, ok := byKey[key]
		if !ok {
			g = &DemandGroup{Key: key}
			byKey[key] = g
			order = append(order, key)
		}
		return g
	}

	for i, part := range profiles {
		key := part.Profile.Key()
		g := group(key)
		partID := part.ID
		if partID == "" {
			partID = fmt.Sprintf("row%d", i+1)
		}

		switch {
		case !part.Profile.Complete():
			g.Errors = append(g.Errors, model.MaterialResolutionError(key, partID,
				"part %q is missing profile type, dimensions or grade", part.Label))
			continue
		case part.Length <= 0:
			g.Errors = append(g.Errors, model.MaterialResolutionError(key, partID,
				"part %q has non-positive length %d", part.Label, part.Length))
			continue
		case part.Quantity <= 0:
			g.Errors = append(g.Errors, model.MaterialResolutionError(key, partID,
				"part %q has non-positive quantity %d", part.Label, part.Quantity))
			continue
		case !catalog.Matches(key):
			g.Errors = append(g.Errors, model.MaterialResolutionError(key, partID,
				"no catalog entry for %s", key))
			continue
		}

		for n := 0; n < part.Quantity; n++ {
			g.Pieces = append(g.Pieces, model.PieceDemand{
				MaterialKey: key,
				Length:      part.Length,
				PieceID:     pieceID(partID, n, part.Quantity),
				Label:       part.Label,
			})
		}
	}

	groups := make([]DemandGroup, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		sortPieces(g.Pieces)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func pieceID(partID string, n, qty int) string {
	if qty == 1 {
		return partID
	}
	return fmt.Sprintf("%s-%03d", partID, n+1)
}

// sortPieces orders pieces longest first, ties by piece ID.
func sortPieces(pieces []model.PieceDemand) {
	sort.SliceStable(pieces, func(i, j int) bool {
		if pieces[i].Length != pieces[j].Length {
			return pieces[i].Length > pieces[j].Length
		}
		return pieces[i].PieceID < pieces[j].PieceID
	})
}
