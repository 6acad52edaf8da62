// Package commit turns an accepted plan into stock state changes: consumed
// units, new remnants and purchase requirements.
package commit

import (
	"context"
	"errors"

	"github.com/piwi3910/barcut/internal/model"
)

var (
	// ErrConflict is returned by Store.Consume when the unit was consumed by
	// a different commit.
	ErrConflict = errors.New("stock unit already consumed by another commit")
	// ErrUnknownUnit is returned when a unit ID is not in the store.
	ErrUnknownUnit = errors.New("unknown stock unit")
)

// Store is the inventory collaborator the applier writes to.
//
// Consume is a compare-and-set from available to consumed, tagged with the
// commit ID. Consuming a unit again with the same commit ID succeeds without
// change. AddRemnant and RecordPurchase are upserts so that a retried commit
// never duplicates rows.
type Store interface {
	// Snapshot returns every unit, whatever its state.
	Snapshot(ctx context.Context) ([]model.StockUnit, error)
	Consume(ctx context.Context, unitID, commitID string) error
	AddRemnant(ctx context.Context, unit model.StockUnit) error
	RecordPurchase(ctx context.Context, p model.PurchaseRequirement) error
	Purchases(ctx context.Context) ([]model.PurchaseRequirement, error)
}

// AvailableSnapshot returns the units of s that can be planned against.
func AvailableSnapshot(ctx context.Context, s Store) ([]model.StockUnit, error) {
	units, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.StockUnit, 0, len(units))
	for _, u := range units {
		if u.Available() {
			out = append(out, u)
		}
	}
	return out, nil
}

// consumeUnit applies the compare-and-set rule to u in place.
func consumeUnit(u *model.StockUnit, commitID string) error {
	switch {
	case u.State == model.StockAvailable:
		u.State = model.StockConsumed
		u.ConsumedBy = commitID
		return nil
	case u.State == model.StockConsumed && u.ConsumedBy == commitID:
		return nil
	default:
		return ErrConflict
	}
}

func purchaseKey(p model.PurchaseRequirement) string {
	return p.CommitID + "|" + string(p.MaterialKey) + "|" + itoa(p.StandardLength)
}
