package commit

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/piwi3910/barcut/internal/model"
)

// Receipt records what one Apply call changed.
type Receipt struct {
	CommitID  string                      `json:"commit_id"`
	Consumed  []string                    `json:"consumed"`
	Conflicts []*model.PlanError          `json:"conflicts,omitempty"`
	Remnants  []model.StockUnit           `json:"remnants"`
	Purchases []model.PurchaseRequirement `json:"purchases"`
	Skipped   []model.MaterialKey         `json:"skipped,omitempty"` // failed or plate plans
}

// Applier writes accepted plans to a Store.
type Applier struct {
	store            Store
	log              zerolog.Logger
	minRemnantLength int
}

func NewApplier(store Store, log zerolog.Logger, minRemnantLength int) *Applier {
	return &Applier{store: store, log: log, minRemnantLength: minRemnantLength}
}

// Apply consumes the stock units used by report, registers remnants and
// records purchase requirements, all tagged with commitID. It is safe to
// retry with the same commit ID.
//
// A unit consumed by another commit is reported as a stock conflict for
// that unit only; its remnant is skipped and the other units proceed. The
// returned error then joins one *model.PlanError per conflict and the
// receipt describes what was applied. Store failures abort immediately.
func (a *Applier) Apply(ctx context.Context, commitID string, report model.Report) (*Receipt, error) {
	if commitID == "" {
		return nil, errors.New("apply: commit id is required")
	}

	units, err := a.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply %s: load snapshot: %w", commitID, err)
	}
	byID := make(map[string]model.StockUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	receipt := &Receipt{
		CommitID:  commitID,
		Consumed:  []string{},
		Remnants:  []model.StockUnit{},
		Purchases: []model.PurchaseRequirement{},
	}
	var conflicts []error

	for _, plan := range report.Plans {
		if plan.Type != model.PlanTypeProfile || !plan.CanOptimize {
			receipt.Skipped = append(receipt.Skipped, plan.MaterialKey)
			continue
		}

		applied := plan
		applied.StockUsed = nil
		for _, used := range plan.StockUsed {
			err := a.store.Consume(ctx, used.UnitID, commitID)
			switch {
			case err == nil:
				receipt.Consumed = append(receipt.Consumed, used.UnitID)
				applied.StockUsed = append(applied.StockUsed, used)
			case errors.Is(err, ErrConflict), errors.Is(err, ErrUnknownUnit):
				conflict := model.StockConflictError(plan.MaterialKey, used.UnitID)
				receipt.Conflicts = append(receipt.Conflicts, conflict)
				conflicts = append(conflicts, conflict)
				a.log.Warn().
					Str("commit", commitID).
					Str("unit", used.UnitID).
					Str("material_key", string(plan.MaterialKey)).
					Err(err).
					Msg("stock conflict")
			default:
				return receipt, fmt.Errorf("apply %s: %w", commitID, err)
			}
		}

		for _, r := range model.DetectRemnants(applied, byID, commitID, a.minRemnantLength) {
			if err := a.store.AddRemnant(ctx, r); err != nil {
				return receipt, fmt.Errorf("apply %s: add remnant: %w", commitID, err)
			}
			receipt.Remnants = append(receipt.Remnants, r)
		}

		for _, p := range purchasesFor(commitID, plan) {
			if err := a.store.RecordPurchase(ctx, p); err != nil {
				return receipt, fmt.Errorf("apply %s: record purchase: %w", commitID, err)
			}
			receipt.Purchases = append(receipt.Purchases, p)
		}
	}

	a.log.Info().
		Str("commit", commitID).
		Int("consumed", len(receipt.Consumed)).
		Int("remnants", len(receipt.Remnants)).
		Int("purchases", len(receipt.Purchases)).
		Int("conflicts", len(receipt.Conflicts)).
		Msg("plan applied")

	return receipt, errors.Join(conflicts...)
}

// purchasesFor sums new bar groups of a plan per standard length.
func purchasesFor(commitID string, plan model.Plan) []model.PurchaseRequirement {
	var out []model.PurchaseRequirement
	index := make(map[int]int)
	for _, g := range plan.NewStockNeeded {
		i, ok := index[g.StandardLength]
		if !ok {
			i = len(out)
			index[g.StandardLength] = i
			out = append(out, model.PurchaseRequirement{
				CommitID:       commitID,
				MaterialKey:    plan.MaterialKey,
				StandardLength: g.StandardLength,
				EstimatedCost:  decimal.Zero,
			})
		}
		out[i].Quantity += g.Quantity
		out[i].EstimatedCost = out[i].EstimatedCost.Add(g.EstimatedCost)
	}
	return out
}
