package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/piwi3910/barcut/internal/model"
)

// compile turns an allocation into the Plan for key. Every input piece ends
// up in exactly one of StockUsed, NewStockNeeded or Unallocated.
func compile(key model.MaterialKey, alloc allocation, standardLength, cutLoss int, pricePerMeter decimal.Decimal) model.Plan {
	plan := model.Plan{
		MaterialKey:    key,
		Type:           model.PlanTypeProfile,
		CanOptimize:    true,
		StandardLength: standardLength,
		CutLoss:        cutLoss,
		StockUsed:      []model.StockUsage{},
		NewStockNeeded: []model.NewBarGroup{},
		Unallocated:    []model.UnallocatedPiece{},
		PurchaseCost:   decimal.Zero,
	}

	assigned, consumed := 0, 0

	for _, b := range alloc.existing {
		usage := model.StockUsage{
			UnitID:         b.unit.ID,
			Kind:           b.unit.Kind,
			OriginalLength: b.capacity,
			UsedLength:     b.used(),
			Waste:          b.remaining,
			Value:          b.unit.Value(b.used()),
		}
		for _, p := range b.pieces {
			usage.Pieces = append(usage.Pieces, p.Length)
			usage.PieceIDs = append(usage.PieceIDs, p.PieceID)
		}
		plan.StockUsed = append(plan.StockUsed, usage)
		assigned += b.pieceLength()
		consumed += b.capacity
	}

	barCost := model.PriceForLength(pricePerMeter, standardLength)
	groupIndex := make(map[string]int)
	for _, b := range alloc.newBars {
		layout := layoutKey(b.pieces)
		ids := make([]string, len(b.pieces))
		for i, p := range b.pieces {
			ids[i] = p.PieceID
		}

		if i, ok := groupIndex[layout]; ok {
			g := &plan.NewStockNeeded[i]
			g.Quantity++
			g.PieceIDs = append(g.PieceIDs, ids)
			g.EstimatedCost = g.EstimatedCost.Add(barCost)
		} else {
			lengths := make([]int, len(b.pieces))
			for i, p := range b.pieces {
				lengths[i] = p.Length
			}
			groupIndex[layout] = len(plan.NewStockNeeded)
			plan.NewStockNeeded = append(plan.NewStockNeeded, model.NewBarGroup{
				StandardLength: standardLength,
				Quantity:       1,
				Pieces:         lengths,
				PieceIDs:       [][]string{ids},
				Waste:          b.remaining,
				EstimatedCost:  barCost,
			})
		}
		plan.PurchaseCost = plan.PurchaseCost.Add(barCost)
		assigned += b.pieceLength()
		consumed += b.capacity
	}

	for _, p := range alloc.unallocated {
		plan.Unallocated = append(plan.Unallocated, model.UnallocatedPiece{
			PieceID: p.PieceID,
			Label:   p.Label,
			Length:  p.Length,
		})
		plan.Errors = append(plan.Errors, model.PieceTooLongError(key, p, standardLength))
	}
	if n := len(alloc.unallocated); n > 0 {
		plan.Error = fmt.Sprintf("%d piece(s) too long for a %d mm bar or any stock unit", n, standardLength)
	}

	plan.Efficiency = efficiency(assigned, consumed)
	return plan
}

// efficiency is assigned piece length over consumed stock length, 0 when
// nothing is consumed. A used unit or new bar counts with its full length.
func efficiency(assigned, consumed int) float64 {
	if consumed <= 0 {
		return 0
	}
	e := float64(assigned) / float64(consumed)
	if e > 1 {
		return 1
	}
	return e
}

func layoutKey(pieces []model.PieceDemand) string {
	var sb strings.Builder
	for i, p := range pieces {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(p.Length))
	}
	return sb.String()
}
