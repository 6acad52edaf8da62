package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// PurchaseEstimate is a quick lower bound on bars to buy for a key, computed
// from total length alone. It is shown next to the packed plan so the
// packing overhead is visible.
type PurchaseEstimate struct {
	TotalPieceLength int             `json:"total_piece_length"` // mm, including cut loss
	StandardLength   int             `json:"standard_length"`
	BarsNeededExact  float64         `json:"bars_needed_exact"`
	BarsNeededMin    int             `json:"bars_needed_min"`
	BarsWithWaste    int             `json:"bars_with_waste"`
	WastePercent     float64         `json:"waste_percent"`
	TotalWeightKg    float64         `json:"total_weight_kg"`
	EstimatedCost    decimal.Decimal `json:"estimated_cost"`
}

// CalculatePurchaseEstimate computes how many standard bars cover the given
// pieces, adding cutLoss per piece and a waste percentage on top.
func CalculatePurchaseEstimate(pieces []PieceDemand, standardLength, cutLoss int, wastePercent float64, preset *ProfilePreset) PurchaseEstimate {
	total := 0
	for _, p := range pieces {
		total += p.Length + cutLoss
	}

	est := PurchaseEstimate{
		TotalPieceLength: total,
		StandardLength:   standardLength,
		WastePercent:     wastePercent,
		EstimatedCost:    decimal.Zero,
	}
	if standardLength <= 0 {
		return est
	}

	est.BarsNeededExact = float64(total) / float64(standardLength)
	est.BarsNeededMin = int(math.Ceil(est.BarsNeededExact))
	est.BarsWithWaste = int(math.Ceil(est.BarsNeededExact * (1.0 + wastePercent/100.0)))
	if est.BarsWithWaste < est.BarsNeededMin {
		est.BarsWithWaste = est.BarsNeededMin
	}

	if preset != nil {
		barLength := standardLength * est.BarsWithWaste
		est.TotalWeightKg = preset.KgPerMeter * float64(barLength) / 1000.0
		est.EstimatedCost = PriceForLength(preset.PricePerMeter, barLength)
	}
	return est
}
