package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceKind tells where a stock unit came from.
type SourceKind int

const (
	SourceInventory SourceKind = iota // Full bar from purchased inventory
	SourceRemnant                     // Leftover of a previous cut
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemnant:
		return "REMNANT"
	default:
		return "INVENTORY"
	}
}

func (k SourceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SourceKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseSourceKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseSourceKind accepts INVENTORY or REMNANT in any case.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INVENTORY", "":
		return SourceInventory, nil
	case "REMNANT":
		return SourceRemnant, nil
	default:
		return SourceInventory, fmt.Errorf("unknown stock source kind %q", s)
	}
}

// StockState is the availability of a stock unit. The only transition made
// by this module is available -> consumed.
type StockState string

const (
	StockAvailable StockState = "available"
	StockReserved  StockState = "reserved"
	StockConsumed  StockState = "consumed"
)

// StockUnit is a single bar or remnant on the rack.
type StockUnit struct {
	ID           string          `json:"id"`
	Kind         SourceKind      `json:"kind"`
	MaterialKey  MaterialKey     `json:"material_key"`
	Label        string          `json:"label,omitempty"`
	Length       int             `json:"length"`         // mm
	CostPerMeter decimal.Decimal `json:"cost_per_meter"` // 0 if unknown
	FixedCost    decimal.Decimal `json:"fixed_cost"`     // Overrides CostPerMeter when set
	State        StockState      `json:"state"`
	ConsumedBy   string          `json:"consumed_by,omitempty"` // Commit that consumed the unit
	ParentID     string          `json:"parent_id,omitempty"`   // Unit this remnant was cut from
}

// NewStockUnit creates an available inventory or remnant unit.
func NewStockUnit(kind SourceKind, key MaterialKey, length int, costPerMeter decimal.Decimal) StockUnit {
	return StockUnit{
		ID:           uuid.New().String()[:8],
		Kind:         kind,
		MaterialKey:  key,
		Length:       length,
		CostPerMeter: costPerMeter,
		State:        StockAvailable,
	}
}

// Available reports whether the unit can be planned against.
func (u StockUnit) Available() bool {
	return u.State == StockAvailable && u.Length > 0
}

// Value returns the material value of the given length taken from this unit.
// A fixed cost is shared proportionally over the unit length.
func (u StockUnit) Value(length int) decimal.Decimal {
	if u.Length <= 0 || length <= 0 {
		return decimal.Zero
	}
	if !u.FixedCost.IsZero() {
		return u.FixedCost.Mul(decimal.NewFromInt(int64(length))).Div(decimal.NewFromInt(int64(u.Length)))
	}
	return PriceForLength(u.CostPerMeter, length)
}

// PriceForLength converts a price per meter into the price of length mm.
func PriceForLength(perMeter decimal.Decimal, length int) decimal.Decimal {
	return perMeter.Mul(decimal.NewFromInt(int64(length))).Div(decimal.NewFromInt(1000))
}

// PurchaseRequirement is an intent to buy new bars, recorded when a plan is
// committed.
type PurchaseRequirement struct {
	CommitID       string          `json:"commit_id"`
	MaterialKey    MaterialKey     `json:"material_key"`
	StandardLength int             `json:"standard_length"`
	Quantity       int             `json:"quantity"`
	EstimatedCost  decimal.Decimal `json:"estimated_cost"`
}

// StockLedger is the persisted state of the rack plus outstanding purchases.
type StockLedger struct {
	Units     []StockUnit           `json:"units"`
	Purchases []PurchaseRequirement `json:"purchases"`
}

// FindUnit returns a pointer to the unit with the given ID, or nil.
func (l *StockLedger) FindUnit(id string) *StockUnit {
	for i := range l.Units {
		if l.Units[i].ID == id {
			return &l.Units[i]
		}
	}
	return nil
}
