package model

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProfilePreset describes a profile/grade the shop buys, with its price.
type ProfilePreset struct {
	ID            string          `json:"id"`
	Profile       ProfileSpec     `json:"profile"`
	PricePerMeter decimal.Decimal `json:"price_per_meter"`
	KgPerMeter    float64         `json:"kg_per_meter"`
}

// NewProfilePreset creates a new ProfilePreset with a generated ID.
func NewProfilePreset(profile ProfileSpec, pricePerMeter string, kgPerMeter float64) ProfilePreset {
	return ProfilePreset{
		ID:            uuid.New().String()[:8],
		Profile:       profile,
		PricePerMeter: decimal.RequireFromString(pricePerMeter),
		KgPerMeter:    kgPerMeter,
	}
}

// Key returns the material key of the preset.
func (p ProfilePreset) Key() MaterialKey {
	return p.Profile.Key()
}

// ProfileCatalog holds the profiles the shop can price and match.
// An empty catalog matches every key at zero price.
type ProfileCatalog struct {
	Profiles []ProfilePreset `json:"profiles"`
}

// DefaultCatalog returns a catalog populated with common European sections.
func DefaultCatalog() ProfileCatalog {
	return ProfileCatalog{
		Profiles: []ProfilePreset{
			NewProfilePreset(ProfileSpec{Type: "HEA", Dimensions: "100", Grade: "S355"}, "21.50", 16.7),
			NewProfilePreset(ProfileSpec{Type: "HEA", Dimensions: "200", Grade: "S355"}, "52.80", 42.3),
			NewProfilePreset(ProfileSpec{Type: "HEB", Dimensions: "200", Grade: "S355"}, "76.90", 61.3),
			NewProfilePreset(ProfileSpec{Type: "IPE", Dimensions: "200", Grade: "S235"}, "27.40", 22.4),
			NewProfilePreset(ProfileSpec{Type: "IPE", Dimensions: "300", Grade: "S355"}, "52.10", 42.2),
			NewProfilePreset(ProfileSpec{Type: "UPN", Dimensions: "100", Grade: "S235"}, "12.60", 10.6),
			NewProfilePreset(ProfileSpec{Type: "RHS", Dimensions: "100x50x4", Grade: "S355"}, "11.20", 8.59),
			NewProfilePreset(ProfileSpec{Type: "SHS", Dimensions: "80x80x5", Grade: "S355"}, "14.30", 11.3),
			NewProfilePreset(ProfileSpec{Type: "L", Dimensions: "50x50x5", Grade: "S235"}, "4.60", 3.77),
			NewProfilePreset(ProfileSpec{Type: "FL", Dimensions: "100x10", Grade: "S235"}, "9.40", 7.85),
		},
	}
}

// Empty reports whether the catalog has no entries.
func (c *ProfileCatalog) Empty() bool {
	return c == nil || len(c.Profiles) == 0
}

// Lookup returns the preset for the given key, or nil.
func (c *ProfileCatalog) Lookup(key MaterialKey) *ProfilePreset {
	if c == nil {
		return nil
	}
	for i := range c.Profiles {
		if c.Profiles[i].Key() == key {
			return &c.Profiles[i]
		}
	}
	return nil
}

// Matches reports whether the key can be priced. Empty catalogs match all keys.
func (c *ProfileCatalog) Matches(key MaterialKey) bool {
	return c.Empty() || c.Lookup(key) != nil
}

// PricePerMeter returns the bar price for the key, zero when unknown.
func (c *ProfileCatalog) PricePerMeter(key MaterialKey) decimal.Decimal {
	if p := c.Lookup(key); p != nil {
		return p.PricePerMeter
	}
	return decimal.Zero
}

// FindByID returns a pointer to the preset with the given ID, or nil.
func (c *ProfileCatalog) FindByID(id string) *ProfilePreset {
	for i := range c.Profiles {
		if c.Profiles[i].ID == id {
			return &c.Profiles[i]
		}
	}
	return nil
}

// Keys returns the material keys of all presets in sorted order.
func (c *ProfileCatalog) Keys() []MaterialKey {
	keys := make([]MaterialKey, len(c.Profiles))
	for i, p := range c.Profiles {
		keys[i] = p.Key()
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
