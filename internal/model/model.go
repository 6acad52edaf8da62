package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaterialKey groups demand and stock that can be cut from each other:
// profile type + dimensions + grade for bars, thickness + material for plates.
type MaterialKey string

// PlanType tells whether a plan was produced for linear bars or plates.
type PlanType string

const (
	PlanTypeProfile PlanType = "profile"
	PlanTypePlate   PlanType = "plate"
)

// ProfileSpec identifies a linear section such as HEA-100 in grade S355.
type ProfileSpec struct {
	Type       string `json:"type"`       // e.g. HEA, IPE, RHS
	Dimensions string `json:"dimensions"` // e.g. 100, 100x50x4
	Grade      string `json:"grade"`      // e.g. S355
}

// Key returns the material key for the profile, e.g. "HEA-100/S355".
// Missing fields are kept empty so that a bad row still groups under a
// recognisable key.
func (s ProfileSpec) Key() MaterialKey {
	t := strings.ToUpper(strings.TrimSpace(s.Type))
	d := strings.TrimSpace(s.Dimensions)
	g := strings.ToUpper(strings.TrimSpace(s.Grade))
	if d == "" {
		return MaterialKey(t + "/" + g)
	}
	return MaterialKey(t + "-" + d + "/" + g)
}

// Complete reports whether type, dimensions and grade are all present.
func (s ProfileSpec) Complete() bool {
	return strings.TrimSpace(s.Type) != "" &&
		strings.TrimSpace(s.Dimensions) != "" &&
		strings.TrimSpace(s.Grade) != ""
}

// ProfilePart is a resolved linear part: one or more identical pieces of a
// given length cut from bars of one profile.
type ProfilePart struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Profile  ProfileSpec `json:"profile"`
	Length   int         `json:"length"` // mm
	Quantity int         `json:"quantity"`
}

func NewProfilePart(label string, profile ProfileSpec, length, qty int) ProfilePart {
	return ProfilePart{
		ID:       uuid.New().String()[:8],
		Label:    label,
		Profile:  profile,
		Length:   length,
		Quantity: qty,
	}
}

// PlatePart is a rectangular plate piece. Plates are summarized, never packed.
type PlatePart struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Thickness int    `json:"thickness"` // mm
	Width     int    `json:"width"`     // mm
	Length    int    `json:"length"`    // mm
	Material  string `json:"material"`
	Quantity  int    `json:"quantity"`
}

func NewPlatePart(label string, thickness, width, length int, material string, qty int) PlatePart {
	return PlatePart{
		ID:        uuid.New().String()[:8],
		Label:     label,
		Thickness: thickness,
		Width:     width,
		Length:    length,
		Material:  material,
		Quantity:  qty,
	}
}

// Key returns the plate material key, e.g. "PL10/S235".
func (p PlatePart) Key() MaterialKey {
	return MaterialKey(fmt.Sprintf("PL%d/%s", p.Thickness, strings.ToUpper(strings.TrimSpace(p.Material))))
}

// PieceDemand is one physical piece to cut. Quantities are expanded so that
// every piece is tracked individually through a planning run.
type PieceDemand struct {
	MaterialKey MaterialKey `json:"material_key"`
	Length      int         `json:"length"` // mm
	PieceID     string      `json:"piece_id"`
	Label       string      `json:"label"`
}

// CutSettings holds optimizer configuration. All lengths are in mm.
type CutSettings struct {
	CutLoss          int   `json:"cut_loss"`           // saw kerf lost per cut
	StandardLength   int   `json:"standard_length"`    // length of a newly purchased bar
	StandardLengths  []int `json:"standard_lengths"`   // lengths offered as what-if alternatives
	MinRemnantLength int   `json:"min_remnant_length"` // shorter leftovers are scrap
}

const (
	// DefaultStandardLength is the bar length bought when nothing else is set.
	DefaultStandardLength = 12000
	// ShortStandardLength is the common alternative stock length.
	ShortStandardLength = 6000
)

func DefaultSettings() CutSettings {
	return CutSettings{
		CutLoss:          3,
		StandardLength:   DefaultStandardLength,
		StandardLengths:  []int{ShortStandardLength, DefaultStandardLength},
		MinRemnantLength: 500,
	}
}
