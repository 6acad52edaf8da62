package model

import "fmt"

// ErrorKind classifies planning and commit errors so callers can render
// per-row diagnostics.
type ErrorKind string

const (
	KindMaterialResolution ErrorKind = "material_resolution"
	KindPieceTooLong       ErrorKind = "piece_too_long"
	KindStockConflict      ErrorKind = "stock_conflict"
	KindOverrideOutOfRange ErrorKind = "override_out_of_range"
)

// PlanError is a structured error scoped to one material key.
type PlanError struct {
	Kind        ErrorKind   `json:"kind"`
	MaterialKey MaterialKey `json:"material_key"`
	PieceID     string      `json:"piece_id,omitempty"`
	UnitID      string      `json:"unit_id,omitempty"`
	Message     string      `json:"message"`
}

func (e *PlanError) Error() string {
	if e.MaterialKey == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.MaterialKey, e.Message)
}

// Is matches any PlanError of the same kind, so errors.Is(err,
// ErrStockConflict) works regardless of key or message.
func (e *PlanError) Is(target error) bool {
	t, ok := target.(*PlanError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrMaterialResolution = &PlanError{Kind: KindMaterialResolution}
	ErrPieceTooLong       = &PlanError{Kind: KindPieceTooLong}
	ErrStockConflict      = &PlanError{Kind: KindStockConflict}
	ErrOverrideOutOfRange = &PlanError{Kind: KindOverrideOutOfRange}
)

func MaterialResolutionError(key MaterialKey, pieceID, format string, args ...any) *PlanError {
	return &PlanError{Kind: KindMaterialResolution, MaterialKey: key, PieceID: pieceID, Message: fmt.Sprintf(format, args...)}
}

func PieceTooLongError(key MaterialKey, piece PieceDemand, standardLength int) *PlanError {
	return &PlanError{
		Kind:        KindPieceTooLong,
		MaterialKey: key,
		PieceID:     piece.PieceID,
		Message:     fmt.Sprintf("piece %d mm does not fit a %d mm bar or any stock unit", piece.Length, standardLength),
	}
}

func StockConflictError(key MaterialKey, unitID string) *PlanError {
	return &PlanError{
		Kind:        KindStockConflict,
		MaterialKey: key,
		UnitID:      unitID,
		Message:     fmt.Sprintf("stock unit %s was consumed by another commit; re-plan against a fresh snapshot", unitID),
	}
}

func OverrideOutOfRangeError(key MaterialKey, format string, args ...any) *PlanError {
	return &PlanError{Kind: KindOverrideOutOfRange, MaterialKey: key, Message: fmt.Sprintf(format, args...)}
}
