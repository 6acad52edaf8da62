package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/barcut/internal/model"
)

func TestSummarizePlates(t *testing.T) {
	plans := SummarizePlates([]model.PlatePart{
		{ID: "a", Thickness: 10, Width: 200, Length: 300, Material: "S235", Quantity: 2},
		{ID: "b", Thickness: 10, Width: 1000, Length: 1000, Material: "s235", Quantity: 1},
		{ID: "c", Thickness: 20, Width: 500, Length: 500, Material: "S355", Quantity: 4},
	})

	require.Len(t, plans, 2)
	pl10 := plans[0]
	assert.Equal(t, model.MaterialKey("PL10/S235"), pl10.MaterialKey)
	assert.Equal(t, model.PlanTypePlate, pl10.Type)
	assert.False(t, pl10.CanOptimize)
	assert.Nil(t, pl10.StockUsed)
	assert.Nil(t, pl10.NewStockNeeded)
	require.NotNil(t, pl10.Plate)
	assert.Equal(t, 3, pl10.Plate.Count)
	assert.InDelta(t, 1.12, pl10.Plate.AreaM2, 1e-9)
	assert.InDelta(t, 1.12*0.010*7850, pl10.Plate.WeightKg, 1e-9)

	pl20 := plans[1]
	assert.Equal(t, 4, pl20.Plate.Count)
	assert.InDelta(t, 1.0, pl20.Plate.AreaM2, 1e-9)
}

func TestSummarizePlates_InvalidRowFailsKey(t *testing.T) {
	plans := SummarizePlates([]model.PlatePart{
		{ID: "ok", Thickness: 8, Width: 100, Length: 100, Material: "S235", Quantity: 1},
		{ID: "bad", Thickness: 8, Width: 0, Length: 100, Material: "S235", Quantity: 1},
		{ID: "other", Thickness: 12, Width: 100, Length: 100, Material: "S235", Quantity: 1},
	})

	require.Len(t, plans, 2)
	failed := plans[1]
	assert.Equal(t, model.MaterialKey("PL8/S235"), failed.MaterialKey)
	assert.Nil(t, failed.Plate)
	assert.True(t, failed.Failed())
	assert.NotEmpty(t, failed.Error)
	require.Len(t, failed.Errors, 1)
	assert.ErrorIs(t, failed.Errors[0], model.ErrMaterialResolution)
	assert.Equal(t, "bad", failed.Errors[0].PieceID)

	// Other plate keys are unaffected
	require.NotNil(t, plans[0].Plate)
	assert.Equal(t, model.MaterialKey("PL12/S235"), plans[0].MaterialKey)
	assert.Equal(t, 1, plans[0].Plate.Count)
}
