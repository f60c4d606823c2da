package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var plaBasic = Material{DensityGPerCm3: 1.24, PricePerKg: 19.99}

func TestComputeStandardOrder(t *testing.T) {
	b := Compute(Input{
		VolumeCm3:      100,
		Material:       plaBasic,
		Quantity:       1,
		DestinationZip: "10001",
		Size:           SizeStandard,
	})

	require.InDelta(t, 124.0, b.MaterialWeightGrams, 1e-9)
	require.InDelta(t, 2.47876, b.MaterialCost, 1e-9)
	require.InDelta(t, 0.1426, b.ShippingWeightKg, 1e-9)
	require.Equal(t, StandardShippingRate, b.ShippingCost)
	require.Equal(t, BaseCost, b.BaseCost)
	require.Zero(t, b.RushOrderSurcharge)
	require.Zero(t, b.FullVolumeSurcharge)
	require.InDelta(t, 30.37876, b.Subtotal, 1e-9)
}

func TestComputeQuantityMultipliesLine(t *testing.T) {
	b := Compute(Input{VolumeCm3: 100, Material: plaBasic, Quantity: 3, Size: SizeFullVolume})

	material := 0.124 * 19.99 * 3
	require.InDelta(t, material, b.MaterialCost, 1e-9)
	require.InDelta(t, 3.0, b.FullVolumeSurcharge, 1e-9)
	require.InDelta(t, (BaseCost+material+3.0)*3+StandardShippingRate, b.Subtotal, 1e-9)
}

func TestComputeRushOrder(t *testing.T) {
	b := Compute(Input{VolumeCm3: 100, Material: plaBasic, Quantity: 1, RushOrder: true})

	require.Equal(t, RushOrderSurcharge, b.RushOrderSurcharge)
	require.Equal(t, ExpressLightRate, b.ShippingCost)
	require.InDelta(t, BaseCost+b.MaterialCost+ExpressLightRate+RushOrderSurcharge, b.Subtotal, 1e-9)
}

func TestComputeDegenerateVolume(t *testing.T) {
	for _, volume := range []float64{0, -5} {
		b := Compute(Input{VolumeCm3: volume, Material: plaBasic, Quantity: 2})
		require.Zero(t, b.MaterialCost, "volume %v", volume)
		require.Equal(t, MinimumWeightGrams, b.MaterialWeightGrams, "volume %v", volume)
		require.InDelta(t, MinimumWeightGrams*(1+PackagingOverhead)/1000, b.ShippingWeightKg, 1e-12)
	}
}

func TestComputeWeightFloor(t *testing.T) {
	b := Compute(Input{VolumeCm3: 0.01, Material: plaBasic, Quantity: 1})

	require.Equal(t, MinimumWeightGrams, b.MaterialWeightGrams)
	require.InDelta(t, MinimumWeightGrams/1000*plaBasic.PricePerKg, b.MaterialCost, 1e-12)
	require.Greater(t, b.MaterialCost, 0.0)
}

func TestComputeMaterialCostNonNegative(t *testing.T) {
	for _, volume := range []float64{-100, -0.5, 0, 0.001, 1, 1000, 16000} {
		for _, qty := range []int{1, 2, 10} {
			b := Compute(Input{VolumeCm3: volume, Material: plaBasic, Quantity: qty})
			require.GreaterOrEqual(t, b.MaterialCost, 0.0)
			require.GreaterOrEqual(t, b.Subtotal, 0.0)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	in := Input{VolumeCm3: 42.42, Material: plaBasic, Quantity: 4, LocalDelivery: true, Size: SizeFullVolume}
	require.Equal(t, Compute(in), Compute(in))
}
