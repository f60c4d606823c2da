package pricing

// Fixed pricing policy.
const (
	BaseCost                = 20.00
	MinimumWeightGrams      = 0.1
	PackagingOverhead       = 0.15
	RushOrderSurcharge      = 20.00
	FullVolumeSurchargeRate = 0.15
)

// Material is the subset of a catalog entry the engine needs.
type Material struct {
	DensityGPerCm3 float64
	PricePerKg     float64
}

// Input describes a single line to price.
type Input struct {
	VolumeCm3      float64
	Material       Material
	Quantity       int
	RushOrder      bool
	LocalDelivery  bool
	DestinationZip string
	Size           SizeCategory
}

// Breakdown aggregates computed pricing components before tax.
type Breakdown struct {
	MaterialWeightGrams float64
	ShippingWeightKg    float64
	BaseCost            float64
	MaterialCost        float64
	FullVolumeSurcharge float64
	ShippingCost        float64
	RushOrderSurcharge  float64
	Subtotal            float64
}

// Compute runs the weight, cost and shipping chain for in.
//
// Material cost already includes the quantity, and the subtotal multiplies the
// per-item line (base + material + surcharge) by quantity again.
func Compute(in Input) Breakdown {
	qty := float64(in.Quantity)

	weightG := in.VolumeCm3 * in.Material.DensityGPerCm3
	if weightG < MinimumWeightGrams {
		weightG = MinimumWeightGrams
	}
	weightKg := weightG / 1000

	materialCost := 0.0
	if in.VolumeCm3 > 0 {
		materialCost = weightKg * in.Material.PricePerKg * qty
	}

	packagingG := weightG * PackagingOverhead
	shippingKg := (weightG + packagingG) / 1000
	shipping := ShippingRate(in.DestinationZip, shippingKg, in.RushOrder, in.LocalDelivery)

	rush := 0.0
	if in.RushOrder {
		rush = RushOrderSurcharge
	}
	fullVolume := 0.0
	if in.Size == SizeFullVolume {
		fullVolume = BaseCost * FullVolumeSurchargeRate
	}

	subtotal := (BaseCost+materialCost+fullVolume)*qty + shipping + rush

	return Breakdown{
		MaterialWeightGrams: weightG,
		ShippingWeightKg:    shippingKg,
		BaseCost:            BaseCost,
		MaterialCost:        materialCost,
		FullVolumeSurcharge: fullVolume,
		ShippingCost:        shipping,
		RushOrderSurcharge:  rush,
		Subtotal:            subtotal,
	}
}
