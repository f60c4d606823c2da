package pricing

// PoundsPerKg converts carrier weights from kilograms to pounds.
const PoundsPerKg = 2.20462

// Standard and express (rush) carrier rates.
const (
	StandardShippingRate   = 7.90
	ExpressLightRate       = 26.35
	ExpressHeavyRate       = 30.45
	ExpressLightLimitKg    = 0.5
	LocalOversizedRate     = 29.19
	localOversizedLimitLbs = 25.0
)

type weightTier struct {
	maxLbs float64
	rate   float64
}

// localTiers is the regional delivery rate card. Every upper bound is inclusive.
var localTiers = []weightTier{
	{1, 4.50},
	{2, 4.77},
	{3, 5.21},
	{4, 5.62},
	{5, 6.00},
	{6, 6.35},
	{7, 6.69},
	{8, 7.01},
	{9, 7.31},
	{10, 7.61},
	{localOversizedLimitLbs, 11.49},
}

// ShippingRate returns the carrier cost for a parcel of weightKg. Local delivery wins
// over express when both are requested. The destination does not change the rate
// today but is part of the contract so zone pricing can be added without touching
// callers.
func ShippingRate(destinationZip string, weightKg float64, express, local bool) float64 {
	_ = destinationZip
	switch {
	case local:
		return localRate(weightKg * PoundsPerKg)
	case express:
		if weightKg <= ExpressLightLimitKg {
			return ExpressLightRate
		}
		return ExpressHeavyRate
	default:
		return StandardShippingRate
	}
}

func localRate(lbs float64) float64 {
	for _, tier := range localTiers {
		if lbs <= tier.maxLbs {
			return tier.rate
		}
	}
	return LocalOversizedRate
}
