package pricing

import "testing"

func TestShippingRateLocalTiers(t *testing.T) {
	cases := []struct {
		name string
		lbs  float64
		want float64
	}{
		{"tiny", 0.2, 4.50},
		{"one pound inclusive", 1, 4.50},
		{"just over one", 1.01, 4.77},
		{"two", 2, 4.77},
		{"three", 3, 5.21},
		{"four", 4, 5.62},
		{"five", 5, 6.00},
		{"six", 6, 6.35},
		{"seven", 7, 6.69},
		{"seven point oh six", 7.06, 7.01},
		{"nine", 9, 7.31},
		{"ten", 10, 7.61},
		{"eleven", 11, 11.49},
		{"twenty five", 25, 11.49},
		{"oversized", 25.5, LocalOversizedRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := localRate(tc.lbs); got != tc.want {
				t.Fatalf("localRate(%v) = %v, want %v", tc.lbs, got, tc.want)
			}
		})
	}
}

func TestShippingRateLocalFromKilograms(t *testing.T) {
	// 3.2 kg is about 7.05 lb, which falls in the 8 lb tier.
	if got := ShippingRate("94105", 3.2, false, true); got != 7.01 {
		t.Fatalf("expected 7.01, got %v", got)
	}
}

func TestShippingRateExpress(t *testing.T) {
	if got := ShippingRate("94105", 0.5, true, false); got != ExpressLightRate {
		t.Fatalf("expected light express rate at the boundary, got %v", got)
	}
	if got := ShippingRate("94105", 0.51, true, false); got != ExpressHeavyRate {
		t.Fatalf("expected heavy express rate, got %v", got)
	}
}

func TestShippingRateLocalWinsOverExpress(t *testing.T) {
	if got := ShippingRate("94105", 0.1, true, true); got != 4.50 {
		t.Fatalf("expected local tier rate, got %v", got)
	}
}

func TestShippingRateStandardIsFlat(t *testing.T) {
	for _, kg := range []float64{0, 0.3, 5, 80} {
		if got := ShippingRate("94105", kg, false, false); got != StandardShippingRate {
			t.Fatalf("ShippingRate(%v) = %v, want flat %v", kg, got, StandardShippingRate)
		}
	}
}
