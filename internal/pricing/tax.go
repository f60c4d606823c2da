package pricing

// TaxRates resolves destination tax data. Implementations must be safe for
// concurrent reads.
type TaxRates interface {
	StateForZip(zip string) (string, bool)
	RateForState(state string) float64
}

// TaxResult carries the outcome of ApplyTax together with the jurisdiction used.
type TaxResult struct {
	State string
	Rate  float64
	Tax   float64
	Total float64
}

// ApplyTax adds destination sales tax to subtotal. A ZIP missing from the tables is
// treated as a tax-free jurisdiction, and so is a state without a configured rate.
func ApplyTax(rates TaxRates, destinationZip string, subtotal float64) TaxResult {
	res := TaxResult{Total: subtotal}
	if rates == nil {
		return res
	}
	state, ok := rates.StateForZip(destinationZip)
	if !ok {
		return res
	}
	res.State = state
	rate := rates.RateForState(state)
	if rate <= 0 {
		return res
	}
	res.Rate = rate
	if subtotal <= 0 {
		return res
	}
	res.Tax = rate * subtotal
	res.Total = subtotal + res.Tax
	return res
}
