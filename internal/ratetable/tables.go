// Package ratetable holds the destination lookup tables used for sales tax: ZIP code
// to state, and state to combined tax rate. Tables are built once and never mutated,
// so a single *Tables can be shared by every request.
package ratetable

import (
	"strings"
)

// Tables is an immutable pair of lookups.
type Tables struct {
	zipToState  map[string]string
	stateToRate map[string]float64
}

// New builds tables from the supplied maps. The maps are copied.
func New(zipToState map[string]string, stateToRate map[string]float64) *Tables {
	t := &Tables{
		zipToState:  make(map[string]string, len(zipToState)),
		stateToRate: make(map[string]float64, len(stateToRate)),
	}
	for zip, state := range zipToState {
		if key := NormalizeZip(zip); key != "" {
			t.zipToState[key] = strings.TrimSpace(state)
		}
	}
	for state, rate := range stateToRate {
		t.stateToRate[strings.TrimSpace(state)] = rate
	}
	return t
}

// StateForZip returns the state name registered for zip.
func (t *Tables) StateForZip(zip string) (string, bool) {
	if t == nil {
		return "", false
	}
	state, ok := t.zipToState[NormalizeZip(zip)]
	return state, ok
}

// RateForState returns the combined rate for state as a fraction, or 0 when the state
// has no configured rate.
func (t *Tables) RateForState(state string) float64 {
	if t == nil {
		return 0
	}
	return t.stateToRate[strings.TrimSpace(state)]
}

// Len reports the number of ZIP and state entries.
func (t *Tables) Len() (zips, states int) {
	if t == nil {
		return 0, 0
	}
	return len(t.zipToState), len(t.stateToRate)
}

// NormalizeZip reduces a US ZIP or ZIP+4 to its five digit form. Spreadsheet exports
// drop leading zeros, so short numeric codes are left padded.
func NormalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if idx := strings.IndexByte(zip, '-'); idx >= 0 {
		zip = zip[:idx]
	}
	if zip == "" {
		return ""
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return zip
		}
	}
	if len(zip) < 5 {
		zip = strings.Repeat("0", 5-len(zip)) + zip
	}
	return zip
}
