// Package catalog holds the purchasable filament materials. A Catalog is assembled
// once at startup, from built-in defaults or the SQLite store, and is read-only
// afterwards.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownMaterial is returned when no entry exists for a filament key.
	ErrUnknownMaterial = errors.New("catalog: unknown material")
	// ErrIncompleteMaterial is returned when a key has a density or a price but not both.
	ErrIncompleteMaterial = errors.New("catalog: material missing density or price")
)

// MaterialSpec describes one purchasable filament.
type MaterialSpec struct {
	Name           string  `json:"name"`
	DensityGPerCm3 float64 `json:"density_g_per_cm3"`
	PricePerKg     float64 `json:"price_per_kg"`
}

// Entry is a raw catalog row. Zero or negative values mean the field is absent.
type Entry struct {
	Name           string
	DensityGPerCm3 float64
	PricePerKg     float64
}

// Catalog is an immutable set of materials keyed by name.
type Catalog struct {
	entries map[string]Entry
}

// New builds a catalog from raw entries. Later entries with the same name win.
func New(entries []Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		e.Name = name
		c.entries[name] = e
	}
	return c
}

// FromTables builds a catalog from separate density and price tables, which is how
// the storefront historically kept them. A key present in only one table yields an
// incomplete entry.
func FromTables(densities, prices map[string]float64) *Catalog {
	merged := map[string]*Entry{}
	get := func(name string) *Entry {
		if e, ok := merged[name]; ok {
			return e
		}
		e := &Entry{Name: name}
		merged[name] = e
		return e
	}
	for name, d := range densities {
		get(name).DensityGPerCm3 = d
	}
	for name, p := range prices {
		get(name).PricePerKg = p
	}
	entries := make([]Entry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, *e)
	}
	return New(entries)
}

// Defaults returns the built-in filament line-up.
func Defaults() *Catalog {
	return New([]Entry{
		{Name: "PLA Basic", DensityGPerCm3: 1.24, PricePerKg: 19.99},
		{Name: "PLA Matte", DensityGPerCm3: 1.32, PricePerKg: 19.99},
		{Name: "PETG Basic", DensityGPerCm3: 1.27, PricePerKg: 19.99},
		{Name: "ABS", DensityGPerCm3: 1.04, PricePerKg: 19.99},
		{Name: "ASA", DensityGPerCm3: 1.07, PricePerKg: 24.99},
		{Name: "TPU 95A", DensityGPerCm3: 1.22, PricePerKg: 34.99},
	})
}

// Lookup resolves a filament key.
func (c *Catalog) Lookup(name string) (MaterialSpec, error) {
	if c == nil {
		return MaterialSpec{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	e, ok := c.entries[strings.TrimSpace(name)]
	if !ok {
		return MaterialSpec{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	if !e.complete() {
		return MaterialSpec{}, fmt.Errorf("%w: %q", ErrIncompleteMaterial, e.Name)
	}
	return MaterialSpec{Name: e.Name, DensityGPerCm3: e.DensityGPerCm3, PricePerKg: e.PricePerKg}, nil
}

// List returns every complete material sorted by name.
func (c *Catalog) List() []MaterialSpec {
	if c == nil {
		return nil
	}
	out := make([]MaterialSpec, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.complete() {
			continue
		}
		out = append(out, MaterialSpec{Name: e.Name, DensityGPerCm3: e.DensityGPerCm3, PricePerKg: e.PricePerKg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Incomplete returns the sorted keys of entries missing a density or a price.
func (c *Catalog) Incomplete() []string {
	if c == nil {
		return nil
	}
	var out []string
	for name, e := range c.entries {
		if !e.complete() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries, complete or not.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (e Entry) complete() bool {
	return e.DensityGPerCm3 > 0 && e.PricePerKg > 0
}
