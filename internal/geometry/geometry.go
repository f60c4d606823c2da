// Package geometry turns uploaded model files into the measurements the pricing
// pipeline needs: enclosed volume and axis-aligned bounding box extents, both in
// millimetres.
package geometry

import (
	"context"
	"errors"
)

var (
	// ErrUnreadable wraps every parse or format failure.
	ErrUnreadable = errors.New("geometry: unreadable model")
	// ErrEmptyMesh is returned for files that parse but contain no facets.
	ErrEmptyMesh = errors.New("geometry: model has no facets")
)

// Extents are bounding box side lengths in millimetres.
type Extents struct {
	X float64 `json:"x_mm"`
	Y float64 `json:"y_mm"`
	Z float64 `json:"z_mm"`
}

// ModelGeometry is the measured shape of a model.
type ModelGeometry struct {
	VolumeMM3 float64 `json:"volume_mm3"`
	Extents   Extents `json:"extents"`
}

// VolumeCm3 converts the volume to cubic centimetres.
func (g ModelGeometry) VolumeCm3() float64 {
	return g.VolumeMM3 / 1000
}

// Extractor measures raw model bytes. Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (ModelGeometry, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, data []byte) (ModelGeometry, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (ModelGeometry, error) {
	return f(ctx, data)
}
