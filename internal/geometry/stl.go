package geometry

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hschendel/stl"
)

// STLExtractor measures ASCII and binary STL files. Coordinates are taken to be
// millimetres, which is what slicers assume for STL.
type STLExtractor struct{}

// Extract parses data as STL.
func (STLExtractor) Extract(ctx context.Context, data []byte) (ModelGeometry, error) {
	if err := ctx.Err(); err != nil {
		return ModelGeometry{}, err
	}
	if len(data) == 0 {
		return ModelGeometry{}, fmt.Errorf("%w: empty payload", ErrUnreadable)
	}
	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return ModelGeometry{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	triangles := make([]Triangle, 0, len(solid.Triangles))
	for _, t := range solid.Triangles {
		var tri Triangle
		for i, v := range t.Vertices {
			tri[i] = Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
		}
		triangles = append(triangles, tri)
	}
	if err := ctx.Err(); err != nil {
		return ModelGeometry{}, err
	}
	g, err := Measure(triangles)
	if err != nil {
		return ModelGeometry{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return g, nil
}
