package geometry

import "math"

// Vec3 is a point in model space.
type Vec3 [3]float64

// Triangle is one facet of a closed mesh.
type Triangle [3]Vec3

// Measure computes volume and extents for a triangle mesh. Volume is the absolute sum
// of signed tetrahedra spanned by each facet and the origin, which is exact for
// closed, consistently wound meshes.
func Measure(triangles []Triangle) (ModelGeometry, error) {
	if len(triangles) == 0 {
		return ModelGeometry{}, ErrEmptyMesh
	}
	minV := Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxV := Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}

	var signed float64
	for _, tri := range triangles {
		for _, v := range tri {
			for axis := 0; axis < 3; axis++ {
				if math.IsNaN(v[axis]) || math.IsInf(v[axis], 0) {
					return ModelGeometry{}, ErrUnreadable
				}
				minV[axis] = math.Min(minV[axis], v[axis])
				maxV[axis] = math.Max(maxV[axis], v[axis])
			}
		}
		signed += signedVolume(tri[0], tri[1], tri[2])
	}

	return ModelGeometry{
		VolumeMM3: math.Abs(signed),
		Extents: Extents{
			X: maxV[0] - minV[0],
			Y: maxV[1] - minV[1],
			Z: maxV[2] - minV[2],
		},
	}, nil
}

func signedVolume(a, b, c Vec3) float64 {
	// a · (b × c) / 6
	cx := b[1]*c[2] - b[2]*c[1]
	cy := b[2]*c[0] - b[0]*c[2]
	cz := b[0]*c[1] - b[1]*c[0]
	return (a[0]*cx + a[1]*cy + a[2]*cz) / 6
}
