package pricing

// Build envelope limits in millimetres per axis.
const (
	MaxBuildMM      = 256.0
	StandardBuildMM = 250.0
)

// SizeCategory classifies a model by the build envelope it needs.
type SizeCategory string

const (
	SizeStandard   SizeCategory = "standard"
	SizeFullVolume SizeCategory = "full_volume"
	SizeTooLarge   SizeCategory = "too_large"
)

// Axis names a bounding box dimension.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// OverBy reports, per offending axis, how many millimetres the model exceeds the
// limit that decided its category.
type OverBy map[Axis]float64

// Classify maps bounding box extents to a size category. For too_large the excess is
// measured against MaxBuildMM, for full_volume against StandardBuildMM.
func Classify(x, y, z float64) (SizeCategory, OverBy) {
	extents := [3]struct {
		axis Axis
		v    float64
	}{{AxisX, x}, {AxisY, y}, {AxisZ, z}}

	over := OverBy{}
	for _, e := range extents {
		if e.v > MaxBuildMM {
			over[e.axis] = e.v - MaxBuildMM
		}
	}
	if len(over) > 0 {
		return SizeTooLarge, over
	}
	for _, e := range extents {
		if e.v > StandardBuildMM {
			over[e.axis] = e.v - StandardBuildMM
		}
	}
	if len(over) > 0 {
		return SizeFullVolume, over
	}
	return SizeStandard, OverBy{}
}
