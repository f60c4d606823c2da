package geometry

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// boxTriangles returns an outward-wound box with the given size whose minimum
// corner sits at origin.
func boxTriangles(origin Vec3, x, y, z float64) []Triangle {
	c := func(i, j, k float64) Vec3 {
		return Vec3{origin[0] + i*x, origin[1] + j*y, origin[2] + k*z}
	}
	faces := [][4]Vec3{
		{c(0, 0, 0), c(0, 1, 0), c(1, 1, 0), c(1, 0, 0)},
		{c(0, 0, 1), c(1, 0, 1), c(1, 1, 1), c(0, 1, 1)},
		{c(0, 0, 0), c(1, 0, 0), c(1, 0, 1), c(0, 0, 1)},
		{c(0, 1, 0), c(0, 1, 1), c(1, 1, 1), c(1, 1, 0)},
		{c(0, 0, 0), c(0, 0, 1), c(0, 1, 1), c(0, 1, 0)},
		{c(1, 0, 0), c(1, 1, 0), c(1, 1, 1), c(1, 0, 1)},
	}
	out := make([]Triangle, 0, 12)
	for _, f := range faces {
		out = append(out, Triangle{f[0], f[1], f[2]}, Triangle{f[0], f[2], f[3]})
	}
	return out
}

func asciiSTL(tris []Triangle) []byte {
	var b strings.Builder
	b.WriteString("solid box\n")
	for _, t := range tris {
		b.WriteString("  facet normal 0 0 0\n    outer loop\n")
		for _, v := range t {
			fmt.Fprintf(&b, "      vertex %g %g %g\n", v[0], v[1], v[2])
		}
		b.WriteString("    endloop\n  endfacet\n")
	}
	b.WriteString("endsolid box\n")
	return []byte(b.String())
}

func binarySTL(tris []Triangle) []byte {
	var buf bytes.Buffer
	header := make([]byte, 80)
	copy(header, "binary box")
	buf.Write(header)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(tris)))
	for _, t := range tris {
		_ = binary.Write(&buf, binary.LittleEndian, [3]float32{})
		for _, v := range t {
			_ = binary.Write(&buf, binary.LittleEndian, [3]float32{float32(v[0]), float32(v[1]), float32(v[2])})
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func TestMeasureBox(t *testing.T) {
	g, err := Measure(boxTriangles(Vec3{5, -3, 12}, 20, 30, 40))
	require.NoError(t, err)
	require.InDelta(t, 24000, g.VolumeMM3, 1e-6)
	require.InDelta(t, 24, g.VolumeCm3(), 1e-9)
	require.InDelta(t, 20, g.Extents.X, 1e-9)
	require.InDelta(t, 30, g.Extents.Y, 1e-9)
	require.InDelta(t, 40, g.Extents.Z, 1e-9)
}

func TestMeasureIgnoresWindingDirection(t *testing.T) {
	tris := boxTriangles(Vec3{}, 10, 10, 10)
	for i := range tris {
		tris[i][1], tris[i][2] = tris[i][2], tris[i][1]
	}
	g, err := Measure(tris)
	require.NoError(t, err)
	require.InDelta(t, 1000, g.VolumeMM3, 1e-9)
}

func TestMeasureRejectsEmptyAndNaN(t *testing.T) {
	_, err := Measure(nil)
	require.ErrorIs(t, err, ErrEmptyMesh)

	tris := boxTriangles(Vec3{}, 1, 1, 1)
	tris[3][1][2] = math.NaN()
	_, err = Measure(tris)
	require.ErrorIs(t, err, ErrUnreadable)
}

func TestSTLExtractorASCII(t *testing.T) {
	g, err := STLExtractor{}.Extract(context.Background(), asciiSTL(boxTriangles(Vec3{}, 252, 100, 100)))
	require.NoError(t, err)
	require.InDelta(t, 252*100*100, g.VolumeMM3, 1e-3)
	require.InDelta(t, 252, g.Extents.X, 1e-4)
}

func TestSTLExtractorBinary(t *testing.T) {
	g, err := STLExtractor{}.Extract(context.Background(), binarySTL(boxTriangles(Vec3{1, 1, 1}, 10, 20, 5)))
	require.NoError(t, err)
	require.InDelta(t, 1000, g.VolumeMM3, 1e-3)
	require.InDelta(t, 20, g.Extents.Y, 1e-5)
}

func TestSTLExtractorUnreadable(t *testing.T) {
	_, err := STLExtractor{}.Extract(context.Background(), []byte("definitely not a mesh"))
	require.ErrorIs(t, err, ErrUnreadable)

	_, err = STLExtractor{}.Extract(context.Background(), nil)
	require.ErrorIs(t, err, ErrUnreadable)
}

func TestSTLExtractorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := STLExtractor{}.Extract(ctx, asciiSTL(boxTriangles(Vec3{}, 1, 1, 1)))
	require.ErrorIs(t, err, context.Canceled)
}
