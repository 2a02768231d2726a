package layout

import (
	"image"
	"image/color"
	"testing"

	"github.com/BaSui01/extrudeflow/colour"
	"github.com/BaSui01/extrudeflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func rect(w, h int, r image.Rectangle) *image.Gray {
	m := colour.NewCanvas(w, h)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.SetGray(x, y, color.Gray{})
		}
	}
	return m
}

func TestMeasure_CentredSquare(t *testing.T) {
	// 100x100 canvas, 20x20 square in the exact centre, 50mm bed.
	p, err := Measure(rect(100, 100, image.Rect(40, 40, 60, 60)), 50, 50)
	require.NoError(t, err)

	assert.Equal(t, 40, p.Left)
	assert.Equal(t, 59, p.Right)
	assert.Equal(t, 40, p.Top)
	assert.Equal(t, 59, p.Bottom)
	assert.Equal(t, 400, p.Area)
	assert.InDelta(t, 2.0, p.WidthDpmm, 1e-9)
	assert.InDelta(t, 2.0, p.HeightDpmm, 1e-9)
	assert.InDelta(t, -0.25, p.OffsetX, 1e-9)
	assert.InDelta(t, 0.25, p.OffsetY, 1e-9)
	assert.InDelta(t, 10.0, p.Width, 1e-9)
	assert.InDelta(t, 10.0, p.Height, 1e-9)
}

func TestMeasure_TopLeftCorner(t *testing.T) {
	p, err := Measure(rect(10, 20, image.Rect(0, 0, 1, 1)), 10, 10)
	require.NoError(t, err)

	// cx=0, cy=0; wdpmm=1, hdpmm=2
	assert.InDelta(t, -5.0, p.OffsetX, 1e-9)
	assert.InDelta(t, 5.0, p.OffsetY, 1e-9)
	assert.InDelta(t, 1.0, p.Width, 1e-9)
	assert.InDelta(t, 0.5, p.Height, 1e-9)
}

func TestMeasure_Empty(t *testing.T) {
	_, err := Measure(colour.NewCanvas(4, 4), 10, 10)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrEmptyInput))
}

func TestMeasure_InvalidSize(t *testing.T) {
	_, err := Measure(rect(4, 4, image.Rect(0, 0, 1, 1)), 0, 10)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestProperty_Measure_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := rapid.IntRange(1, 40).Draw(rt, "w")
		h := rapid.IntRange(1, 40).Draw(rt, "h")
		x0 := rapid.IntRange(0, w-1).Draw(rt, "x0")
		y0 := rapid.IntRange(0, h-1).Draw(rt, "y0")
		x1 := rapid.IntRange(x0+1, w).Draw(rt, "x1")
		y1 := rapid.IntRange(y0+1, h).Draw(rt, "y1")
		mm := rapid.Float64Range(1, 300).Draw(rt, "mm")

		mask := rect(w, h, image.Rect(x0, y0, x1, y1))
		a, err := Measure(mask, mm, mm)
		require.NoError(rt, err)
		b, err := Measure(mask, mm, mm)
		require.NoError(rt, err)
		require.Equal(rt, a, b)

		require.Equal(rt, (x1-x0)*(y1-y0), a.Area)
		require.Equal(rt, x0, a.Left)
		require.Equal(rt, x1-1, a.Right)
	})
}
