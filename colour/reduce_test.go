package colour

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distinct(img *image.NRGBA) map[color.NRGBA]struct{} {
	out := make(map[color.NRGBA]struct{})
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out[img.NRGBAAt(x, y)] = struct{}{}
		}
	}
	return out
}

func TestParseReduceMethod(t *testing.T) {
	m, err := ParseReduceMethod("")
	require.NoError(t, err)
	assert.Equal(t, ReduceKMeans, m)

	m, err = ParseReduceMethod("greyscale")
	require.NoError(t, err)
	assert.Equal(t, ReduceGreyscale, m)

	_, err = ParseReduceMethod("posterize")
	assert.Error(t, err)
}

func TestReduce_Greyscale(t *testing.T) {
	img := fill(3, 1, func(x, _ int) color.NRGBA {
		return []color.NRGBA{{R: 20, G: 20, B: 20, A: 255}, {R: 200, G: 210, B: 220, A: 255}, white}[x]
	})

	out, err := NewClassifier().Reduce(img, 2, ReduceGreyscale)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, white, out.NRGBAAt(1, 0))
	assert.Equal(t, white, out.NRGBAAt(2, 0))

	_, err = NewClassifier().Reduce(img, 1, ReduceGreyscale)
	assert.Error(t, err)
}

func TestReduce_GreyscaleUsesLabLightness(t *testing.T) {
	blue := color.NRGBA{B: 255, A: 255}
	img := fill(2, 1, func(x, _ int) color.NRGBA {
		return []color.NRGBA{blue, {R: 20, G: 20, B: 20, A: 255}}[x]
	})

	// L* of pure blue is about 32, which lands on the middle of three levels.
	out, err := NewClassifier().Reduce(img, 3, ReduceGreyscale)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(1, 0))
}

func TestReduce_KMeansSingleColour(t *testing.T) {
	img := fill(8, 8, func(x, _ int) color.NRGBA {
		if x < 4 {
			return red
		}
		return white
	})

	out, err := NewClassifier().Reduce(img, 1, ReduceKMeans)
	require.NoError(t, err)
	assert.Equal(t, red, out.NRGBAAt(0, 0))
	assert.Equal(t, white, out.NRGBAAt(7, 7))
	assert.Len(t, distinct(out), 2)
}

func TestReduce_DominantBoundsColours(t *testing.T) {
	img := fill(8, 8, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(200 + x), G: uint8(10 + y), B: 10, A: 255}
	})

	out, err := NewClassifier().Reduce(img, 1, ReduceDominant)
	require.NoError(t, err)
	assert.Len(t, distinct(out), 1)
}

func TestReduce_RejectsZero(t *testing.T) {
	_, err := NewClassifier().Reduce(fill(1, 1, func(int, int) color.NRGBA { return red }), 0, ReduceKMeans)
	assert.Error(t, err)
}
