package colour

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/BaSui01/extrudeflow/types"
	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// ReduceMethod selects how a reduced palette is derived from an image.
type ReduceMethod string

const (
	ReduceKMeans    ReduceMethod = "kmeans"
	ReduceDominant  ReduceMethod = "dominant"
	ReduceGreyscale ReduceMethod = "greyscale"
)

// ParseReduceMethod validates a method name; empty selects kmeans.
func ParseReduceMethod(s string) (ReduceMethod, error) {
	switch ReduceMethod(s) {
	case "":
		return ReduceKMeans, nil
	case ReduceKMeans, ReduceDominant, ReduceGreyscale:
		return ReduceMethod(s), nil
	}
	return "", types.ValidationError(fmt.Sprintf("unknown reduce method %q", s))
}

const maxKMeansSamples = 12000

// Reduce redraws img using at most k colours. Background pixels are kept
// untouched so they stay excluded from separation.
func (c *Classifier) Reduce(img image.Image, k int, method ReduceMethod) (*image.NRGBA, error) {
	if k < 1 {
		return nil, types.ValidationError("'meta/colours' must be at least 1")
	}
	if method == ReduceGreyscale {
		if k < 2 {
			return nil, types.ValidationError("greyscale reduction needs at least 2 levels")
		}
		return c.reduceGreyscale(img, k), nil
	}

	var palette []colorful.Color
	switch method {
	case ReduceDominant:
		palette = c.dominantPalette(img, k)
	default:
		palette = c.kmeansPalette(img, k)
	}
	if len(palette) == 0 {
		return toNRGBA(img), nil
	}

	lab := make([][3]float64, len(palette))
	for i, p := range palette {
		l, a, b := p.Lab()
		lab[i] = [3]float64{l, a, b}
	}

	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	memo := make(map[uint32]color.NRGBA)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			px := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			if c.IsBackground(px) {
				out.SetNRGBA(x, y, px)
				continue
			}
			key := pack(px.R, px.G, px.B)
			mapped, ok := memo[key]
			if !ok {
				mapped = nearestLab(lab, palette, px)
				memo[key] = mapped
			}
			out.SetNRGBA(x, y, mapped)
		}
	}
	return out, nil
}

func nearestLab(lab [][3]float64, palette []colorful.Color, px color.NRGBA) color.NRGBA {
	l, a, b := colorful.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}.Lab()
	best, bestDist := 0, math.Inf(1)
	for i, p := range lab {
		d := (l-p[0])*(l-p[0]) + (a-p[1])*(a-p[1]) + (b-p[2])*(b-p[2])
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	r, g, bl := palette[best].Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: bl, A: 255}
}

func (c *Classifier) kmeansPalette(img image.Image, k int) []colorful.Color {
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return nil
	}
	step := 1
	if n > maxKMeansSamples {
		step = int(math.Sqrt(float64(n)/maxKMeansSamples)) + 1
	}

	dataset := make(clusters.Observations, 0, min(n, maxKMeansSamples))
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.IsBackground(px) {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(px.R) / 255,
				float64(px.G) / 255,
				float64(px.B) / 255,
			})
		}
	}
	if len(dataset) == 0 {
		return nil
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, min(k, len(dataset)))
	if err != nil {
		c.logger.Warn("kmeans partition failed", zap.Error(err))
		return nil
	}
	out := make([]colorful.Color, 0, len(cc))
	for _, cl := range cc {
		if len(cl.Observations) == 0 || len(cl.Center) < 3 {
			continue
		}
		out = append(out, colorful.Color{R: cl.Center[0], G: cl.Center[1], B: cl.Center[2]}.Clamped())
	}
	return out
}

func (c *Classifier) dominantPalette(img image.Image, k int) []colorful.Color {
	out := make([]colorful.Color, 0, k)
	for _, cand := range dominantcolor.FindWeight(img, k+len(c.background)) {
		if c.IsBackground(color.NRGBA{R: cand.RGBA.R, G: cand.RGBA.G, B: cand.RGBA.B, A: 255}) {
			continue
		}
		col, _ := colorful.MakeColor(cand.RGBA)
		out = append(out, col.Clamped())
		if len(out) == k {
			break
		}
	}
	return out
}

// reduceGreyscale maps CIE L* lightness onto k evenly spaced grey levels.
func (c *Classifier) reduceGreyscale(img image.Image, k int) *image.NRGBA {
	levels := floats.Span(make([]float64, k), 0, 255)
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			px := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			if c.IsBackground(px) {
				out.SetNRGBA(x, y, px)
				continue
			}
			l, _, _ := colorful.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}.Lab()
			lum := l * 255
			v := uint8(math.Round(levels[nearestLevel(levels, lum)]))
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

func nearestLevel(levels []float64, v float64) int {
	best := 0
	for i := range levels {
		if math.Abs(levels[i]-v) < math.Abs(levels[best]-v) {
			best = i
		}
	}
	return best
}

func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}
