// Package layout computes where a colour mask's geometry sits on the
// physical print bed.
package layout

import (
	"fmt"
	"image"

	"github.com/BaSui01/extrudeflow/colour"
	"github.com/BaSui01/extrudeflow/types"
)

// Placement describes a mask's marked region and its physical placement.
// Offsets are millimetres from the canvas centre, Y growing upward.
type Placement struct {
	Left, Right, Top, Bottom int
	Area                     int
	CX, CY                   float64
	WidthDpmm, HeightDpmm    float64
	OffsetX, OffsetY         float64
	// Width and Height are the physical size of the bounding box in mm.
	Width, Height float64
}

// Measure locates the marked pixels of mask and maps them onto an x by y mm
// bed. The result depends only on its inputs.
func Measure(mask *image.Gray, x, y float64) (Placement, error) {
	if x <= 0 || y <= 0 {
		return Placement{}, types.ValidationError(fmt.Sprintf("physical size must be positive, got %gx%g", x, y))
	}
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	p := Placement{Left: w, Top: h, Right: -1, Bottom: -1}
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			if !colour.Marked(mask, b.Min.X+px, b.Min.Y+py) {
				continue
			}
			p.Area++
			p.Left = min(p.Left, px)
			p.Right = max(p.Right, px)
			p.Top = min(p.Top, py)
			p.Bottom = max(p.Bottom, py)
		}
	}
	if p.Area == 0 {
		return Placement{}, types.EmptyInputError("mask has no geometry")
	}

	p.WidthDpmm = float64(w) / x
	p.HeightDpmm = float64(h) / y
	p.CX = float64(p.Left+p.Right) / 2
	p.CY = float64(p.Top+p.Bottom) / 2
	p.OffsetX = -((float64(w)/2 - p.CX) / p.WidthDpmm)
	p.OffsetY = (float64(h)/2 - p.CY) / p.HeightDpmm
	p.Width = float64(p.Right-p.Left+1) / p.WidthDpmm
	p.Height = float64(p.Bottom-p.Top+1) / p.HeightDpmm
	return p, nil
}
