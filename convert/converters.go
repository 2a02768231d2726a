package convert

import (
	"context"

	"github.com/BaSui01/extrudeflow/colour"
	"github.com/BaSui01/extrudeflow/scene"
)

// Meta keys required by the model converters.
const (
	KeyX              = "x"
	KeyY              = "y"
	KeyZ              = "z"
	KeyBlackThickness = "blackThickness"
)

// backingDisplay is the colour shown for the backing plate.
const backingDisplay = "black"

type svgConverter struct{ *Pipeline }

func (svgConverter) Required() []string { return nil }

func (c svgConverter) Convert(ctx context.Context, req Request) (Output, error) {
	text, err := c.tracer.Trace(ctx, req.Files[0])
	if err != nil {
		return Output{}, err
	}
	return Output{Text: text}, nil
}

type stlConverter struct{ *Pipeline }

func (stlConverter) Required() []string { return []string{KeyX, KeyY, KeyZ} }

func (c stlConverter) Convert(ctx context.Context, req Request) (Output, error) {
	space := c.scratch.Space()
	defer space.Cleanup()

	svg, err := c.tracer.Trace(ctx, req.Files[0])
	if err != nil {
		return Output{}, err
	}
	svgPath, err := space.Write("image.svg", []byte(svg))
	if err != nil {
		return Output{}, err
	}
	script, err := scene.Extrusion(svgPath, req.Z, req.X, req.Y)
	if err != nil {
		return Output{}, err
	}
	data, err := c.engine.Render(ctx, Render{Scene: script, Format: FormatSTL})
	if err != nil {
		return Output{}, err
	}
	return Output{File: data}, nil
}

// flatConverter prints every colour region side by side at height z.
type flatConverter struct{ *Pipeline }

func (flatConverter) Required() []string { return []string{KeyX, KeyY, KeyZ} }

func (c flatConverter) Convert(ctx context.Context, req Request) (Output, error) {
	space := c.scratch.Space()
	defer space.Cleanup()

	channels, err := c.separate(ctx, req, req.Files[0], false)
	if err != nil {
		return Output{}, err
	}
	pieces := make([]piece, 0, len(channels))
	for _, ch := range channels {
		pieces = append(pieces, piece{channel: ch, thickness: req.Z})
	}
	parts, err := c.solids(ctx, space, req, pieces)
	if err != nil {
		return Output{}, err
	}
	return c.assemble(ctx, scene.ModeFlat, parts)
}

// backedConverter sets colour regions on top of a backing plate covering
// every non-background pixel.
type backedConverter struct{ *Pipeline }

func (backedConverter) Required() []string {
	return []string{KeyX, KeyY, KeyZ, KeyBlackThickness}
}

func (c backedConverter) Convert(ctx context.Context, req Request) (Output, error) {
	space := c.scratch.Space()
	defer space.Cleanup()

	base := req.BlackThickness
	if base == 0 {
		base = req.Z
	}

	channels, err := c.separate(ctx, req, req.Files[0], true)
	if err != nil {
		return Output{}, err
	}
	pieces := make([]piece, 0, len(channels))
	for _, ch := range channels {
		if ch.Name == colour.BackgroundChannel {
			pieces = append(pieces, piece{channel: ch, thickness: base, display: backingDisplay})
			continue
		}
		pieces = append(pieces, piece{channel: ch, thickness: req.Z, offsetZ: base/2 + req.Z/2})
	}
	parts, err := c.solids(ctx, space, req, pieces)
	if err != nil {
		return Output{}, err
	}
	if !hasForeground(parts) {
		parts = nil
	}
	return c.assemble(ctx, scene.ModeBacked, parts)
}

func hasForeground(parts []scene.Part) bool {
	for _, p := range parts {
		if p.Colour != colour.BackgroundChannel {
			return true
		}
	}
	return false
}

// stackedConverter treats every file as one layer of thickness z, stacked
// in submission order.
type stackedConverter struct{ *Pipeline }

func (stackedConverter) Required() []string { return []string{KeyX, KeyY, KeyZ} }

func (c stackedConverter) Convert(ctx context.Context, req Request) (Output, error) {
	space := c.scratch.Space()
	defer space.Cleanup()

	var pieces []piece
	for i, file := range req.Files {
		channels, err := c.separate(ctx, req, file, false)
		if err != nil {
			return Output{}, err
		}
		for _, ch := range channels {
			pieces = append(pieces, piece{channel: ch, thickness: req.Z, offsetZ: float64(i) * req.Z})
		}
	}
	parts, err := c.solids(ctx, space, req, pieces)
	if err != nil {
		return Output{}, err
	}
	return c.assemble(ctx, scene.ModeBacked, parts)
}
