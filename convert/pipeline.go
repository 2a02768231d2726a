// Package convert turns uploaded images into vector text or printable
// models using an external tracer and geometry engine.
package convert

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/BaSui01/extrudeflow/colour"
	"github.com/BaSui01/extrudeflow/internal/pool"
	"github.com/BaSui01/extrudeflow/layout"
	"github.com/BaSui01/extrudeflow/scene"
	"github.com/BaSui01/extrudeflow/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request is the decoded input of one conversion.
type Request struct {
	Filename string
	Files    [][]byte

	X, Y, Z        float64
	BlackThickness float64

	// Colours > 0 reduces the image palette before separation.
	Colours int
	Reduce  string
	// MinIsland > 1 drops mask islands smaller than this many pixels.
	MinIsland int
}

// Output holds either text (vector results) or binary model data.
type Output struct {
	File []byte
	Text string
}

// Converter performs one conversion type.
type Converter interface {
	// Required lists the meta keys the converter needs.
	Required() []string
	Convert(ctx context.Context, req Request) (Output, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithComputePool offloads pixel work to p.
func WithComputePool(p *pool.GoroutinePool) Option {
	return func(pl *Pipeline) { pl.compute = p }
}

// WithParallelism bounds concurrent per-part solid generation.
func WithParallelism(n int) Option {
	return func(pl *Pipeline) {
		if n > 0 {
			pl.parallelism = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// Pipeline holds the collaborators shared by every converter.
type Pipeline struct {
	tracer     Tracer
	engine     Engine
	classifier *colour.Classifier
	scratch    *Scratch

	compute     *pool.GoroutinePool
	parallelism int
	logger      *zap.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(tracer Tracer, engine Engine, classifier *colour.Classifier, scratch *Scratch, opts ...Option) *Pipeline {
	p := &Pipeline{
		tracer:      tracer,
		engine:      engine,
		classifier:  classifier,
		scratch:     scratch,
		parallelism: runtime.NumCPU(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "pipeline"))
	return p
}

// Converters returns the registry of every conversion type.
func (p *Pipeline) Converters() map[string]Converter {
	return map[string]Converter{
		"svg":         svgConverter{p},
		"stl":         stlConverter{p},
		"3mf":         flatConverter{p},
		"backed_3mf":  backedConverter{p},
		"stacked_3mf": stackedConverter{p},
	}
}

// separate decodes data, applies optional palette reduction, and splits it
// into colour channels on the compute pool.
func (p *Pipeline) separate(ctx context.Context, req Request, data []byte, withBackground bool) ([]colour.Channel, error) {
	return pool.Run(ctx, p.compute, func(ctx context.Context) ([]colour.Channel, error) {
		img, err := colour.Decode(data)
		if err != nil {
			return nil, types.ValidationError("file is not a supported image").WithCause(err)
		}
		if req.Colours > 0 {
			method, err := colour.ParseReduceMethod(req.Reduce)
			if err != nil {
				return nil, err
			}
			reduced, err := p.classifier.Reduce(img, req.Colours, method)
			if err != nil {
				return nil, err
			}
			img = reduced
		}

		channels, err := p.classifier.Separate(ctx, img, withBackground)
		if err != nil {
			return nil, err
		}
		if req.MinIsland > 1 {
			for _, ch := range channels {
				if n := colour.RemoveIslands(ch.Mask, req.MinIsland); n > 0 {
					p.logger.Debug("removed islands", zap.String("colour", ch.Name), zap.Int("count", n))
				}
			}
		}
		return channels, nil
	})
}

// piece is one channel to be turned into a placed solid.
type piece struct {
	channel   colour.Channel
	thickness float64
	offsetZ   float64
	display   string
}

// solids measures, traces and extrudes every piece concurrently. Empty
// pieces are skipped. Returned parts keep the order of pieces.
func (p *Pipeline) solids(ctx context.Context, space *Space, req Request, pieces []piece) ([]scene.Part, error) {
	parts := make([]*scene.Part, len(pieces))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i, pc := range pieces {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("channel solid panicked",
						zap.String("colour", pc.channel.Name),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
					err = types.NewError(types.ErrInternal, "internal error")
				}
			}()

			part, err := p.solid(ctx, space, req, i, pc)
			if types.IsCode(err, types.ErrEmptyInput) {
				p.logger.Info("skipping empty channel", zap.String("colour", pc.channel.Name))
				return nil
			}
			if err != nil {
				return fmt.Errorf("channel %s: %w", pc.channel.Name, err)
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]scene.Part, 0, len(parts))
	for _, part := range parts {
		if part != nil {
			out = append(out, *part)
		}
	}
	return out, nil
}

func (p *Pipeline) solid(ctx context.Context, space *Space, req Request, idx int, pc piece) (*scene.Part, error) {
	place, err := layout.Measure(pc.channel.Mask, req.X, req.Y)
	if err != nil {
		return nil, err
	}
	png, err := pool.Run(ctx, p.compute, func(context.Context) ([]byte, error) {
		return colour.EncodePNG(pc.channel.Mask)
	})
	if err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}

	svg, err := p.tracer.Trace(ctx, png)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%d_%s", idx, colour.SanitizeName(pc.channel.Name))
	svgPath, err := space.Write(name+".svg", []byte(svg))
	if err != nil {
		return nil, err
	}
	script, err := scene.Extrusion(svgPath, pc.thickness, place.Width, place.Height)
	if err != nil {
		return nil, err
	}
	stl, err := p.engine.Render(ctx, Render{Scene: script, Format: FormatSTL})
	if err != nil {
		return nil, err
	}
	stlPath, err := space.Write(name+".stl", stl)
	if err != nil {
		return nil, err
	}

	return &scene.Part{
		Colour:    pc.channel.Name,
		Display:   pc.display,
		Source:    stlPath,
		OffsetX:   place.OffsetX,
		OffsetY:   place.OffsetY,
		OffsetZ:   pc.offsetZ,
		Thickness: pc.thickness,
		Area:      place.Area,
	}, nil
}

// assemble renders parts as a multi-material 3MF. No parts is an empty input.
func (p *Pipeline) assemble(ctx context.Context, mode scene.Mode, parts []scene.Part) (Output, error) {
	if len(parts) == 0 {
		return Output{}, types.EmptyInputError("image has no printable colour regions")
	}
	b := scene.NewBuilder(mode)
	for _, part := range parts {
		b.Add(part)
	}
	script, err := b.Build()
	if err != nil {
		return Output{}, err
	}
	p.logger.Info("rendering scene", zap.Int("parts", len(parts)))
	data, err := p.engine.Render(ctx, Render{Scene: script, Format: Format3MF})
	if err != nil {
		return Output{}, err
	}
	return Output{File: data}, nil
}

// Identify maps every distinct colour of an image to its palette name.
func (p *Pipeline) Identify(ctx context.Context, data []byte) (map[string]string, error) {
	return pool.Run(ctx, p.compute, func(context.Context) (map[string]string, error) {
		img, err := colour.Decode(data)
		if err != nil {
			return nil, types.ValidationError("file is not a supported image").WithCause(err)
		}
		return p.classifier.Identify(img), nil
	})
}
