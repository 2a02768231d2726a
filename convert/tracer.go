package convert

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Tracer turns a raster image into vector (SVG) text.
type Tracer interface {
	Trace(ctx context.Context, image []byte) (string, error)
}

// PotraceTracer converts the image to PNM with ImageMagick and traces it
// with potrace.
type PotraceTracer struct {
	ConvertPath string
	PotracePath string

	scratch *Scratch
	run     runner
}

// NewPotraceTracer creates a tracer writing intermediates under scratch.
func NewPotraceTracer(convertPath, potracePath string, scratch *Scratch, logger *zap.Logger, hook ToolHook) *PotraceTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PotraceTracer{
		ConvertPath: convertPath,
		PotracePath: potracePath,
		scratch:     scratch,
		run:         runner{logger: logger.With(zap.String("component", "tracer")), hook: hook},
	}
}

// Trace implements Tracer.
func (t *PotraceTracer) Trace(ctx context.Context, image []byte) (string, error) {
	space := t.scratch.Space()
	defer space.Cleanup()

	png, err := space.Write("trace.png", image)
	if err != nil {
		return "", err
	}
	pnm := space.Path("trace.pnm")
	svg := space.Path("trace.svg")

	if err := t.run.run(ctx, "convert", t.ConvertPath, false, png, pnm); err != nil {
		return "", err
	}
	if err := t.run.run(ctx, "potrace", t.PotracePath, false, pnm, "-s", "-o", svg); err != nil {
		return "", err
	}

	out, err := os.ReadFile(svg)
	if err != nil {
		return "", fmt.Errorf("read traced svg: %w", err)
	}
	return string(out), nil
}
