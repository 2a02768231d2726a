package convert

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/BaSui01/extrudeflow/types"
	"go.uber.org/zap"
)

// Format is a model output format.
type Format string

const (
	FormatSTL Format = "stl"
	Format3MF Format = "3mf"
)

// Render asks the engine to evaluate a scene script.
type Render struct {
	Scene  string
	Format Format
}

// Engine evaluates scene scripts into binary models.
type Engine interface {
	Render(ctx context.Context, r Render) ([]byte, error)
}

// SCADEngine renders single solids with openscad and multi-material 3MF
// with colorscad.
type SCADEngine struct {
	OpenSCADPath  string
	ColorSCADPath string
	// Jobs is colorscad's parallelism.
	Jobs int

	scratch *Scratch
	run     runner
}

// NewSCADEngine creates an engine writing intermediates under scratch.
func NewSCADEngine(openscad, colorscad string, jobs int, scratch *Scratch, logger *zap.Logger, hook ToolHook) *SCADEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if jobs <= 0 {
		jobs = 8
	}
	return &SCADEngine{
		OpenSCADPath:  openscad,
		ColorSCADPath: colorscad,
		Jobs:          jobs,
		scratch:       scratch,
		run:           runner{logger: logger.With(zap.String("component", "engine")), hook: hook},
	}
}

// Render implements Engine.
func (e *SCADEngine) Render(ctx context.Context, r Render) ([]byte, error) {
	space := e.scratch.Space()
	defer space.Cleanup()

	in, err := space.Write("scene.scad", []byte(r.Scene))
	if err != nil {
		return nil, err
	}
	out := space.Path("scene." + string(r.Format))

	switch r.Format {
	case FormatSTL:
		err = e.run.run(ctx, "openscad", e.OpenSCADPath, false, "-o", out, in)
	case Format3MF:
		err = e.run.run(ctx, "colorscad", e.ColorSCADPath, true,
			"-o", out, "-i", in, "-j", strconv.Itoa(e.Jobs), "--", "--backend", "manifold")
	default:
		return nil, types.NewError(types.ErrInternal, fmt.Sprintf("unsupported render format %q", r.Format))
	}
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read rendered model: %w", err)
	}
	return data, nil
}
