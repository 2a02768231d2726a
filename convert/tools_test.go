package convert

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/extrudeflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func newTestScratch(t *testing.T) *Scratch {
	t.Helper()
	s, err := NewScratch(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestPotraceTracer(t *testing.T) {
	convertBin := script(t, `cp "$1" "$2"`)
	potraceBin := script(t, `printf '<svg>%s</svg>' "$(cat "$1")" > "$4"`)
	scratch := newTestScratch(t)

	tracer := NewPotraceTracer(convertBin, potraceBin, scratch, nil, nil)
	svg, err := tracer.Trace(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "<svg>img</svg>", svg)

	entries, err := os.ReadDir(scratch.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPotraceTracer_ConvertFails(t *testing.T) {
	var tools []string
	hook := func(tool string, err error, _ time.Duration) {
		if err != nil {
			tools = append(tools, tool)
		}
	}
	tracer := NewPotraceTracer(script(t, "echo boom >&2; exit 3"), script(t, "exit 0"), newTestScratch(t), nil, hook)

	_, err := tracer.Trace(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrToolFailure))
	assert.Equal(t, "convert failure", types.Message(err))
	assert.Equal(t, []string{"convert"}, tools)
}

func TestSCADEngine_STL(t *testing.T) {
	openscad := script(t, `test "$1" = "-o" || exit 9; printf 'solid' > "$2"`)
	engine := NewSCADEngine(openscad, "unused", 0, newTestScratch(t), nil, nil)

	data, err := engine.Render(context.Background(), Render{Scene: "cube(1);", Format: FormatSTL})
	require.NoError(t, err)
	assert.Equal(t, "solid", string(data))
	assert.Equal(t, 8, engine.Jobs)
}

func TestSCADEngine_3MFStreamsOutput(t *testing.T) {
	colorscad := script(t, `echo "rendering part 1"; echo "rendering part 2"; test "$3" = "-i" && test "$5" = "-j" || exit 9; printf '3mf' > "$2"`)
	core, logs := observer.New(zap.InfoLevel)
	engine := NewSCADEngine("unused", colorscad, 4, newTestScratch(t), zap.New(core), nil)

	data, err := engine.Render(context.Background(), Render{Scene: "cube(1);", Format: Format3MF})
	require.NoError(t, err)
	assert.Equal(t, "3mf", string(data))
	assert.Equal(t, 2, logs.FilterMessage("colorscad").Len())
}

func TestSCADEngine_3MFLongOutputLine(t *testing.T) {
	colorscad := script(t, `head -c 102400 /dev/zero | tr '\0' a; echo; head -c 1048576 /dev/zero | tr '\0' b; echo; printf '3mf' > "$2"`)
	core, logs := observer.New(zap.InfoLevel)
	engine := NewSCADEngine("unused", colorscad, 1, newTestScratch(t), zap.New(core), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := engine.Render(ctx, Render{Scene: "cube(1);", Format: Format3MF})
	require.NoError(t, err)
	assert.Equal(t, "3mf", string(data))

	lines := logs.FilterMessage("colorscad").All()
	require.Len(t, lines, 2)
	assert.Len(t, lines[0].ContextMap()["line"], 102400)
}

func TestRunnerStream_DrainsOversizedLine(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := runner{logger: zap.New(core)}
	src := strings.NewReader(strings.Repeat("x", maxLineBytes+16) + "\nafter\n")

	r.stream("colorscad", src)
	assert.Zero(t, src.Len())
	assert.Equal(t, 1, logs.FilterMessage("stopped streaming tool output").Len())
	assert.Zero(t, logs.FilterMessage("colorscad").Len())
}

func TestSCADEngine_Failure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	engine := NewSCADEngine(script(t, "echo parse error >&2; exit 1"), "unused", 1, newTestScratch(t), zap.New(core), nil)

	_, err := engine.Render(context.Background(), Render{Scene: "x", Format: FormatSTL})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrToolFailure))
	assert.Equal(t, "openscad failure", types.Message(err))

	entries := logs.FilterMessage("tool failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "parse error\n", entries[0].ContextMap()["stderr"])
}

func TestSCADEngine_UnknownFormat(t *testing.T) {
	engine := NewSCADEngine("a", "b", 1, newTestScratch(t), nil, nil)
	_, err := engine.Render(context.Background(), Render{Format: "obj"})
	assert.True(t, types.IsCode(err, types.ErrInternal))
}

func TestScratch_Cleanup(t *testing.T) {
	s := newTestScratch(t)
	a, b := s.Space(), s.Space()

	pa, err := a.Write("x.txt", []byte("a"))
	require.NoError(t, err)
	pb, err := b.Write("x.txt", []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, pa, pb)

	a.Path("never-created")
	a.Cleanup()
	_, err = os.Stat(pa)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(pb)
	assert.NoError(t, err)
}
