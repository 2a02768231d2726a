package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/extrudeflow/colour"
	"github.com/BaSui01/extrudeflow/convert"
	"github.com/BaSui01/extrudeflow/testutil"
	"github.com/BaSui01/extrudeflow/testutil/mocks"
	"github.com/BaSui01/extrudeflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerFixture struct {
	engine  *mocks.MockEngine
	manager *Manager
	metrics *recordingObserver
}

func newManagerFixture(t *testing.T, cfg PoolConfig) *managerFixture {
	t.Helper()
	scratch, err := convert.NewScratch(t.TempDir(), nil)
	require.NoError(t, err)

	engine := mocks.NewMockEngine()
	pipeline := convert.NewPipeline(mocks.NewMockTracer(), engine, colour.NewClassifier(), scratch)
	metrics := &recordingObserver{}

	m, err := NewManager(
		NewDispatcher(pipeline.Converters(), nil, nil),
		NewMemoryStore(),
		ManagerConfig{Pool: cfg, ScaleInterval: 10 * time.Millisecond},
		nil, metrics,
	)
	require.NoError(t, err)
	m.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
	return &managerFixture{engine: engine, manager: m, metrics: metrics}
}

// awaitResult waits until exactly one result for filename is stored and
// returns its id.
func (f *managerFixture) awaitResult(t *testing.T, filename string) string {
	t.Helper()
	var id string
	testutil.AssertEventuallyTrue(t, func() bool {
		sums, err := f.manager.Completed(context.Background())
		require.NoError(t, err)
		for k, s := range sums {
			if s.Filename == filename {
				id = k
				return true
			}
		}
		return false
	}, 2*time.Second)
	return id
}

func imageJob(t *testing.T, typ Type, filename string, files ...string) *Job {
	t.Helper()
	return &Job{
		Type:  typ,
		Meta:  &Meta{Filename: ptr(filename), X: ptr(60.0), Y: ptr(40.0), Z: ptr(2.0)},
		Files: files,
	}
}

func TestNewManager_InvalidConfig(t *testing.T) {
	_, err := NewManager(NewDispatcher(nil, nil, nil), nil, ManagerConfig{Pool: PoolConfig{Min: 2, Max: 1}}, nil, nil)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestManager_RoundTrip(t *testing.T) {
	f := newManagerFixture(t, PoolConfig{Min: 1, Max: 2, Ratio: 1})
	ctx := context.Background()

	png := testutil.PNGBase64(t, testutil.Stripes(6, 4, testutil.Red, testutil.Blue, testutil.White))
	require.NoError(t, f.manager.Submit(ctx, imageJob(t, Type3MF, "flag.png", png)))

	id := f.awaitResult(t, "flag.png")
	sums, err := f.manager.Completed(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{OK: true, Filename: "flag.png"}, sums[id])

	res, err := f.manager.Download(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []byte("PK-mock-3mf"), res.Payload())

	scenes := f.engine.Scenes(convert.Format3MF)
	require.Len(t, scenes, 1)
	assert.Contains(t, scenes[0], "module part_red()")
	assert.Contains(t, scenes[0], "module part_blue()")
	assert.NotContains(t, scenes[0], "part_white")

	// a result can be retrieved once
	_, err = f.manager.Download(ctx, id)
	assert.ErrorIs(t, err, ErrResultNotFound)
	sums, err = f.manager.Completed(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sums, id)
}

func TestManager_AllWhite(t *testing.T) {
	f := newManagerFixture(t, PoolConfig{Min: 1, Max: 1, Ratio: 1})
	ctx := context.Background()

	png := testutil.PNGBase64(t, testutil.Solid(5, 5, testutil.White))
	require.NoError(t, f.manager.Submit(ctx, imageJob(t, Type3MF, "blank.png", png)))

	id := f.awaitResult(t, "blank.png")
	res, err := f.manager.Download(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "image has no printable colour regions", res.Error)
	assert.Equal(t, 0, f.engine.Calls(convert.Format3MF))
}

func TestManager_SubmitInvalid(t *testing.T) {
	f := newManagerFixture(t, PoolConfig{Min: 0, Max: 0, Ratio: 1})
	ctx := context.Background()

	err := f.manager.Submit(ctx, &Job{Type: TypeSTL, Meta: &Meta{Filename: ptr("bad.png")}, Files: []string{"x"}})
	require.Error(t, err)
	assert.Equal(t, "'meta/x' key missing", types.Message(err))
	assert.Empty(t, f.manager.Pending())

	sums, err := f.manager.Completed(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	for _, s := range sums {
		assert.Equal(t, Summary{OK: false, Filename: "bad.png", Error: "'meta/x' key missing"}, s)
	}

	err = f.manager.Submit(ctx, &Job{Type: "gif"})
	assert.True(t, types.IsCode(err, types.ErrUnknownType))
	sums, err = f.manager.Completed(ctx)
	require.NoError(t, err)
	assert.Len(t, sums, 2)

	assert.Equal(t, []bool{false, false}, f.metrics.submitted)
}

func TestManager_PendingWithoutWorkers(t *testing.T) {
	f := newManagerFixture(t, PoolConfig{Min: 0, Max: 0, Ratio: 1})
	ctx := context.Background()

	png := testutil.PNGBase64(t, testutil.Solid(2, 2, testutil.Red))
	require.NoError(t, f.manager.Submit(ctx, imageJob(t, TypeSVG, "first.png", png)))
	require.NoError(t, f.manager.Submit(ctx, imageJob(t, TypeSVG, "second.png", png)))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, []string{"first.png", "second.png"}, f.manager.Pending())
	assert.Empty(t, f.manager.Workers())

	// raising the bounds lets the next cycle drain the queue
	require.NoError(t, f.manager.SetConfig(PoolConfig{Min: 1, Max: 2, Ratio: 1}))
	assert.Equal(t, PoolConfig{Min: 1, Max: 2, Ratio: 1}, f.manager.Config())
	f.awaitResult(t, "first.png")
	f.awaitResult(t, "second.png")
	assert.Empty(t, f.manager.Pending())

	testutil.AssertEventuallyTrue(t, func() bool {
		for _, s := range f.manager.Workers() {
			if s != StatusIdle {
				return false
			}
		}
		return len(f.manager.Workers()) >= 1
	}, time.Second)
}

func TestManager_SetConfigRejectsInverted(t *testing.T) {
	f := newManagerFixture(t, PoolConfig{Min: 0, Max: 1, Ratio: 1})
	err := f.manager.SetConfig(PoolConfig{Min: 5, Max: 1})
	assert.True(t, types.IsCode(err, types.ErrValidation))
	assert.Equal(t, PoolConfig{Min: 0, Max: 1, Ratio: 1}, f.manager.Config())
}

func TestManager_StopRejectsSubmissions(t *testing.T) {
	f := newManagerFixture(t, PoolConfig{Min: 1, Max: 1, Ratio: 1})
	ctx := context.Background()
	require.NoError(t, f.manager.Stop(ctx))
	assert.ErrorIs(t, f.manager.Stop(ctx), ErrNotStarted)

	png := testutil.PNGBase64(t, testutil.Solid(2, 2, testutil.Red))
	assert.ErrorIs(t, f.manager.Submit(ctx, imageJob(t, TypeSVG, "late.png", png)), ErrQueueClosed)
}
