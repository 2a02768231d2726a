package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoroutinePool_SubmitWait(t *testing.T) {
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: 2, QueueSize: 4})
	defer p.Close()

	var ran atomic.Bool
	err := p.SubmitWait(context.Background(), func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran.Load())

	boom := errors.New("boom")
	err = p.SubmitWait(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	stats := p.Stats()
	assert.EqualValues(t, 2, stats.Submitted)
	assert.EqualValues(t, 1, stats.Completed)
	assert.EqualValues(t, 1, stats.Failed)
}

func TestGoroutinePool_BoundsConcurrency(t *testing.T) {
	const limit = 3
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: limit, QueueSize: 32})
	defer p.Close()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.SubmitWait(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestGoroutinePool_Panic(t *testing.T) {
	var recovered atomic.Value
	p := NewGoroutinePool(GoroutinePoolConfig{
		MaxWorkers:   1,
		QueueSize:    1,
		PanicHandler: func(r any) { recovered.Store(r) },
	})
	defer p.Close()

	err := p.SubmitWait(context.Background(), func(context.Context) error { panic("bad pixel") })
	assert.ErrorIs(t, err, ErrTaskPanic)
	assert.Equal(t, "bad pixel", recovered.Load())
}

func TestGoroutinePool_CancelledContext(t *testing.T) {
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: 1, QueueSize: 1})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.SubmitWait(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGoroutinePool_Closed(t *testing.T) {
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: 1, QueueSize: 1})
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Submit(context.Background(), func(context.Context) error { return nil }), ErrPoolClosed)
	assert.ErrorIs(t, p.SubmitWait(context.Background(), func(context.Context) error { return nil }), ErrPoolClosed)
}

func TestGoroutinePool_SubmitFull(t *testing.T) {
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	defer func() {
		close(release)
		p.Close()
	}()

	require.NoError(t, p.Submit(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, p.Submit(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, p.Submit(context.Background(), func(context.Context) error { return nil }), ErrPoolFull)
	assert.EqualValues(t, 1, p.Stats().Rejected)
}

func TestRun(t *testing.T) {
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: 1, QueueSize: 1})
	defer p.Close()

	v, err := Run(context.Background(), p, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// nil pool runs inline
	s, err := Run(context.Background(), nil, func(context.Context) (string, error) { return "inline", nil })
	require.NoError(t, err)
	assert.Equal(t, "inline", s)
}

func TestSlicePool(t *testing.T) {
	p := NewSlicePool[int](8)
	s := p.Get()
	assert.Empty(t, s)
	assert.GreaterOrEqual(t, cap(s), 8)

	s = append(s, 1, 2, 3)
	p.Put(s)
	assert.Empty(t, p.Get())
}

func TestByteBufferPool(t *testing.T) {
	buf := ByteBufferPool.Get()
	buf.WriteString("png")
	ByteBufferPool.Put(buf)

	again := ByteBufferPool.Get()
	assert.Zero(t, again.Len())
	ByteBufferPool.Put(again)

	stats := ByteBufferPool.Stats()
	assert.GreaterOrEqual(t, stats.Gets, int64(2))
	assert.GreaterOrEqual(t, stats.HitRate(), 0.0)
}
