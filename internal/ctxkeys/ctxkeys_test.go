package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	_, ok := TraceID(ctx)
	assert.False(t, ok)
	_, ok = WorkerID(ctx)
	assert.False(t, ok)

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithJobID(ctx, "job-1")
	ctx = WithWorkerID(ctx, 0)

	v, ok := TraceID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "trace-1", v)

	j, ok := JobID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "job-1", j)

	w, ok := WorkerID(ctx)
	assert.True(t, ok)
	assert.Equal(t, 0, w)

	_, ok = JobID(WithJobID(context.Background(), ""))
	assert.False(t, ok)
}
