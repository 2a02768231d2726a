package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr := miniredis.RunT(t)

	manager, err := NewManager(Config{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return mr, manager
}

func TestNewManager(t *testing.T) {
	_, manager := setupTestRedis(t)

	assert.NotNil(t, manager.redis)
	assert.NotNil(t, manager.logger)
	assert.NoError(t, manager.Ping(context.Background()))
}

func TestNewManager_Unreachable(t *testing.T) {
	manager, err := NewManager(Config{Addr: "localhost:9999"}, zap.NewNop())
	assert.Nil(t, manager)
	assert.Error(t, err)
}

func TestManager_HashSetAndTake(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	err := manager.HashSet(ctx, "id-1", map[string][]byte{
		"results":   []byte("payload"),
		"summaries": []byte("summary"),
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", mr.HGet("results", "id-1"))
	assert.Equal(t, "summary", mr.HGet("summaries", "id-1"))

	val, err := manager.HashTake(ctx, "results", "id-1", "summaries")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), val)

	// 字段已从两个哈希中删除
	assert.False(t, mr.Exists("results"))
	assert.False(t, mr.Exists("summaries"))

	_, err = manager.HashTake(ctx, "results", "id-1", "summaries")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestManager_HashAll(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	all, err := manager.HashAll(ctx, "summaries")
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, manager.HashSet(ctx, "a", map[string][]byte{"summaries": []byte("1")}))
	require.NoError(t, manager.HashSet(ctx, "b", map[string][]byte{"summaries": []byte("2")}))

	all, err = manager.HashAll(ctx, "summaries")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())

	ctx := context.Background()
	assert.ErrorIs(t, manager.Ping(ctx), ErrClosed)
	assert.ErrorIs(t, manager.HashSet(ctx, "f", map[string][]byte{"k": nil}), ErrClosed)
	_, err := manager.HashTake(ctx, "k", "f")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = manager.HashAll(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_ConcurrentTakeOnce(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.HashSet(ctx, "once", map[string][]byte{"results": []byte("x")}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	got := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.HashTake(ctx, "results", "once"); err == nil {
				mu.Lock()
				got++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, got, fmt.Sprintf("result taken %d times", got))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "redis.internal", hostOf("redis.internal:6380"))
	assert.Equal(t, "localhost", hostOf("localhost"))
}
