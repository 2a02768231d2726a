package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool 是带命中统计的类型化 sync.Pool 封装
type Pool[T any] struct {
	inner sync.Pool
	reset func(T) T

	gets   atomic.Int64
	allocs atomic.Int64
}

// NewPool 创建对象池。reset 在归还时调用，返回值被放回池中
func NewPool[T any](alloc func() T, reset func(T) T) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.inner.New = func() any {
		p.allocs.Add(1)
		return alloc()
	}
	return p
}

func (p *Pool[T]) Get() T {
	p.gets.Add(1)
	return p.inner.Get().(T)
}

func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		v = p.reset(v)
	}
	p.inner.Put(v)
}

// Stats 返回累计取用次数与新分配次数
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{Gets: p.gets.Load(), Allocs: p.allocs.Load()}
}

type PoolStats struct {
	Gets   int64
	Allocs int64
}

// HitRate 复用率，未取用时为 0
func (s PoolStats) HitRate() float64 {
	if s.Gets == 0 {
		return 0
	}
	return float64(s.Gets-s.Allocs) / float64(s.Gets)
}

// NewSlicePool 复用切片底层数组，归还时长度清零
func NewSlicePool[T any](capacity int) *Pool[[]T] {
	return NewPool(
		func() []T { return make([]T, 0, capacity) },
		func(s []T) []T { return s[:0] },
	)
}

var (
	// ByteBufferPool 供 PNG 编码复用缓冲区
	ByteBufferPool = NewPool(
		func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 64<<10)) },
		func(b *bytes.Buffer) *bytes.Buffer { b.Reset(); return b },
	)

	// PixelStack 为洪水填充提供工作栈
	PixelStack = NewSlicePool[int](1024)
)
