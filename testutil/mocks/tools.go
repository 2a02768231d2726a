// MockTracer 与 MockEngine 是外部工具的测试模拟实现。
//
// 支持固定输出、错误注入与调用记录。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/extrudeflow/convert"
)

// DefaultSVG 是 MockTracer 的默认输出
const DefaultSVG = `<svg xmlns="http://www.w3.org/2000/svg"><path d="M0 0h1v1H0z"/></svg>`

// --- MockTracer ---

// MockTracer 是 convert.Tracer 的模拟实现
type MockTracer struct {
	mu     sync.Mutex
	svg    string
	err    error
	inputs [][]byte
}

// NewMockTracer 创建返回 DefaultSVG 的 MockTracer
func NewMockTracer() *MockTracer {
	return &MockTracer{svg: DefaultSVG}
}

// WithSVG 设置输出
func (m *MockTracer) WithSVG(svg string) *MockTracer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.svg = svg
	return m
}

// WithError 设置每次调用返回的错误
func (m *MockTracer) WithError(err error) *MockTracer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Trace 实现 convert.Tracer
func (m *MockTracer) Trace(ctx context.Context, image []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, image)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.svg, nil
}

// Calls 返回调用次数
func (m *MockTracer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// --- MockEngine ---

// MockEngine 是 convert.Engine 的模拟实现
type MockEngine struct {
	mu      sync.Mutex
	outputs map[convert.Format][]byte
	errs    map[convert.Format]error
	calls   []convert.Render
}

// NewMockEngine 创建按格式返回固定字节的 MockEngine
func NewMockEngine() *MockEngine {
	return &MockEngine{
		outputs: map[convert.Format][]byte{
			convert.FormatSTL: []byte("solid mock\nendsolid mock\n"),
			convert.Format3MF: []byte("PK-mock-3mf"),
		},
		errs: make(map[convert.Format]error),
	}
}

// WithOutput 设置某格式的输出
func (m *MockEngine) WithOutput(format convert.Format, data []byte) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[format] = data
	return m
}

// WithError 设置某格式返回的错误
func (m *MockEngine) WithError(format convert.Format, err error) *MockEngine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[format] = err
	return m
}

// Render 实现 convert.Engine
func (m *MockEngine) Render(ctx context.Context, r convert.Render) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, r)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.errs[r.Format]; err != nil {
		return nil, err
	}
	return m.outputs[r.Format], nil
}

// Calls 返回某格式的调用次数
func (m *MockEngine) Calls(format convert.Format) int {
	return len(m.Scenes(format))
}

// Scenes 返回某格式收到的场景脚本
func (m *MockEngine) Scenes(format convert.Format) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if c.Format == format {
			out = append(out, c.Scene)
		}
	}
	return out
}
