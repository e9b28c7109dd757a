// =============================================================================
// 🎬 MockGenerator - 视频生成器模拟实现
// =============================================================================
// 用于测试的 video.Generator 模拟，支持固定价格、错误注入与调用记录
//
// 使用方法:
//
//	gen := mocks.NewMockGenerator("fake (standard)").WithRate(0.02)
//	res, err := gen.Generate(ctx, &video.Request{Prompt: "p", OutputPath: out})
//
// =============================================================================
package mocks

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BaSui01/mediagen/llm/video"
	"github.com/BaSui01/mediagen/types"
)

// MockGenerator 是 video.Generator 的模拟实现
type MockGenerator struct {
	mu sync.Mutex

	name    string
	rate    float64
	payload []byte
	elapsed time.Duration

	// 错误注入
	estimateErr error
	generateErr error
	generateFn  func(ctx context.Context, req *video.Request) (*video.Result, error)

	// 调用记录
	estimateCalls int
	requests      []video.Request
}

// NewMockGenerator 创建新的 MockGenerator，默认 0.01 USD/秒，写入固定字节
func NewMockGenerator(name string) *MockGenerator {
	return &MockGenerator{
		name:    name,
		rate:    0.01,
		payload: []byte("mock-video"),
	}
}

// WithRate 设置每秒价格
func (m *MockGenerator) WithRate(rate float64) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
	return m
}

// WithElapsed 设置报告的生成耗时
func (m *MockGenerator) WithElapsed(d time.Duration) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elapsed = d
	return m
}

// WithEstimateError 注入 EstimateCost 错误
func (m *MockGenerator) WithEstimateError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimateErr = err
	return m
}

// WithGenerateError 注入 Generate 错误
func (m *MockGenerator) WithGenerateError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateErr = err
	return m
}

// WithGenerateFunc 自定义 Generate 行为
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, req *video.Request) (*video.Result, error)) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFn = fn
	return m
}

// Name implements video.Generator.
func (m *MockGenerator) Name() string { return m.name }

// EstimateCost implements video.Generator.
func (m *MockGenerator) EstimateCost(durationSeconds float64, res video.Resolution) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimateCalls++
	if m.estimateErr != nil {
		return 0, m.estimateErr
	}
	if res != video.Resolution720p && res != video.Resolution1080p {
		return 0, types.NewInvalidRequestError(m.name, "unsupported resolution "+string(res))
	}
	return m.rate * durationSeconds, nil
}

// Generate implements video.Generator. It writes the payload to req.OutputPath.
func (m *MockGenerator) Generate(ctx context.Context, req *video.Request) (*video.Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	fn, genErr, payload, elapsed := m.generateFn, m.generateErr, m.payload, m.elapsed
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if genErr != nil {
		return nil, genErr
	}

	r := req.WithDefaults()
	cost, err := m.EstimateCost(float64(r.DurationSeconds), r.Resolution)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(r.OutputPath), 0o755); err != nil {
		return nil, types.NewDownloadError(m.name, "mkdir failed").WithCause(err)
	}
	if err := os.WriteFile(r.OutputPath, payload, 0o644); err != nil {
		return nil, types.NewDownloadError(m.name, "write failed").WithCause(err)
	}

	return video.NewResult(video.ResultParams{
		FilePath:        r.OutputPath,
		DurationSeconds: float64(r.DurationSeconds),
		ModelUsed:       m.name,
		EstimatedCost:   cost,
		GenerationTime:  elapsed,
		Metadata:        map[string]any{"prompt": r.Prompt},
	}), nil
}

// EstimateCalls 返回 EstimateCost 调用次数
func (m *MockGenerator) EstimateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.estimateCalls
}

// Requests 返回 Generate 收到的请求副本
func (m *MockGenerator) Requests() []video.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]video.Request(nil), m.requests...)
}

// GenerateCalls 返回 Generate 调用次数
func (m *MockGenerator) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
