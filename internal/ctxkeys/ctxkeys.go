package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	runIDKey contextKey = "run_id"
	modelKey contextKey = "model"
)

// WithRunID 设置 RunID（一次对比运行的时间戳标识）
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID 获取 RunID
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithModel 设置当前处理的注册表模型名
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, modelKey, model)
}

// Model 获取当前处理的注册表模型名
func Model(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(modelKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
