package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/types"
)

// RetryPolicy 定义重试策略配置
type RetryPolicy struct {
	MaxRetries   int           // 最大重试次数（0 表示不重试）
	InitialDelay time.Duration // 初始延迟时间
	MaxDelay     time.Duration // 最大延迟时间
	Multiplier   float64       // 延迟时间倍增因子（指数退避）
	Jitter       bool          // 是否添加 ±25% 随机抖动

	// ShouldRetry 判断错误是否可重试；为空时使用 DefaultShouldRetry。
	ShouldRetry func(err error) bool
	// OnRetry 重试回调
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy 返回默认的重试策略
// 适用于轮询状态、下载产物等短小的幂等 HTTP 调用
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     15 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// DefaultShouldRetry retries errors explicitly marked retryable, either through
// WrapRetryable or through types.Error.Retryable. Everything else fails fast.
func DefaultShouldRetry(err error) bool {
	return IsRetryableError(err) || types.IsRetryable(err)
}

// Retryer 重试器接口
type Retryer interface {
	// Do 执行函数，失败时根据策略重试
	Do(ctx context.Context, fn func() error) error
}

// backoffRetryer 基于指数退避的重试器实现
type backoffRetryer struct {
	policy RetryPolicy
	logger *zap.Logger
}

// NewBackoffRetryer 创建指数退避重试器
func NewBackoffRetryer(policy *RetryPolicy, logger *zap.Logger) Retryer {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := *policy
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 15 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = DefaultShouldRetry
	}

	return &backoffRetryer{
		policy: p,
		logger: logger,
	}
}

// Do 实现 Retryer.Do
func (r *backoffRetryer) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)

			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.policy.MaxRetries),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry cancelled: %w", errors.Join(ctx.Err(), lastErr))
			case <-timer.C:
			}
		}

		lastErr = fn()
		if lastErr == nil {
			if attempt > 0 {
				r.logger.Debug("retry succeeded", zap.Int("attempt", attempt))
			}
			return nil
		}

		if !r.policy.ShouldRetry(lastErr) {
			return lastErr
		}
	}

	r.logger.Warn("retries exhausted",
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)
	return lastErr
}

// calculateDelay 计算第 attempt 次重试前的等待时间
// delay = initial * multiplier^(attempt-1)，上限 MaxDelay
func (r *backoffRetryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(attempt-1))
	if delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}

	if r.policy.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}

	if delay < float64(r.policy.InitialDelay) {
		delay = float64(r.policy.InitialDelay)
	}

	return time.Duration(delay)
}

// RetryableError 可重试的错误类型
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryableError 检查错误是否被 WrapRetryable 包装为可重试错误。
func IsRetryableError(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}

// WrapRetryable 将错误包装为可重试错误
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}
