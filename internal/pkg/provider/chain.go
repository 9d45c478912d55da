package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// Candidate 降级链中的一个候选提供方
type Candidate[R any] struct {
	Name string                               // 提供方名称
	Fn   func(ctx context.Context) (R, error) // 调用函数
}

// Do 在单个提供方上执行，瞬时错误按指数退避重试
// 鉴权失败与响应不合法不重试，直接返回
func Do[R any](ctx context.Context, name, op string, maxTries uint, fn func(ctx context.Context) (R, error)) (R, error) {
	operation := func() (R, error) {
		result, err := fn(ctx)
		if err != nil && !IsTransient(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	result, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(maxTries))
	if err != nil {
		log.Warn().Err(err).Str("provider", name).Str("op", op).Msg("provider call failed")
	}
	return result, err
}

// Fallback 按配置顺序尝试提供方链，返回结果与实际命中的提供方名称
// 每个候选内部先做瞬时重试，全部失败时返回聚合错误
func Fallback[R any](ctx context.Context, op string, maxTries uint, candidates []Candidate[R]) (R, string, error) {
	var zero R
	if len(candidates) == 0 {
		return zero, "", fmt.Errorf("%s: no providers configured", op)
	}

	var errs []error
	for _, c := range candidates {
		if ctx.Err() != nil {
			return zero, "", ctx.Err()
		}
		result, err := Do(ctx, c.Name, op, maxTries, c.Fn)
		if err == nil {
			return result, c.Name, nil
		}
		log.Warn().Err(err).Str("provider", c.Name).Str("op", op).Msg("provider exhausted, falling back")
		errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
	}
	return zero, "", fmt.Errorf("%s: all providers failed: %w", op, errors.Join(errs...))
}
