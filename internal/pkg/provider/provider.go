package provider

import (
	"errors"
	"fmt"
)

// ErrorKind 外部提供方错误分类
// 分类决定重试与降级策略：限流/不可用可重试可降级，鉴权失败直接降级不重试
type ErrorKind string

const (
	ErrRateLimited     ErrorKind = "rate_limited"     // 被限流
	ErrAuth            ErrorKind = "auth"             // 鉴权失败
	ErrUnavailable     ErrorKind = "unavailable"      // 服务不可用（网络/5xx/超时）
	ErrInvalidResponse ErrorKind = "invalid_response" // 响应格式不合法
)

// Error 提供方调用错误
type Error struct {
	Kind     ErrorKind // 错误分类
	Provider string    // 提供方名称
	Op       string    // 操作名称
	Err      error     // 底层错误
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", e.Provider, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", e.Provider, e.Op, e.Kind)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 构造提供方错误
func NewError(kind ErrorKind, providerName, op string, err error) *Error {
	return &Error{Kind: kind, Provider: providerName, Op: op, Err: err}
}

// KindOf 提取错误分类，非提供方错误按 unavailable 处理
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrUnavailable
}

// IsTransient 是否为瞬时错误（值得在同一提供方上重试）
func IsTransient(err error) bool {
	switch KindOf(err) {
	case ErrRateLimited, ErrUnavailable:
		return true
	}
	return false
}
