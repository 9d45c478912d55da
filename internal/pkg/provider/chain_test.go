package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorClassification(t *testing.T) {
	Convey("提供方错误分类", t, func() {
		Convey("KindOf 提取分类，包装后依然可识别", func() {
			err := NewError(ErrRateLimited, "serp", "search_images", errors.New("429"))
			So(KindOf(err), ShouldEqual, ErrRateLimited)

			wrapped := fmt.Errorf("outer: %w", err)
			So(KindOf(wrapped), ShouldEqual, ErrRateLimited)
		})

		Convey("非提供方错误按 unavailable 处理", func() {
			So(KindOf(errors.New("plain")), ShouldEqual, ErrUnavailable)
		})

		Convey("限流与不可用是瞬时错误", func() {
			So(IsTransient(NewError(ErrRateLimited, "p", "op", nil)), ShouldBeTrue)
			So(IsTransient(NewError(ErrUnavailable, "p", "op", nil)), ShouldBeTrue)
		})

		Convey("鉴权失败与响应不合法不是瞬时错误", func() {
			So(IsTransient(NewError(ErrAuth, "p", "op", nil)), ShouldBeFalse)
			So(IsTransient(NewError(ErrInvalidResponse, "p", "op", nil)), ShouldBeFalse)
		})

		Convey("Error 文本包含提供方与操作", func() {
			err := NewError(ErrAuth, "brave", "search_images", errors.New("401"))
			So(err.Error(), ShouldContainSubstring, "brave")
			So(err.Error(), ShouldContainSubstring, "search_images")
		})
	})
}

func TestDo(t *testing.T) {
	Convey("Do 单提供方重试", t, func() {
		ctx := context.Background()

		Convey("成功时直接返回", func() {
			calls := 0
			result, err := Do(ctx, "p", "op", 3, func(ctx context.Context) (string, error) {
				calls++
				return "ok", nil
			})
			So(err, ShouldBeNil)
			So(result, ShouldEqual, "ok")
			So(calls, ShouldEqual, 1)
		})

		Convey("非瞬时错误不重试", func() {
			calls := 0
			_, err := Do(ctx, "p", "op", 3, func(ctx context.Context) (string, error) {
				calls++
				return "", NewError(ErrAuth, "p", "op", errors.New("bad key"))
			})
			So(err, ShouldNotBeNil)
			So(calls, ShouldEqual, 1)
		})

		Convey("瞬时错误重试直到成功", func() {
			calls := 0
			result, err := Do(ctx, "p", "op", 3, func(ctx context.Context) (string, error) {
				calls++
				if calls < 2 {
					return "", NewError(ErrUnavailable, "p", "op", errors.New("502"))
				}
				return "recovered", nil
			})
			So(err, ShouldBeNil)
			So(result, ShouldEqual, "recovered")
			So(calls, ShouldEqual, 2)
		})

		Convey("瞬时错误耗尽重试次数后失败", func() {
			calls := 0
			_, err := Do(ctx, "p", "op", 2, func(ctx context.Context) (string, error) {
				calls++
				return "", NewError(ErrUnavailable, "p", "op", errors.New("502"))
			})
			So(err, ShouldNotBeNil)
			So(calls, ShouldEqual, 2)
		})
	})
}

func TestFallback(t *testing.T) {
	Convey("Fallback 提供方降级链", t, func() {
		ctx := context.Background()

		Convey("无候选时报错", func() {
			_, _, err := Fallback[string](ctx, "op", 1, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("首个候选成功时直接返回", func() {
			result, used, err := Fallback(ctx, "op", 1, []Candidate[int]{
				{Name: "primary", Fn: func(ctx context.Context) (int, error) { return 42, nil }},
				{Name: "backup", Fn: func(ctx context.Context) (int, error) {
					t.Fatal("backup should not be called")
					return 0, nil
				}},
			})
			So(err, ShouldBeNil)
			So(result, ShouldEqual, 42)
			So(used, ShouldEqual, "primary")
		})

		Convey("首个候选失败后降级到备用", func() {
			result, used, err := Fallback(ctx, "op", 1, []Candidate[int]{
				{Name: "primary", Fn: func(ctx context.Context) (int, error) {
					return 0, NewError(ErrAuth, "primary", "op", errors.New("no key"))
				}},
				{Name: "backup", Fn: func(ctx context.Context) (int, error) { return 7, nil }},
			})
			So(err, ShouldBeNil)
			So(result, ShouldEqual, 7)
			So(used, ShouldEqual, "backup")
		})

		Convey("全部候选失败时聚合错误", func() {
			_, _, err := Fallback(ctx, "op", 1, []Candidate[int]{
				{Name: "primary", Fn: func(ctx context.Context) (int, error) {
					return 0, NewError(ErrAuth, "primary", "op", errors.New("e1"))
				}},
				{Name: "backup", Fn: func(ctx context.Context) (int, error) {
					return 0, NewError(ErrInvalidResponse, "backup", "op", errors.New("e2"))
				}},
			})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "primary")
			So(err.Error(), ShouldContainSubstring, "backup")
		})

		Convey("上下文取消时立即停止", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, _, err := Fallback(cancelled, "op", 1, []Candidate[int]{
				{Name: "primary", Fn: func(ctx context.Context) (int, error) { return 1, nil }},
			})
			So(err, ShouldNotBeNil)
		})
	})
}
