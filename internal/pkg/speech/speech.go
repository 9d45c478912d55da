package speech

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"vidgenai/internal/pkg/provider"
)

// Timing 单个词（或CJK字符段）的发音时间区间
type Timing struct {
	Text  string  `json:"text"`  // 词文本
	Start float64 `json:"start"` // 开始时间（秒）
	End   float64 `json:"end"`   // 结束时间（秒）
}

// Request 语音合成请求
type Request struct {
	Text     string // 完整解说文本
	Language string // 语言
	Voice    string // 指定音色（可选，覆盖提供方默认值）
}

// Result 语音合成结果
type Result struct {
	AudioData []byte   // MP3 音频数据
	Duration  float64  // 音频时长（秒）
	Timings   []Timing // 词级时间戳（可能为空，为空时字幕走均匀分布兜底）
	Voice     string   // 实际使用的音色
}

// Synthesizer 语音合成提供方接口
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req *Request) (*Result, error)
}

// classifyHTTPStatus 将TTS API的HTTP状态码映射为提供方错误分类
func classifyHTTPStatus(name, op string, status int, body string) error {
	err := &statusError{status: status, body: body}
	switch {
	case status == http.StatusTooManyRequests:
		return provider.NewError(provider.ErrRateLimited, name, op, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.NewError(provider.ErrAuth, name, op, err)
	case status >= 500:
		return provider.NewError(provider.ErrUnavailable, name, op, err)
	default:
		return provider.NewError(provider.ErrInvalidResponse, name, op, err)
	}
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	body := e.body
	if len(body) > 256 {
		body = body[:256]
	}
	return "unexpected status " + http.StatusText(e.status) + ": " + body
}

// GroupCharTimings 将字符级时间戳合并为词级时间戳
// 拉丁文本按空白分词；CJK字符各自成词，供字幕分组使用
func GroupCharTimings(chars []string, starts, ends []float64) []Timing {
	n := len(chars)
	if n == 0 || len(starts) < n || len(ends) < n {
		return nil
	}

	var timings []Timing
	var buf strings.Builder
	var bufStart float64
	flush := func(end float64) {
		if buf.Len() == 0 {
			return
		}
		timings = append(timings, Timing{Text: buf.String(), Start: bufStart, End: end})
		buf.Reset()
	}

	prevEnd := 0.0
	for i := 0; i < n; i++ {
		c := chars[i]
		r := firstRune(c)
		switch {
		case isSpace(r):
			flush(prevEnd)
		case isCJK(r):
			flush(prevEnd)
			timings = append(timings, Timing{Text: c, Start: starts[i], End: ends[i]})
		default:
			if buf.Len() == 0 {
				bufStart = starts[i]
			}
			buf.WriteString(c)
		}
		prevEnd = ends[i]
	}
	flush(prevEnd)
	return timings
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
