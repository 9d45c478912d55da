package imagesearch

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"vidgenai/internal/pkg/provider"
)

// Candidate 图片候选
type Candidate struct {
	URL       string // 原图URL
	Width     int    // 宽度（像素，未知为0）
	Height    int    // 高度（像素，未知为0）
	Source    string // 来源页面（可选）
	Watermark bool   // 疑似带水印（图库来源）
}

// Searcher 图片搜索提供方接口
type Searcher interface {
	Name() string
	Search(ctx context.Context, term string, count int) ([]Candidate, error)
}

// newHTTPClient 搜索API的HTTP客户端
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// classifyHTTPStatus 将搜索API的HTTP状态码映射为提供方错误分类
func classifyHTTPStatus(name, op string, status int, body string) error {
	err := fmt.Errorf("unexpected status %d: %s", status, body)
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

// RankByAspectRatio 按与目标宽高比的接近程度排序候选
// 尺寸未知的候选排在已知尺寸之后，原有顺序作为次序兜底
func RankByAspectRatio(candidates []Candidate, targetW, targetH int) []Candidate {
	if targetW <= 0 || targetH <= 0 {
		return candidates
	}
	target := float64(targetW) / float64(targetH)

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		di, iKnown := ratioDelta(ranked[i], target)
		dj, jKnown := ratioDelta(ranked[j], target)
		if iKnown != jKnown {
			return iKnown
		}
		if !iKnown {
			return false
		}
		return di < dj
	})
	return ranked
}

func ratioDelta(c Candidate, target float64) (float64, bool) {
	if c.Width <= 0 || c.Height <= 0 {
		return 0, false
	}
	return math.Abs(float64(c.Width)/float64(c.Height) - target), true
}

// 商业图库域名，预览图基本都压着水印
var watermarkDomains = []string{
	"shutterstock.com",
	"gettyimages.",
	"istockphoto.com",
	"alamy.com",
	"dreamstime.com",
	"123rf.com",
	"depositphotos.com",
	"stock.adobe.com",
}

// WatermarkSource 根据来源URL判断候选是否疑似带水印
func WatermarkSource(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, domain := range watermarkDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// DropWatermarked 剔除疑似带水印的候选
func DropWatermarked(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.Watermark {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterMinSize 过滤掉尺寸已知且小于下限的候选
// 尺寸未知的候选保留，由下载后校验把关
func FilterMinSize(candidates []Candidate, minW, minH int) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.Width > 0 && c.Width < minW {
			continue
		}
		if c.Height > 0 && c.Height < minH {
			continue
		}
		out = append(out, c)
	}
	return out
}
