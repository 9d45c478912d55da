package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"vidgenai/internal/pkg/provider"
)

const braveAPIURL = "https://api.search.brave.com/res/v1/images/search"

// BraveSearcher Brave Search 图片搜索
type BraveSearcher struct {
	apiKey     string
	httpClient *http.Client
}

// NewBraveSearcher 创建 Brave 搜索客户端
func NewBraveSearcher(apiKey string) *BraveSearcher {
	return &BraveSearcher{
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

// Name 返回提供方名称
func (s *BraveSearcher) Name() string {
	return "brave"
}

// braveResponse Brave 图片搜索响应（只解析需要的字段）
type braveResponse struct {
	Results []struct {
		URL        string `json:"url"`
		Properties struct {
			URL string `json:"url"`
		} `json:"properties"`
		Thumbnail struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"thumbnail"`
	} `json:"results"`
}

// Search 搜索图片
func (s *BraveSearcher) Search(ctx context.Context, term string, count int) ([]Candidate, error) {
	if s.apiKey == "" {
		return nil, provider.NewError(provider.ErrAuth, s.Name(), "search_images",
			fmt.Errorf("brave API key not configured"))
	}

	params := url.Values{}
	params.Set("q", term)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveAPIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "search_images", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "search_images", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "search_images", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(s.Name(), "search_images", resp.StatusCode, truncate(body))
	}

	var br braveResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "search_images",
			fmt.Errorf("malformed response: %w", err))
	}

	var candidates []Candidate
	for _, r := range br.Results {
		u := r.Properties.URL
		if u == "" {
			u = r.URL
		}
		if u == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			URL: u,
			// Brave 只返回缩略图尺寸，原图尺寸按未知处理
			Source:    r.URL,
			Watermark: WatermarkSource(r.URL) || WatermarkSource(u),
		})
		if len(candidates) >= count {
			break
		}
	}
	return candidates, nil
}
