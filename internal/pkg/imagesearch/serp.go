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

const serpAPIURL = "https://serpapi.com/search.json"

// SerpSearcher SerpAPI (Google Images) 图片搜索
type SerpSearcher struct {
	apiKey     string
	httpClient *http.Client
}

// NewSerpSearcher 创建 SerpAPI 搜索客户端
func NewSerpSearcher(apiKey string) *SerpSearcher {
	return &SerpSearcher{
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

// Name 返回提供方名称
func (s *SerpSearcher) Name() string {
	return "serp"
}

// serpResponse SerpAPI 图片搜索响应（只解析需要的字段）
type serpResponse struct {
	ImagesResults []struct {
		Original       string `json:"original"`
		OriginalWidth  int    `json:"original_width"`
		OriginalHeight int    `json:"original_height"`
		Link           string `json:"link"`
	} `json:"images_results"`
	Error string `json:"error"`
}

// Search 搜索图片
func (s *SerpSearcher) Search(ctx context.Context, term string, count int) ([]Candidate, error) {
	if s.apiKey == "" {
		return nil, provider.NewError(provider.ErrAuth, s.Name(), "search_images",
			fmt.Errorf("serp API key not configured"))
	}

	params := url.Values{}
	params.Set("engine", "google_images")
	params.Set("q", term)
	params.Set("num", strconv.Itoa(count))
	params.Set("api_key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "search_images", err)
	}

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

	var sr serpResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "search_images",
			fmt.Errorf("malformed response: %w", err))
	}
	if sr.Error != "" {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "search_images",
			fmt.Errorf("API error: %s", sr.Error))
	}

	var candidates []Candidate
	for _, r := range sr.ImagesResults {
		if r.Original == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			URL:       r.Original,
			Width:     r.OriginalWidth,
			Height:    r.OriginalHeight,
			Source:    r.Link,
			Watermark: WatermarkSource(r.Link) || WatermarkSource(r.Original),
		})
		if len(candidates) >= count {
			break
		}
	}
	return candidates, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
