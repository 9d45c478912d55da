package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vidgenai/internal/pkg/id"
	"vidgenai/internal/pkg/provider"
)

const volcAPIURL = "https://openspeech.bytedance.com/api/v1/tts"

// VolcSynthesizer 火山引擎 OpenSpeech 语音合成（备用提供方）
// 参考: https://openspeech.bytedance.com/api/v1/tts
type VolcSynthesizer struct {
	accessToken string
	appID       string
	cluster     string
	voiceType   string
	httpClient  *http.Client
}

// NewVolcSynthesizer 创建火山 TTS 合成器
func NewVolcSynthesizer(accessToken, appID, voiceType, cluster string) *VolcSynthesizer {
	if cluster == "" {
		cluster = "volcano_tts"
	}
	if voiceType == "" {
		voiceType = "BV115_streaming"
	}
	return &VolcSynthesizer{
		accessToken: accessToken,
		appID:       appID,
		cluster:     cluster,
		voiceType:   voiceType,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Name 返回提供方名称
func (s *VolcSynthesizer) Name() string {
	return "volc"
}

// Synthesize 合成语音并解析词级时间戳
func (s *VolcSynthesizer) Synthesize(ctx context.Context, req *Request) (*Result, error) {
	if s.accessToken == "" {
		return nil, provider.NewError(provider.ErrAuth, s.Name(), "synthesize",
			fmt.Errorf("volc access token not configured"))
	}

	voiceType := s.voiceType
	if req.Voice != "" {
		voiceType = req.Voice
	}

	reqBody, err := json.Marshal(s.buildRequestConfig(req.Text, voiceType, req.Language))
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "synthesize", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, volcAPIURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "synthesize", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer; %s", s.accessToken))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "synthesize", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "synthesize", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(s.Name(), "synthesize", resp.StatusCode, string(respBody))
	}

	var apiResp map[string]interface{}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		// 接口偶发返回缺逗号的 JSON，先修复再解析
		if err := json.Unmarshal([]byte(fixJSON(string(respBody))), &apiResp); err != nil {
			return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "synthesize",
				fmt.Errorf("malformed response: %w", err))
		}
	}

	code, _ := apiResp["code"].(float64)
	if code != 3000 {
		message, _ := apiResp["message"].(string)
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "synthesize",
			fmt.Errorf("API error: %s (code %.0f)", message, code))
	}

	audioBase64, ok := apiResp["data"].(string)
	if !ok {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "synthesize",
			fmt.Errorf("audio data not found in response"))
	}
	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "synthesize",
			fmt.Errorf("failed to decode audio: %w", err))
	}

	timings, duration := s.parseTimings(apiResp)

	return &Result{
		AudioData: audio,
		Duration:  duration,
		Timings:   timings,
		Voice:     voiceType,
	}, nil
}

// buildRequestConfig 按官方文档构建请求体
func (s *VolcSynthesizer) buildRequestConfig(text, voiceType, language string) map[string]interface{} {
	appConfig := map[string]interface{}{
		"token":   s.accessToken,
		"cluster": s.cluster,
	}
	if s.appID != "" {
		appConfig["appid"] = s.appID
	}

	lang := "cn"
	if language != "" && !strings.HasPrefix(strings.ToLower(language), "zh") &&
		!strings.HasPrefix(strings.ToLower(language), "cn") {
		lang = "en"
	}

	requestID := id.New()
	return map[string]interface{}{
		"app":  appConfig,
		"user": map[string]interface{}{"uid": requestID},
		"audio": map[string]interface{}{
			"voice_type":       voiceType,
			"encoding":         "mp3",
			"compression_rate": 1,
			"rate":             44100,
			"speed_ratio":      1.0,
			"volume_ratio":     1.0,
			"pitch_ratio":      1.0,
			"language":         lang,
		},
		"request": map[string]interface{}{
			"reqid":            requestID,
			"text":             text,
			"text_type":        "plain",
			"operation":        "query",
			"silence_duration": "125",
			"with_frontend":    "1",
			"frontend_type":    "unitTson",
			"pure_english_opt": "1",
		},
	}
}

// parseTimings 从 addition 字段提取词级时间戳与音频时长
func (s *VolcSynthesizer) parseTimings(apiResp map[string]interface{}) ([]Timing, float64) {
	var duration float64

	addition, ok := apiResp["addition"].(map[string]interface{})
	if !ok {
		return nil, 0
	}

	// duration 单位为毫秒，可能是字符串或数字
	if durationStr, ok := addition["duration"].(string); ok {
		if parsed, err := strconv.ParseFloat(durationStr, 64); err == nil {
			duration = parsed / 1000.0
		}
	} else if durationNum, ok := addition["duration"].(float64); ok {
		duration = durationNum / 1000.0
	}

	frontendData, ok := addition["frontend"].(map[string]interface{})
	if !ok {
		frontendStr, ok := addition["frontend"].(string)
		if !ok {
			return nil, duration
		}
		if err := json.Unmarshal([]byte(frontendStr), &frontendData); err != nil {
			log.Warn().Err(err).Msg("failed to parse tts frontend data")
			return nil, duration
		}
	}

	words, ok := frontendData["words"].([]interface{})
	if !ok {
		return nil, duration
	}

	var timings []Timing
	for _, wordItem := range words {
		wordInfo, ok := wordItem.(map[string]interface{})
		if !ok {
			continue
		}
		word, _ := wordInfo["word"].(string)
		startTime, _ := wordInfo["start_time"].(float64)
		endTime, _ := wordInfo["end_time"].(float64)
		if word == "" {
			continue
		}
		timings = append(timings, Timing{Text: word, Start: startTime, End: endTime})
	}
	return timings, duration
}

// fixJSON 修复接口返回的缺逗号 JSON
func fixJSON(jsonStr string) string {
	fixed := strings.ReplaceAll(jsonStr, "}{", "},{")
	fixed = strings.ReplaceAll(fixed, "\"}{\"", "\"},{\"")
	fixed = strings.ReplaceAll(fixed, "}{\"phone", "},{\"phone")
	fixed = strings.ReplaceAll(fixed, "}{\"word", "},{\"word")
	return fixed
}
