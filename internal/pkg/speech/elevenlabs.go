package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vidgenai/internal/pkg/provider"
)

const elevenLabsAPIURL = "https://api.elevenlabs.io/v1/text-to-speech"

// 默认音色与模型，可被配置覆盖
const (
	defaultElevenLabsVoiceID = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModel   = "eleven_multilingual_v2"
)

// ElevenLabsSynthesizer ElevenLabs 语音合成（主提供方）
// 使用 with-timestamps 接口拿到字符级时间戳
type ElevenLabsSynthesizer struct {
	apiKey     string
	voiceID    string
	model      string
	httpClient *http.Client
}

// NewElevenLabsSynthesizer 创建 ElevenLabs 合成器
func NewElevenLabsSynthesizer(apiKey, voiceID, model string) *ElevenLabsSynthesizer {
	if voiceID == "" {
		voiceID = defaultElevenLabsVoiceID
	}
	if model == "" {
		model = defaultElevenLabsModel
	}
	return &ElevenLabsSynthesizer{
		apiKey:     apiKey,
		voiceID:    voiceID,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Name 返回提供方名称
func (s *ElevenLabsSynthesizer) Name() string {
	return "elevenlabs"
}

// elevenLabsResponse with-timestamps 接口响应
type elevenLabsResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Alignment   struct {
		Characters          []string  `json:"characters"`
		CharacterStartTimes []float64 `json:"character_start_times_seconds"`
		CharacterEndTimes   []float64 `json:"character_end_times_seconds"`
	} `json:"alignment"`
}

// Synthesize 合成语音并返回词级时间戳
func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, req *Request) (*Result, error) {
	if s.apiKey == "" {
		return nil, provider.NewError(provider.ErrAuth, s.Name(), "synthesize",
			fmt.Errorf("elevenlabs API key not configured"))
	}

	voiceID := s.voiceID
	if req.Voice != "" {
		voiceID = req.Voice
	}

	payload := map[string]interface{}{
		"text":     req.Text,
		"model_id": s.model,
		"voice_settings": map[string]interface{}{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "synthesize", err)
	}

	url := fmt.Sprintf("%s/%s/with-timestamps?output_format=mp3_44100_128", elevenLabsAPIURL, voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewError(provider.ErrUnavailable, s.Name(), "synthesize", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", s.apiKey)

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

	var er elevenLabsResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "synthesize",
			fmt.Errorf("malformed response: %w", err))
	}
	if er.AudioBase64 == "" {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "synthesize",
			fmt.Errorf("no audio in response"))
	}

	audio, err := base64.StdEncoding.DecodeString(er.AudioBase64)
	if err != nil {
		return nil, provider.NewError(provider.ErrInvalidResponse, s.Name(), "synthesize",
			fmt.Errorf("failed to decode audio: %w", err))
	}

	timings := GroupCharTimings(
		er.Alignment.Characters,
		er.Alignment.CharacterStartTimes,
		er.Alignment.CharacterEndTimes,
	)

	var duration float64
	if n := len(er.Alignment.CharacterEndTimes); n > 0 {
		duration = er.Alignment.CharacterEndTimes[n-1]
	}

	return &Result{
		AudioData: audio,
		Duration:  duration,
		Timings:   timings,
		Voice:     voiceID,
	}, nil
}
