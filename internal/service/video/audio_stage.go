package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/provider"
	"vidgenai/internal/pkg/speech"
)

// speechMaxTries 单个语音提供方的瞬时错误重试次数
const speechMaxTries = 3

// stageAudio 合成整段解说配音
// 配音成功后按各分镜解说长度占比分配画面时长，残差并入末分镜
func (s *videoService) stageAudio(ctx context.Context, st *pipelineState) error {
	v := st.video
	if v.Script == nil || len(v.Script.Scenes) == 0 {
		return fmt.Errorf("no script scenes to narrate")
	}

	narration := joinNarrations(v.Script.Scenes)
	req := &speech.Request{
		Text:     narration,
		Language: v.Language,
		Voice:    v.Voice,
	}

	candidates := make([]provider.Candidate[*speech.Result], 0, len(s.synthesizers))
	for _, synth := range s.synthesizers {
		synth := synth
		candidates = append(candidates, provider.Candidate[*speech.Result]{
			Name: synth.Name(),
			Fn: func(ctx context.Context) (*speech.Result, error) {
				return synth.Synthesize(ctx, req)
			},
		})
	}

	result, used, err := provider.Fallback(ctx, "synthesize", speechMaxTries, candidates)
	if err != nil {
		return fmt.Errorf("synthesize narration: %w", err)
	}

	audioPath := filepath.Join(st.dir, "narration.mp3")
	if err := os.WriteFile(audioPath, result.AudioData, 0644); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}

	duration := result.Duration
	if duration <= 0 {
		// 提供方未返回时长时用 ffprobe 补测
		info, err := s.ffmpeg.GetAudioInfo(ctx, audioPath)
		if err != nil {
			return fmt.Errorf("probe audio duration: %w", err)
		}
		duration = info.Duration
	}
	if duration <= 0 {
		return fmt.Errorf("audio has zero duration")
	}

	scenes := v.Script.Scenes
	allocateSceneDurations(scenes, duration)

	audio := &video.AudioAsset{
		Path:     audioPath,
		Duration: duration,
		Provider: used,
		Voice:    result.Voice,
	}
	if err := s.repo.UpdateAudio(ctx, v.ID, audio, scenes, progressAudioSaved); err != nil {
		return fmt.Errorf("save audio: %w", err)
	}
	s.invalidateStatusCache(ctx, v.ID)

	v.Audio = audio
	st.timings = result.Timings

	log.Info().
		Str("video_id", v.ID).
		Str("provider", used).
		Float64("duration", duration).
		Int("timings", len(result.Timings)).
		Msg("配音生成成功")

	return nil
}

// joinNarrations 按分镜顺序拼接完整解说文本
func joinNarrations(scenes []video.Scene) string {
	parts := make([]string, 0, len(scenes))
	for _, sc := range scenes {
		parts = append(parts, strings.TrimSpace(sc.Narration))
	}
	return strings.Join(parts, " ")
}

// allocateSceneDurations 按解说字符数占比分配画面时长
// 各分镜时长之和精确等于音频时长，舍入残差并入最后一个分镜
func allocateSceneDurations(scenes []video.Scene, audioDuration float64) {
	total := 0
	for _, sc := range scenes {
		total += utf8.RuneCountInString(sc.Narration)
	}
	if total == 0 {
		// 解说全空理论上不会到这里，均分兜底
		share := audioDuration / float64(len(scenes))
		for i := range scenes {
			scenes[i].Duration = share
		}
		return
	}

	allocated := 0.0
	for i := range scenes {
		if i == len(scenes)-1 {
			scenes[i].Duration = audioDuration - allocated
			break
		}
		share := audioDuration * float64(utf8.RuneCountInString(scenes[i].Narration)) / float64(total)
		scenes[i].Duration = share
		allocated += share
	}
}
