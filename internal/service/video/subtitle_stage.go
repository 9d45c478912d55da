package video

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"vidgenai/internal/pkg/subtitle"
)

// stageSubtitles 生成 SRT 字幕
// 有词级时间戳按时间戳分组；没有则按句子均匀铺满音频时长
func (s *videoService) stageSubtitles(ctx context.Context, st *pipelineState) error {
	v := st.video
	if v.Audio == nil || v.Audio.Duration <= 0 {
		return fmt.Errorf("no audio to subtitle")
	}

	opts := subtitle.Options{
		MaxCueDuration: s.cfg.Pipeline.Subtitle.MaxCueDuration,
		MaxCueChars:    s.cfg.Pipeline.Subtitle.MaxCueChars,
	}

	var cues []subtitle.Cue
	if len(st.timings) > 0 {
		cues = subtitle.BuildCues(st.timings, v.Audio.Duration, opts)
	}
	if len(cues) == 0 {
		// 时间戳缺失降级：句子均匀分布
		cues = subtitle.EvenCues(s.subtitleSplitter, joinNarrations(v.Script.Scenes), v.Audio.Duration, opts)
		log.Warn().Str("video_id", v.ID).Msg("词级时间戳缺失，字幕按句子均匀分布")
	}
	if len(cues) == 0 {
		return fmt.Errorf("no subtitle cues produced")
	}

	srtPath := filepath.Join(st.dir, "subtitles.srt")
	if err := subtitle.SaveSRT(srtPath, cues); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	st.srtPath = srtPath

	log.Info().
		Str("video_id", v.ID).
		Int("cues", len(cues)).
		Msg("字幕生成成功")

	return nil
}
