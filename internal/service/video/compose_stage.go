package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// stageCompose 合成最终视频
// 受全局并发闸约束，防止多任务同时编码打爆 CPU
func (s *videoService) stageCompose(ctx context.Context, st *pipelineState) error {
	v := st.video
	if v.Script == nil || len(v.Script.Scenes) == 0 {
		return fmt.Errorf("no scenes to compose")
	}
	if v.Audio == nil || v.Audio.Path == "" {
		return fmt.Errorf("no audio to compose")
	}
	if st.srtPath == "" {
		return fmt.Errorf("no subtitles to compose")
	}

	// 全局并发闸
	select {
	case s.composeSem <- struct{}{}:
		defer func() { <-s.composeSem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	width, height := v.AspectRatio.Dimensions()
	fps := s.cfg.Pipeline.Compose.FPS

	st.clipsDir = filepath.Join(st.dir, "clips")
	if err := os.MkdirAll(st.clipsDir, 0755); err != nil {
		return fmt.Errorf("create clips dir: %w", err)
	}

	// 1. 逐分镜生成带动态效果的片段
	clipPaths := make([]string, 0, len(v.Script.Scenes))
	for i := range v.Script.Scenes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sc := &v.Script.Scenes[i]
		if sc.ImagePath == "" {
			return fmt.Errorf("scene %d has no image", sc.Index)
		}
		if sc.Duration <= 0 {
			return fmt.Errorf("scene %d has no duration", sc.Index)
		}

		clipPath := filepath.Join(st.clipsDir, fmt.Sprintf("clip_%03d.mp4", sc.Index))
		if err := s.ffmpeg.CreateImageVideo(ctx, sc.ImagePath, clipPath, sc.Duration, width, height, fps, sc.Index); err != nil {
			return fmt.Errorf("create clip for scene %d: %w", sc.Index, err)
		}
		clipPaths = append(clipPaths, clipPath)
	}

	// 2. 拼接片段
	silentPath := filepath.Join(st.dir, "silent.mp4")
	if err := s.ffmpeg.ConcatVideos(ctx, clipPaths, silentPath); err != nil {
		return fmt.Errorf("concat clips: %w", err)
	}

	// 3. 合入解说音轨
	muxedPath := filepath.Join(st.dir, "muxed.mp4")
	if err := s.ffmpeg.MuxAudio(ctx, silentPath, v.Audio.Path, muxedPath, s.cfg.Pipeline.Compose.AudioBitrate); err != nil {
		return fmt.Errorf("mux audio: %w", err)
	}

	// 4. 烧录字幕并编码成片
	finalPath := filepath.Join(st.dir, "final.mp4")
	if err := s.ffmpeg.BurnSubtitles(ctx, muxedPath, st.srtPath, finalPath, s.cfg.Pipeline.Compose.VideoBitrate); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}

	// 5. 抽取封面，封面与成片同为必选产物
	thumbnailPath := filepath.Join(st.dir, "thumbnail.jpg")
	if err := s.ffmpeg.ExtractThumbnail(ctx, finalPath, thumbnailPath, 0); err != nil {
		return fmt.Errorf("extract thumbnail: %w", err)
	}

	info, err := s.ffmpeg.GetVideoInfo(ctx, finalPath)
	if err != nil {
		return fmt.Errorf("probe final video: %w", err)
	}
	stat, err := os.Stat(finalPath)
	if err != nil {
		return fmt.Errorf("stat final video: %w", err)
	}

	st.videoPath = finalPath
	st.thumbnailPath = thumbnailPath
	st.finalDuration = info.Duration
	st.finalWidth = info.Width
	st.finalHeight = info.Height
	st.finalSize = stat.Size()

	log.Info().
		Str("video_id", v.ID).
		Float64("duration", info.Duration).
		Int("width", width).
		Int("height", height).
		Msg("视频合成完成")

	return nil
}
