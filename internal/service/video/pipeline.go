package video

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/speech"
	videorepo "vidgenai/internal/repository/video"
)

// 各阶段内的进度里程碑（阶段基线见 model/video.ProgressForStatus）
const (
	progressScriptSaved = 20 // 脚本已落库
	progressImagesSaved = 40 // 图片已就绪
	progressAudioSaved  = 60 // 配音已就绪
)

// pipelineState 流水线各阶段之间传递的中间产物
type pipelineState struct {
	video    *video.Video
	dir      string          // 任务临时目录
	timings  []speech.Timing // 配音词级时间戳
	srtPath  string          // 字幕文件路径
	clipsDir string          // 场景片段目录

	videoPath     string  // 合成后的成片路径
	thumbnailPath string  // 封面路径
	finalDuration float64 // 成片时长
	finalWidth    int     // 成片宽度
	finalHeight   int     // 成片高度
	finalSize     int64   // 成片文件大小（字节）
}

// runPipeline 执行完整生成流水线
// 状态推进严格按阶段顺序，任一阶段出错整个任务标记失败
func (s *videoService) runPipeline(ctx context.Context, videoID string) {
	defer s.unregisterCancel(videoID)

	dir := s.jobDir(videoID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.failPipeline(videoID, video.VideoStatusPending, fmt.Errorf("create work dir: %w", err))
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("video_id", videoID).Msg("failed to clean work dir")
		}
	}()

	st := &pipelineState{dir: dir}

	stages := []struct {
		status video.VideoStatus
		run    func(ctx context.Context, st *pipelineState) error
	}{
		{video.VideoStatusGeneratingScript, s.stageScript},
		{video.VideoStatusFetchingImages, s.stageImages},
		{video.VideoStatusGeneratingAudio, s.stageAudio},
		{video.VideoStatusGeneratingSubtitles, s.stageSubtitles},
		{video.VideoStatusComposingVideo, s.stageCompose},
		{video.VideoStatusUploading, s.stageUpload},
	}

	current := video.VideoStatusPending
	for _, stage := range stages {
		if ctx.Err() != nil {
			s.failPipeline(videoID, current, ctx.Err())
			return
		}

		if err := s.advance(ctx, videoID, current, stage.status); err != nil {
			// 状态冲突意味着任务已被取消或外部标记失败，静默退出
			if errors.Is(err, videorepo.ErrStaleTransition) {
				log.Info().Str("video_id", videoID).Str("stage", stage.status.String()).
					Msg("pipeline stopped: status changed externally")
				return
			}
			s.failPipeline(videoID, current, err)
			return
		}
		current = stage.status

		// 进入阶段后重读任务，拿到前序阶段落库的最新状态
		v, err := s.repo.FindByID(ctx, videoID)
		if err != nil {
			s.failPipeline(videoID, current, err)
			return
		}
		st.video = v

		log.Info().
			Str("video_id", videoID).
			Str("stage", current.String()).
			Msg("流水线进入新阶段")

		if err := stage.run(ctx, st); err != nil {
			if ctx.Err() != nil {
				// 取消优先于阶段错误
				s.failPipeline(videoID, current, ctx.Err())
				return
			}
			s.failPipeline(videoID, current, err)
			return
		}
	}

	log.Info().Str("video_id", videoID).Msg("视频生成完成")
}

// advance 推进任务状态并刷新轮询缓存
func (s *videoService) advance(ctx context.Context, videoID string, from, to video.VideoStatus) error {
	if err := s.repo.UpdateStatus(ctx, videoID, from, to, video.ProgressForStatus(to)); err != nil {
		return err
	}
	s.invalidateStatusCache(ctx, videoID)
	return nil
}

// failPipeline 标记任务失败
// 使用独立上下文，任务取消后依然要能落库
func (s *videoService) failPipeline(videoID string, stage video.VideoStatus, cause error) {
	ctx := context.Background()

	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = "cancelled"
	}

	if err := s.repo.MarkFailed(ctx, videoID, stage, msg); err != nil {
		if !errors.Is(err, videorepo.ErrStaleTransition) {
			log.Error().Err(err).Str("video_id", videoID).Msg("failed to mark video as failed")
		}
		return
	}
	s.invalidateStatusCache(ctx, videoID)

	log.Error().
		Str("video_id", videoID).
		Str("stage", stage.String()).
		Str("error", msg).
		Msg("视频生成失败")
}

// saveProgress 阶段内里程碑进度
func (s *videoService) saveProgress(ctx context.Context, videoID string, scenes []video.Scene, progress int) error {
	if err := s.repo.UpdateScenes(ctx, videoID, scenes, progress); err != nil {
		return err
	}
	s.invalidateStatusCache(ctx, videoID)
	return nil
}
