package video

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"vidgenai/internal/model/video"
)

// uploadItem 单个待上传产物
type uploadItem struct {
	localPath   string
	key         string
	contentType string
	required    bool // 必选产物失败导致任务失败；可选产物只记告警
}

// stageUpload 上传产物并落库最终结果
// 成片与封面为必选，字幕可选；可选产物失败记入告警，任务仍完成
func (s *videoService) stageUpload(ctx context.Context, st *pipelineState) error {
	v := st.video
	if st.videoPath == "" {
		return fmt.Errorf("no composed video to upload")
	}
	if st.thumbnailPath == "" {
		return fmt.Errorf("no thumbnail to upload")
	}

	items := []uploadItem{
		{st.videoPath, fmt.Sprintf("videos/%s/video.mp4", v.ID), "video/mp4", true},
		{st.thumbnailPath, fmt.Sprintf("videos/%s/thumbnail.jpg", v.ID), "image/jpeg", true},
	}
	if st.srtPath != "" {
		items = append(items, uploadItem{st.srtPath, fmt.Sprintf("videos/%s/subtitles.srt", v.ID), "text/plain", false})
	}

	urls := make([]string, len(items))
	errs := make([]error, len(items))

	concurrency := maxInt(s.cfg.Pipeline.Upload.Concurrency, 1)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			urls[idx], errs[idx] = s.uploadWithRetry(ctx, &items[idx])
		}(i)
	}
	wg.Wait()

	output := &video.Output{
		Duration:  st.finalDuration,
		Width:     st.finalWidth,
		Height:    st.finalHeight,
		SizeBytes: st.finalSize,
	}
	for i, item := range items {
		if errs[i] != nil {
			if item.required {
				return fmt.Errorf("upload %s: %w", item.key, errs[i])
			}
			warning := fmt.Sprintf("optional artifact %s upload failed: %v", item.key, errs[i])
			if err := s.repo.AppendWarning(ctx, v.ID, warning); err != nil {
				log.Warn().Err(err).Str("video_id", v.ID).Msg("failed to append warning")
			}
			log.Warn().Err(errs[i]).Str("video_id", v.ID).Str("key", item.key).Msg("可选产物上传失败")
			continue
		}

		switch item.contentType {
		case "video/mp4":
			output.VideoKey = item.key
			output.VideoURL = urls[i]
		case "image/jpeg":
			output.ThumbnailKey = item.key
			output.ThumbnailURL = urls[i]
		default:
			output.SubtitleKey = item.key
			output.SubtitleURL = urls[i]
		}
	}

	if err := s.repo.MarkCompleted(ctx, v.ID, output); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	s.invalidateStatusCache(ctx, v.ID)

	log.Info().
		Str("video_id", v.ID).
		Str("video_url", output.VideoURL).
		Msg("产物上传完成")

	return nil
}

// uploadWithRetry 带指数退避的上传
func (s *videoService) uploadWithRetry(ctx context.Context, item *uploadItem) (string, error) {
	maxRetries := s.cfg.Pipeline.Upload.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	operation := func() (string, error) {
		f, err := os.Open(item.localPath)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		defer f.Close()
		return s.store.Upload(ctx, item.key, f, item.contentType)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 15 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(maxRetries)))
}
