package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"vidgenai/internal/config"
	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/cache"
	"vidgenai/internal/pkg/ffmpeg"
	"vidgenai/internal/pkg/id"
	"vidgenai/internal/pkg/imagesearch"
	"vidgenai/internal/pkg/script"
	"vidgenai/internal/pkg/speech"
	"vidgenai/internal/pkg/storage"
	"vidgenai/internal/pkg/subtitle"
	videorepo "vidgenai/internal/repository/video"
)

// ErrNotFound 任务不存在
var ErrNotFound = videorepo.ErrNotFound

// ErrNotCancellable 任务已处于终态，无法取消
var ErrNotCancellable = errors.New("video is not cancellable")

// ErrNotDeletable 任务仍在运行，无法删除
var ErrNotDeletable = errors.New("video is still running")

// CreateRequest 创建视频任务请求
type CreateRequest struct {
	Topic       string // 视频主题（必填）
	Language    string // 解说语言，默认 English
	Voice       string // 指定音色（可选）
	AspectRatio string // 画面比例，默认 9:16
}

// StatusView 轮询接口的状态投影
type StatusView struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Progress     int      `json:"progress"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	VideoURL     string   `json:"video_url,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

// Service 视频生成服务接口
type Service interface {
	// Create 创建任务并异步启动生成流水线
	Create(ctx context.Context, req *CreateRequest) (*video.Video, error)

	// Get 查询任务完整详情
	Get(ctx context.Context, videoID string) (*video.Video, error)

	// GetStatus 查询任务状态投影（带短TTL缓存，供高频轮询）
	GetStatus(ctx context.Context, videoID string) (*StatusView, error)

	// List 分页查询任务
	List(ctx context.Context, status string, page, pageSize int) ([]*video.Video, int64, error)

	// Cancel 取消运行中的任务
	Cancel(ctx context.Context, videoID string) error

	// Delete 删除终态任务记录
	Delete(ctx context.Context, videoID string) error
}

// videoService 视频生成服务实现
type videoService struct {
	cfg              *config.Config
	repo             videorepo.VideoRepository
	cache            *cache.RedisCache
	store            storage.Storage
	ffmpeg           *ffmpeg.Client
	subtitleSplitter *subtitle.Splitter
	downloader       *imagesearch.Downloader

	scriptGens   []script.Generator
	searchers    []imagesearch.Searcher
	synthesizers []speech.Synthesizer

	composeSem chan struct{} // 合成阶段全局并发闸
	workDir    string        // 任务临时目录根

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // 运行中任务的取消句柄
}

// NewService 创建视频生成服务
// 提供方链按配置顺序组装，缺 key 的提供方保留在链中、调用时报 auth 错误并跳过
func NewService(
	cfg *config.Config,
	repo videorepo.VideoRepository,
	redisCache *cache.RedisCache,
	store storage.Storage,
) Service {
	s := &videoService{
		cfg:              cfg,
		repo:             repo,
		cache:            redisCache,
		store:            store,
		ffmpeg:           ffmpeg.NewClient(),
		subtitleSplitter: subtitle.NewSplitter(),
		downloader:       imagesearch.NewDownloader(cfg.Pipeline.Image.MinWidth, cfg.Pipeline.Image.MinHeight),
		composeSem:       make(chan struct{}, maxInt(cfg.Pipeline.Compose.Concurrency, 1)),
		workDir:          filepath.Join(os.TempDir(), "vidgenai"),
		cancels:          make(map[string]context.CancelFunc),
	}

	// 脚本提供方链：配置的主提供方 + Ark 备用
	s.scriptGens = append(s.scriptGens, script.NewEinoGenerator(&cfg.AI))
	if cfg.AI.ArkAPIKey != "" && cfg.AI.Provider != "ark" {
		s.scriptGens = append(s.scriptGens, script.NewArkGenerator(cfg.AI.ArkAPIKey, cfg.AI.ArkModel))
	}

	// 图片搜索提供方链
	for _, name := range cfg.Search.Providers {
		switch name {
		case "serp":
			s.searchers = append(s.searchers, imagesearch.NewSerpSearcher(cfg.Search.Serp.APIKey))
		case "brave":
			s.searchers = append(s.searchers, imagesearch.NewBraveSearcher(cfg.Search.Brave.APIKey))
		default:
			log.Warn().Str("provider", name).Msg("unknown image search provider, skipped")
		}
	}

	// 语音合成提供方链
	for _, name := range cfg.Speech.Providers {
		switch name {
		case "elevenlabs":
			s.synthesizers = append(s.synthesizers, speech.NewElevenLabsSynthesizer(
				cfg.Speech.ElevenLabs.APIKey,
				cfg.Speech.ElevenLabs.VoiceID,
				cfg.Speech.ElevenLabs.Model,
			))
		case "volc":
			s.synthesizers = append(s.synthesizers, speech.NewVolcSynthesizer(
				cfg.Speech.Volc.AccessToken,
				cfg.Speech.Volc.AppID,
				cfg.Speech.Volc.VoiceType,
				cfg.Speech.Volc.Cluster,
			))
		default:
			log.Warn().Str("provider", name).Msg("unknown speech provider, skipped")
		}
	}

	return s
}

// Create 创建任务并异步启动生成流水线
func (s *videoService) Create(ctx context.Context, req *CreateRequest) (*video.Video, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = "English"
	}

	aspectRatio := video.AspectRatio(req.AspectRatio)
	if req.AspectRatio == "" {
		aspectRatio = video.AspectRatio(s.cfg.Pipeline.Compose.AspectRatio)
	}
	if !aspectRatio.IsValid() {
		return nil, fmt.Errorf("unsupported aspect ratio: %s", req.AspectRatio)
	}

	v := &video.Video{
		ID:          id.New(),
		Topic:       topic,
		Language:    language,
		Voice:       strings.TrimSpace(req.Voice),
		AspectRatio: aspectRatio,
		Status:      video.VideoStatusPending,
		Progress:    0,
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create video record: %w", err)
	}

	// 流水线在后台运行，生命周期独立于请求上下文
	pipelineCtx, cancel := context.WithCancel(context.Background())
	s.registerCancel(v.ID, cancel)
	go s.runPipeline(pipelineCtx, v.ID)

	log.Info().
		Str("video_id", v.ID).
		Str("topic", topic).
		Str("aspect_ratio", aspectRatio.String()).
		Msg("视频生成任务已创建")

	return v, nil
}

// Get 查询任务完整详情
func (s *videoService) Get(ctx context.Context, videoID string) (*video.Video, error) {
	return s.repo.FindByID(ctx, videoID)
}

// GetStatus 查询任务状态投影
// 先查 Redis 短TTL缓存，未命中回源 Mongo 并回填
func (s *videoService) GetStatus(ctx context.Context, videoID string) (*StatusView, error) {
	key := cache.VideoStatusCacheKey(videoID)

	if s.cache != nil {
		var cached StatusView
		if err := s.cache.Get(ctx, key, &cached); err == nil && cached.ID != "" {
			return &cached, nil
		}
	}

	v, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{
		ID:           v.ID,
		Status:       v.Status.String(),
		Progress:     v.Progress,
		ErrorMessage: v.ErrorMessage,
		Warnings:     v.Warnings,
	}
	if v.Output != nil {
		view.VideoURL = v.Output.VideoURL
		view.ThumbnailURL = v.Output.ThumbnailURL
	}

	if s.cache != nil {
		// 缓存写失败只降级不报错
		if err := s.cache.Set(ctx, key, view, cache.VideoStatusCacheTTL); err != nil {
			log.Debug().Err(err).Str("video_id", videoID).Msg("failed to cache status view")
		}
	}

	return view, nil
}

// List 分页查询任务
func (s *videoService) List(ctx context.Context, status string, page, pageSize int) ([]*video.Video, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	if status != "" {
		if !isKnownStatus(status) {
			return nil, 0, fmt.Errorf("unknown status filter: %s", status)
		}
	}
	return s.repo.List(ctx, status, page, pageSize)
}

// Cancel 取消运行中的任务
// 标记失败并触发流水线上下文取消，终态任务返回 ErrNotCancellable
func (s *videoService) Cancel(ctx context.Context, videoID string) error {
	v, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		return err
	}
	if v.Status.IsTerminal() {
		return ErrNotCancellable
	}

	if err := s.repo.MarkFailed(ctx, videoID, v.Status, "cancelled by user"); err != nil {
		if errors.Is(err, videorepo.ErrStaleTransition) {
			return ErrNotCancellable
		}
		return err
	}

	s.invalidateStatusCache(ctx, videoID)

	s.mu.Lock()
	cancel, ok := s.cancels[videoID]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	log.Info().Str("video_id", videoID).Msg("视频生成任务已取消")
	return nil
}

// Delete 删除终态任务记录及其产物
func (s *videoService) Delete(ctx context.Context, videoID string) error {
	v, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		return err
	}
	if !v.Status.IsTerminal() {
		return ErrNotDeletable
	}

	// 尽力清理对象存储产物，失败不阻断记录删除
	if v.Output != nil {
		for _, key := range []string{v.Output.VideoKey, v.Output.ThumbnailKey, v.Output.SubtitleKey} {
			if key == "" {
				continue
			}
			if err := s.store.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("video_id", videoID).Str("key", key).Msg("failed to delete stored object")
			}
		}
	}

	if err := s.repo.Delete(ctx, videoID); err != nil {
		return err
	}
	s.invalidateStatusCache(ctx, videoID)
	return nil
}

func (s *videoService) registerCancel(videoID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[videoID] = cancel
}

func (s *videoService) unregisterCancel(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[videoID]; ok {
		cancel()
		delete(s.cancels, videoID)
	}
}

// invalidateStatusCache 状态变更后删除轮询缓存，让下一次读取回源
func (s *videoService) invalidateStatusCache(ctx context.Context, videoID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.VideoStatusCacheKey(videoID)); err != nil {
		log.Debug().Err(err).Str("video_id", videoID).Msg("failed to invalidate status cache")
	}
}

// jobDir 任务专属临时目录
func (s *videoService) jobDir(videoID string) string {
	return filepath.Join(s.workDir, videoID)
}

func isKnownStatus(status string) bool {
	switch video.VideoStatus(status) {
	case video.VideoStatusPending, video.VideoStatusGeneratingScript,
		video.VideoStatusFetchingImages, video.VideoStatusGeneratingAudio,
		video.VideoStatusGeneratingSubtitles, video.VideoStatusComposingVideo,
		video.VideoStatusUploading, video.VideoStatusCompleted, video.VideoStatusFailed:
		return true
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
