package video

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/imagesearch"
	"vidgenai/internal/pkg/provider"
)

// 图片阶段参数
const (
	searchMaxTries      = 2  // 单个搜索提供方的瞬时错误重试次数
	searchCandidateNum  = 10 // 每个检索词请求的候选数
	downloadMaxAttempts = 5  // 每个分镜最多尝试下载的候选数
)

// stageImages 为每个分镜并发取图
// 全部分镜都拿不到图片时任务失败；个别分镜失败复用其他分镜图片并记告警
func (s *videoService) stageImages(ctx context.Context, st *pipelineState) error {
	v := st.video
	if v.Script == nil || len(v.Script.Scenes) == 0 {
		return fmt.Errorf("no script scenes to fetch images for")
	}

	scenes := v.Script.Scenes
	targetW, targetH := v.AspectRatio.Dimensions()

	// 跨分镜去重，同一图片URL不重复选中
	var usedMu sync.Mutex
	usedURLs := make(map[string]bool)

	concurrency := maxInt(s.cfg.Pipeline.Image.Concurrency, 1)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	results := make([]error, len(scenes))
	for i := range scenes {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[idx] = ctx.Err()
				return
			}
			results[idx] = s.fetchSceneImage(ctx, st, &scenes[idx], targetW, targetH, usedURLs, &usedMu)
		}(i)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// 统计失败分镜，为其复用邻近分镜的图片
	var withImage, missing []int
	for i := range scenes {
		if scenes[i].ImagePath != "" {
			withImage = append(withImage, i)
		} else {
			missing = append(missing, i)
		}
	}

	if len(withImage) == 0 {
		return fmt.Errorf("no images found for any scene")
	}

	for _, idx := range missing {
		donor := pickDonor(scenes, withImage, idx)
		scenes[idx].ImagePath = scenes[donor].ImagePath
		scenes[idx].ImageURL = scenes[donor].ImageURL
		scenes[idx].Fallback = true

		warning := fmt.Sprintf("scene %d: no usable image found, reusing image from scene %d", idx, donor)
		if err := s.repo.AppendWarning(ctx, v.ID, warning); err != nil {
			log.Warn().Err(err).Str("video_id", v.ID).Msg("failed to append warning")
		}
		log.Warn().
			Str("video_id", v.ID).
			Int("scene", idx).
			Int("donor", donor).
			Err(results[idx]).
			Msg("分镜取图失败，复用邻近分镜图片")
	}

	if err := s.saveProgress(ctx, v.ID, scenes, progressImagesSaved); err != nil {
		return fmt.Errorf("save scenes: %w", err)
	}

	log.Info().
		Str("video_id", v.ID).
		Int("scenes", len(scenes)).
		Int("fallback", len(missing)).
		Msg("分镜图片就绪")

	return nil
}

// fetchSceneImage 为单个分镜搜索并下载图片
// 先按分镜检索词找，找不到再退回主题级检索词；每轮候选按目标宽高比排序逐个尝试
func (s *videoService) fetchSceneImage(
	ctx context.Context,
	st *pipelineState,
	scene *video.Scene,
	targetW, targetH int,
	usedURLs map[string]bool,
	usedMu *sync.Mutex,
) error {
	var lastErr error
	for _, term := range sceneSearchTerms(scene, st.video.Topic) {
		found, err := s.searchCandidates(ctx, term)
		if err != nil {
			lastErr = fmt.Errorf("search images for %q: %w", term, err)
			continue
		}

		found = imagesearch.FilterMinSize(found, s.cfg.Pipeline.Image.MinWidth, s.cfg.Pipeline.Image.MinHeight)
		found = imagesearch.DropWatermarked(found)
		found = imagesearch.RankByAspectRatio(found, targetW, targetH)

		if err := s.downloadFirstUsable(ctx, st, scene, found, usedURLs, usedMu); err != nil {
			lastErr = fmt.Errorf("no usable image among %d candidates for %q", len(found), term)
			continue
		}
		return nil
	}
	return lastErr
}

// sceneSearchTerms 分镜检索词序列：先用分镜自己的检索词，再退回主题级检索
func sceneSearchTerms(scene *video.Scene, topic string) []string {
	var terms []string
	if scene.SearchTerm != "" {
		terms = append(terms, scene.SearchTerm)
	}
	if topic != "" {
		generic := topic + " portrait"
		if generic != scene.SearchTerm {
			terms = append(terms, generic)
		}
	}
	return terms
}

// searchCandidates 沿提供方链检索图片候选
func (s *videoService) searchCandidates(ctx context.Context, term string) ([]imagesearch.Candidate, error) {
	candidates := make([]provider.Candidate[[]imagesearch.Candidate], 0, len(s.searchers))
	for _, searcher := range s.searchers {
		searcher := searcher
		candidates = append(candidates, provider.Candidate[[]imagesearch.Candidate]{
			Name: searcher.Name(),
			Fn: func(ctx context.Context) ([]imagesearch.Candidate, error) {
				return searcher.Search(ctx, term, searchCandidateNum)
			},
		})
	}
	found, _, err := provider.Fallback(ctx, "search_images", searchMaxTries, candidates)
	return found, err
}

// downloadFirstUsable 按序下载候选，首个校验通过且未被其他分镜占用的胜出
func (s *videoService) downloadFirstUsable(
	ctx context.Context,
	st *pipelineState,
	scene *video.Scene,
	found []imagesearch.Candidate,
	usedURLs map[string]bool,
	usedMu *sync.Mutex,
) error {
	attempts := 0
	for _, c := range found {
		if attempts >= downloadMaxAttempts {
			break
		}

		usedMu.Lock()
		if usedURLs[c.URL] {
			usedMu.Unlock()
			continue
		}
		usedMu.Unlock()

		attempts++
		destPath := filepath.Join(st.dir, fmt.Sprintf("scene_%03d.img", scene.Index))
		w, h, err := s.downloader.Fetch(ctx, c.URL, destPath)
		if err != nil {
			log.Debug().Err(err).Str("url", c.URL).Int("scene", scene.Index).Msg("image candidate rejected")
			continue
		}

		usedMu.Lock()
		if usedURLs[c.URL] {
			// 并发竞争时让先到者持有
			usedMu.Unlock()
			continue
		}
		usedURLs[c.URL] = true
		usedMu.Unlock()

		scene.ImagePath = destPath
		scene.ImageURL = c.URL
		log.Debug().
			Int("scene", scene.Index).
			Str("url", c.URL).
			Int("width", w).
			Int("height", h).
			Msg("分镜图片下载成功")
		return nil
	}
	return fmt.Errorf("no usable candidate")
}

// pickDonor 为无图分镜选择复用图片的来源分镜
// 优先选图片与相邻分镜都不同的最近分镜，避免相邻画面重复；没有再退回最近分镜
func pickDonor(scenes []video.Scene, withImage []int, idx int) int {
	nearest, nearestDist := -1, len(scenes)+1
	distinct, distinctDist := -1, len(scenes)+1
	for _, i := range withImage {
		d := abs(i - idx)
		if d < nearestDist {
			nearest, nearestDist = i, d
		}
		if neighborsDiffer(scenes, idx, scenes[i].ImagePath) && d < distinctDist {
			distinct, distinctDist = i, d
		}
	}
	if distinct >= 0 {
		return distinct
	}
	return nearest
}

// neighborsDiffer 判断 idx 的相邻分镜是否都不使用该图片
func neighborsDiffer(scenes []video.Scene, idx int, imagePath string) bool {
	if idx > 0 && scenes[idx-1].ImagePath == imagePath {
		return false
	}
	if idx < len(scenes)-1 && scenes[idx+1].ImagePath == imagePath {
		return false
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
