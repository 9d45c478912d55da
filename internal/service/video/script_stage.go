package video

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"vidgenai/internal/model/video"
	"vidgenai/internal/pkg/provider"
	"vidgenai/internal/pkg/script"
)

// scriptMaxTries 单个脚本提供方的瞬时错误重试次数
const scriptMaxTries = 3

// stageScript 生成脚本
// 主提供方失败后回退备用提供方，成功后脚本落库并推进进度
func (s *videoService) stageScript(ctx context.Context, st *pipelineState) error {
	v := st.video
	req := script.RequestFromConfig(v.Topic, v.Language, &s.cfg.Pipeline.Script)

	candidates := make([]provider.Candidate[*video.Script], 0, len(s.scriptGens))
	for _, gen := range s.scriptGens {
		gen := gen
		candidates = append(candidates, provider.Candidate[*video.Script]{
			Name: gen.Name(),
			Fn: func(ctx context.Context) (*video.Script, error) {
				result, err := gen.Generate(ctx, req)
				if err == nil || provider.KindOf(err) != provider.ErrInvalidResponse {
					return result, err
				}
				// 脚本越界时收紧提示词，同一提供方重试一次再放弃
				log.Warn().
					Str("video_id", v.ID).
					Str("provider", gen.Name()).
					Err(err).
					Msg("脚本越界，收紧提示词重试")
				strictReq := *req
				strictReq.Strict = true
				return gen.Generate(ctx, &strictReq)
			},
		})
	}

	result, used, err := provider.Fallback(ctx, "generate_script", scriptMaxTries, candidates)
	if err != nil {
		return fmt.Errorf("generate script: %w", err)
	}

	log.Info().
		Str("video_id", v.ID).
		Str("provider", used).
		Int("scenes", len(result.Scenes)).
		Str("title", result.Title).
		Msg("脚本生成成功")

	if err := s.repo.UpdateScript(ctx, v.ID, result, progressScriptSaved); err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	s.invalidateStatusCache(ctx, v.ID)

	v.Script = result
	return nil
}
