package video

import (
	"time"

	"vidgenai/internal/model/video"
	httputil "vidgenai/internal/pkg/http"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// SceneInfo 分镜信息 DTO
type SceneInfo struct {
	Index      int     `json:"index"`                 // 分镜序号
	Narration  string  `json:"narration"`             // 解说文本
	SearchTerm string  `json:"search_term"`           // 图片检索词
	ImageURL   string  `json:"image_url,omitempty"`   // 选中的图片URL
	Duration   float64 `json:"duration,omitempty"`    // 画面时长（秒）
	Fallback   bool    `json:"fallback,omitempty"`    // 是否使用了兜底图片
}

// VideoInfo 视频任务信息 DTO
type VideoInfo struct {
	ID           string      `json:"id"`                      // 任务ID
	Topic        string      `json:"topic"`                   // 视频主题
	Language     string      `json:"language"`                // 解说语言
	Voice        string      `json:"voice,omitempty"`         // 指定音色
	AspectRatio  string      `json:"aspect_ratio"`            // 画面比例
	Status       string      `json:"status"`                  // 当前状态
	Progress     int         `json:"progress"`                // 进度 0-100
	Title        string      `json:"title,omitempty"`         // 脚本标题
	Description  string      `json:"description,omitempty"`   // 脚本描述
	Scenes       []SceneInfo `json:"scenes,omitempty"`        // 分镜列表
	Duration     float64     `json:"duration,omitempty"`      // 成片时长（秒）
	VideoURL     string      `json:"video_url,omitempty"`     // 成片URL
	ThumbnailURL string      `json:"thumbnail_url,omitempty"` // 封面URL
	SubtitleURL  string      `json:"subtitle_url,omitempty"`  // 字幕URL
	Warnings     []string    `json:"warnings,omitempty"`      // 非致命告警
	ErrorMessage string      `json:"error_message,omitempty"` // 失败原因
	FailedStage  string      `json:"failed_stage,omitempty"`  // 失败时所处阶段
	CreatedAt    string      `json:"created_at"`              // 创建时间
	UpdatedAt    string      `json:"updated_at"`              // 更新时间
	CompletedAt  string      `json:"completed_at,omitempty"`  // 完成时间
}

// toVideoInfo 将Video实体转换为VideoInfo
func toVideoInfo(v *video.Video) VideoInfo {
	info := VideoInfo{
		ID:           v.ID,
		Topic:        v.Topic,
		Language:     v.Language,
		Voice:        v.Voice,
		AspectRatio:  v.AspectRatio.String(),
		Status:       v.Status.String(),
		Progress:     v.Progress,
		Warnings:     v.Warnings,
		ErrorMessage: v.ErrorMessage,
		FailedStage:  v.FailedStage.String(),
		CreatedAt:    v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    v.UpdatedAt.Format(time.RFC3339),
	}
	if v.Script != nil {
		info.Title = v.Script.Title
		info.Description = v.Script.Description
		info.Scenes = make([]SceneInfo, len(v.Script.Scenes))
		for i, sc := range v.Script.Scenes {
			info.Scenes[i] = SceneInfo{
				Index:      sc.Index,
				Narration:  sc.Narration,
				SearchTerm: sc.SearchTerm,
				ImageURL:   sc.ImageURL,
				Duration:   sc.Duration,
				Fallback:   sc.Fallback,
			}
		}
	}
	if v.Output != nil {
		info.Duration = v.Output.Duration
		info.VideoURL = v.Output.VideoURL
		info.ThumbnailURL = v.Output.ThumbnailURL
		info.SubtitleURL = v.Output.SubtitleURL
	}
	if v.CompletedAt != nil {
		info.CompletedAt = v.CompletedAt.Format(time.RFC3339)
	}
	return info
}

// toVideoInfoList 将Video列表转换为VideoInfo列表
func toVideoInfoList(videos []*video.Video) []VideoInfo {
	result := make([]VideoInfo, len(videos))
	for i, v := range videos {
		result[i] = toVideoInfo(v)
	}
	return result
}
