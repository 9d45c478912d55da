package video

import (
	videoservice "vidgenai/internal/service/video"
)

// Handler 视频生成处理器
// 所有视频相关的Handler方法都通过这个结构体访问Service
type Handler struct {
	videoService videoservice.Service
}

// NewHandler 创建视频生成处理器
func NewHandler(videoService videoservice.Service) *Handler {
	return &Handler{
		videoService: videoService,
	}
}
