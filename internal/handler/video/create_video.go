package video

import (
	"net/http"

	"github.com/gin-gonic/gin"

	videoservice "vidgenai/internal/service/video"
)

// CreateVideoRequest 创建视频任务请求
type CreateVideoRequest struct {
	Topic       string `json:"topic" binding:"required"` // 视频主题（必填）
	Language    string `json:"language"`                 // 解说语言（默认 English）
	Voice       string `json:"voice"`                    // 指定音色（可选）
	AspectRatio string `json:"aspect_ratio"`             // 画面比例（默认 9:16）
}

// CreateVideoResponseData 创建视频任务响应数据
type CreateVideoResponseData struct {
	VideoID string `json:"video_id"` // 任务ID
	Status  string `json:"status"`   // 初始状态
}

// CreateVideo 创建视频生成任务
// 任务创建后立即返回，生成流水线在后台异步执行
func (h *Handler) CreateVideo(c *gin.Context) {
	var req CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	v, err := h.videoService.Create(c.Request.Context(), &videoservice.CreateRequest{
		Topic:       req.Topic,
		Language:    req.Language,
		Voice:       req.Voice,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    0,
		"message": "视频生成任务已提交",
		"data": CreateVideoResponseData{
			VideoID: v.ID,
			Status:  v.Status.String(),
		},
	})
}
