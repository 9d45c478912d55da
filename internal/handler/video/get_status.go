package video

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	videoservice "vidgenai/internal/service/video"
)

// GetStatus 查询视频任务状态（轮询接口）
// 返回轻量状态投影，带短TTL缓存
func (h *Handler) GetStatus(c *gin.Context) {
	videoID := c.Param("video_id")

	view, err := h.videoService.GetStatus(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, videoservice.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    40401,
				Message: "Video not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    view,
	})
}
