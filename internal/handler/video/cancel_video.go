package video

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	videoservice "vidgenai/internal/service/video"
)

// CancelVideo 取消运行中的视频任务
func (h *Handler) CancelVideo(c *gin.Context) {
	videoID := c.Param("video_id")

	err := h.videoService.Cancel(c.Request.Context(), videoID)
	if err != nil {
		switch {
		case errors.Is(err, videoservice.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    40401,
				Message: "Video not found",
			})
		case errors.Is(err, videoservice.ErrNotCancellable):
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:    40901,
				Message: "Video is already completed or failed",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Code:    50001,
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "视频生成任务已取消",
	})
}
