package video

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	videoservice "vidgenai/internal/service/video"
)

// DeleteVideo 删除终态视频任务及其产物
func (h *Handler) DeleteVideo(c *gin.Context) {
	videoID := c.Param("video_id")

	err := h.videoService.Delete(c.Request.Context(), videoID)
	if err != nil {
		switch {
		case errors.Is(err, videoservice.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    40401,
				Message: "Video not found",
			})
		case errors.Is(err, videoservice.ErrNotDeletable):
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:    40902,
				Message: "Video is still running, cancel it first",
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
		"message": "视频任务已删除",
	})
}
