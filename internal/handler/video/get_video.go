package video

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	videoservice "vidgenai/internal/service/video"
)

// GetVideo 查询视频任务详情
func (h *Handler) GetVideo(c *gin.Context) {
	videoID := c.Param("video_id")

	v, err := h.videoService.Get(c.Request.Context(), videoID)
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
		"data":    toVideoInfo(v),
	})
}
