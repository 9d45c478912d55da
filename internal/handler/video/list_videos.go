package video

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListVideosResponseData 任务列表响应数据
type ListVideosResponseData struct {
	Videos   []VideoInfo `json:"videos"`    // 任务列表
	Total    int64       `json:"total"`     // 总数
	Page     int         `json:"page"`      // 当前页
	PageSize int         `json:"page_size"` // 每页数量
}

// ListVideos 分页查询视频任务列表
// 支持按状态过滤: ?status=completed&page=1&page_size=20
func (h *Handler) ListVideos(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	videos, total, err := h.videoService.List(c.Request.Context(), status, page, pageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40003,
			Message: err.Error(),
		})
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data": ListVideosResponseData{
			Videos:   toVideoInfoList(videos),
			Total:    total,
			Page:     page,
			PageSize: pageSize,
		},
	})
}
