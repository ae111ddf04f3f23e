package media

import (
	"net/http"

	"github.com/anoixa/media-server/api/common"
	"github.com/gin-gonic/gin"
)

type previewQuery struct {
	Width  int `form:"width" binding:"required,gt=0"`
	Height int `form:"height" binding:"required,gt=0"`
}

// Preview 返回指定尺寸的 PNG 预览
// @Summary      Get a resized PNG preview
// @Description  Images are stretched to exactly width x height. Videos use their first frame.
// @Tags         media
// @Produce      png
// @Param        file_id  path   string  true  "file id"
// @Param        width    query  int     true  "preview width"
// @Param        height   query  int     true  "preview height"
// @Success      200  {file}    binary
// @Failure      400  {object}  common.ErrorResponse
// @Failure      404  {object}  common.ErrorResponse
// @Failure      422  {object}  common.ErrorResponse
// @Failure      500  {object}  common.ErrorResponse
// @Failure      503  {object}  common.ErrorResponse
// @Router       /preview/{file_id} [get]
func (h *Handler) Preview(c *gin.Context) {
	var q previewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Width and height must be positive integers")
		return
	}

	data, err := h.service.Preview(c.Request.Context(), c.Param("file_id"), q.Width, q.Height)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// 同一 id 与尺寸的预览内容不会变化
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, "image/png", data)
}
