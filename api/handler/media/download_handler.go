package media

import (
	"fmt"
	"net/http"
	"path"

	"github.com/anoixa/media-server/utils"
	"github.com/gin-gonic/gin"
)

// Download 返回原始文件内容
// @Summary      Download a media file
// @Tags         media
// @Produce      octet-stream
// @Param        file_id  path  string  true  "file id"
// @Success      200  {file}    binary
// @Failure      404  {object}  common.ErrorResponse
// @Failure      500  {object}  common.ErrorResponse
// @Router       /download/{file_id} [get]
func (h *Handler) Download(c *gin.Context) {
	record, rc, err := h.service.Open(c.Request.Context(), c.Param("file_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()

	c.DataFromReader(http.StatusOK, record.FileSize, utils.ContentTypeForPath(record.FilePath), rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="%s"`, path.Base(record.FilePath)),
	})
}
