package media

import (
	"errors"
	"net/http"

	"github.com/anoixa/media-server/api/common"
	"github.com/gin-gonic/gin"
)

// Upload 上传单个文件
// @Summary      Upload a media file
// @Description  Accepts png, jpg, jpeg, mp4 and avi files under the multipart field "file".
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "media file"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  common.ErrorResponse
// @Failure      413  {object}  common.ErrorResponse
// @Failure      500  {object}  common.ErrorResponse
// @Router       /upload/ [put]
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || isBodyTooLarge(err) {
			common.RespondError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		common.RespondError(c, http.StatusBadRequest, "A file is required under the 'file' key")
		return
	}

	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		common.RespondError(c, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer func() { _ = file.Close() }()

	record, err := h.service.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Message: "File uploaded successfully",
		FileID:  record.ID,
	})
}
