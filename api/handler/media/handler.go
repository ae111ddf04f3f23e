package media

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/anoixa/media-server/api/common"
	"github.com/anoixa/media-server/database/models"
	mediasvc "github.com/anoixa/media-server/internal/media"
	"github.com/anoixa/media-server/internal/preview"
	"github.com/gin-gonic/gin"
)

const WelcomeMessage = "Welcome to the File Upload and Download API!"

// Service 处理器依赖的媒体服务
type Service interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*models.MediaFile, error)
	Open(ctx context.Context, id string) (*models.MediaFile, io.ReadCloser, error)
	Preview(ctx context.Context, id string, width, height int) ([]byte, error)
}

// Handler 媒体文件处理器
type Handler struct {
	service        Service
	maxUploadBytes int64
}

// NewHandler 创建处理器，maxUploadBytes <= 0 表示不限制
func NewHandler(service Service, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadResponse 上传成功响应
type UploadResponse struct {
	Message string `json:"message" example:"File uploaded successfully"`
	FileID  string `json:"file_id" example:"3f1c5c2e-8a44-4d59-9a3c-6e0b1f0a7d21"`
}

// Info 欢迎信息
// @Summary      API info
// @Tags         media
// @Produce      json
// @Success      200  {object}  common.MessageResponse
// @Router       / [get]
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, common.MessageResponse{Message: WelcomeMessage})
}

// respondServiceError 服务层错误到 HTTP 状态码的统一映射
func respondServiceError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, mediasvc.ErrUnsupportedFileType):
		common.RespondError(c, http.StatusBadRequest, "Unsupported file type")
	case errors.Is(err, mediasvc.ErrNotFound):
		common.RespondError(c, http.StatusNotFound, "File not found")
	case errors.Is(err, preview.ErrInvalidDimensions):
		common.RespondError(c, http.StatusBadRequest, "Width and height must be positive integers within the allowed range")
	case errors.Is(err, preview.ErrUnsupportedType):
		common.RespondError(c, http.StatusBadRequest, "Unsupported file type for preview")
	case errors.Is(err, preview.ErrSourceTooLarge):
		common.RespondError(c, http.StatusUnprocessableEntity, "Source image is too large to preview")
	case errors.Is(err, preview.ErrDecode):
		common.RespondError(c, http.StatusInternalServerError, "Failed to decode media")
	case errors.Is(err, mediasvc.ErrBlobMissing):
		log.Printf("[Media] %v", err)
		common.RespondError(c, http.StatusInternalServerError, "File data missing")
	case errors.As(err, &tooLarge) || isBodyTooLarge(err):
		common.RespondError(c, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, context.Canceled):
		// 客户端已断开
		c.Abort()
	default:
		log.Printf("[Media] Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		common.RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func isBodyTooLarge(err error) bool {
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

// Register 注册媒体路由，previewLimit 挂在预览路由上（解码开销最大）
func (h *Handler) Register(r gin.IRoutes, previewLimit ...gin.HandlerFunc) {
	r.GET("/", h.Info)
	r.PUT("/upload/", h.Upload)
	r.PUT("/upload", h.Upload)
	r.GET("/download/:file_id", h.Download)
	preview := make([]gin.HandlerFunc, 0, len(previewLimit)+1)
	preview = append(preview, previewLimit...)
	r.GET("/preview/:file_id", append(preview, h.Preview)...)
}
