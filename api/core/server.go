package core

import (
	"net/http"
	"time"

	"github.com/anoixa/media-server/api/middleware"
	"github.com/anoixa/media-server/cache"
	"github.com/anoixa/media-server/config"
	mediasvc "github.com/anoixa/media-server/internal/media"
	"github.com/anoixa/media-server/internal/worker"
	"github.com/anoixa/media-server/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var startTime = time.Now()

// multipartOverhead multipart 头部与边界的余量
const multipartOverhead = 1 << 20

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	Config  *config.Config
	DB      *gorm.DB
	Cache   cache.Provider
	Storage storage.Provider
	Media   *mediasvc.Service
	Pool    *worker.WorkerPool
}

// 启动gin
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsDevelopment() {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "PUT", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.CorsOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))

	_ = router.SetTrustedProxies(nil)

	router.MaxMultipartMemory = 32 << 20

	// 请求ID追踪
	router.Use(middleware.RequestID())

	// 基础监控指标
	router.Use(middleware.Metrics())

	// 并发限制
	maxConcurrent := cfg.ServerMaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}
	router.Use(middleware.NewConcurrencyLimiter(maxConcurrent).Reject())

	// 预览生成排队
	previewLimiter := middleware.NewConcurrencyLimiter(int64(cfg.PreviewMaxConcurrent))

	// 速率限制
	rateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimitExpireTime)
	router.Use(rateLimiter.Middleware())

	// 请求体大小限制
	router.Use(middleware.MaxBytesReader(cfg.UploadMaxBytes() + multipartOverhead))

	registerBasicRoutes(router, deps, previewLimiter)
	registerMediaRoutes(router, deps, previewLimiter.Wait(cfg.PreviewQueueTimeout))

	return router, rateLimiter.StopCleanup
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
