package core

import (
	"net/http"
	"time"

	"github.com/anoixa/media-server/api/common"
	mediaHandler "github.com/anoixa/media-server/api/handler/media"
	"github.com/anoixa/media-server/api/middleware"
	"github.com/anoixa/media-server/config"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *ServerDependencies, previewLimiter *middleware.ConcurrencyLimiter) {
	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()
		checks := gin.H{
			"database": checkDatabaseHealth(ctx, deps.DB),
			"cache":    checkCacheHealth(ctx, deps.Cache),
			"storage":  checkStorageHealth(ctx, deps.Storage),
		}

		status, httpStatus := "ok", http.StatusOK
		for _, result := range checks {
			if result != "ok" {
				status, httpStatus = "degraded", http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(httpStatus, gin.H{
			"status":  status,
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks":  checks,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		common.RespondSuccess(c, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", func(c *gin.Context) {
		metrics := middleware.GetMetrics()
		metrics["preview_in_flight"] = previewLimiter.InFlight()
		metrics["preview_max_concurrent"] = previewLimiter.Max()
		if deps.Pool != nil {
			metrics["worker"] = deps.Pool.Stats()
		}
		c.JSON(http.StatusOK, metrics)
	})

	if deps.Config.ServerEnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// registerMediaRoutes 注册上传、下载与预览路由
func registerMediaRoutes(router *gin.Engine, deps *ServerDependencies, previewLimit gin.HandlerFunc) {
	handler := mediaHandler.NewHandler(deps.Media, deps.Config.UploadMaxBytes())
	handler.Register(router, previewLimit)
}
