package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anoixa/media-server/api/core"
	"github.com/anoixa/media-server/config"
	"github.com/anoixa/media-server/internal/di"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()

	if err := os.MkdirAll(cfg.StorageTempDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	// 数据库表结构在注册路由前完成
	container := di.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// 启动时清理残留临时文件
	go func() {
		if n, err := cleanOldTempFiles(cfg.StorageTempDir, 24*time.Hour, false); err != nil {
			log.Printf("Failed to clean temp directory: %v", err)
		} else if n > 0 {
			log.Printf("Removed %d stale temp files", n)
		}
	}()

	deps := &core.ServerDependencies{
		Config:  cfg,
		DB:      container.GetDB(),
		Cache:   container.GetCache(),
		Storage: container.GetStorage(),
		Media:   container.GetMediaService(),
		Pool:    container.GetWorkerPool(),
	}

	// 启动gin
	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if cleanup != nil {
		cleanup()
	}

	// 关闭 DI 容器（协程池、缓存、数据库）
	if err := container.Close(); err != nil {
		log.Printf("Error closing container: %v", err)
	}

	log.Println("Server exited successfully")
}

// cleanOldTempFiles 清理超过 maxAge 的临时文件
func cleanOldTempFiles(tempDir string, maxAge time.Duration, dryRun bool) (int, error) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(tempDir, entry.Name())
		if dryRun {
			log.Printf("[DRY-RUN] Would delete temp file: %s", path)
			removed++
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to remove old temp file %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
