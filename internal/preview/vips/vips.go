// Package vips 提供基于 libvips 的缩放实现
package vips

import (
	"fmt"
	"log"
	"sync"

	"github.com/anoixa/media-server/internal/preview"
	govips "github.com/davidbyttow/govips/v2/vips"
)

var startOnce sync.Once

// Startup 初始化 libvips，重复调用无副作用
func Startup() {
	startOnce.Do(func() {
		govips.LoggingSettings(func(domain string, level govips.LogLevel, msg string) {
			if level <= govips.LogLevelWarning {
				log.Printf("[vips] %s: %s", domain, msg)
			}
		}, govips.LogLevelWarning)
		govips.Startup(&govips.Config{
			ConcurrencyLevel: 1,
			MaxCacheFiles:    0,
			MaxCacheMem:      50 * 1024 * 1024,
			MaxCacheSize:     100,
		})
	})
}

// Shutdown 释放 libvips
func Shutdown() {
	govips.Shutdown()
}

// Resizer 使用 libvips 缩略图管线强制缩放到目标尺寸
type Resizer struct{}

// NewResizer 创建 Resizer 并确保 libvips 已初始化
func NewResizer() *Resizer {
	Startup()
	return &Resizer{}
}

func (r *Resizer) ResizePNG(src []byte, width, height int) ([]byte, error) {
	img, err := govips.NewThumbnailWithSizeFromBuffer(src, width, height, govips.InterestingNone, govips.SizeForce)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", preview.ErrDecode, err)
	}
	defer img.Close()

	out, _, err := img.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("export png: %w", err)
	}
	return out, nil
}

func (r *Resizer) Name() string { return "vips" }
