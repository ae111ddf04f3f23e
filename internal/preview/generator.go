package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"

	"github.com/anoixa/media-server/database/models"
	"github.com/anoixa/media-server/storage"
	"github.com/anoixa/media-server/utils"
	"github.com/anoixa/media-server/utils/pool"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrDecode 源数据无法解码，或视频无法抓取首帧
	ErrDecode = errors.New("failed to decode media")
	// ErrUnsupportedType 不支持预览的文件类型
	ErrUnsupportedType = errors.New("unsupported file type for preview")
	// ErrInvalidDimensions 宽高非法
	ErrInvalidDimensions = errors.New("invalid preview dimensions")
	// ErrSourceTooLarge 源图像素数超过上限
	ErrSourceTooLarge = errors.New("source image too large")
)

// DefaultMaxSourcePixels 源图默认像素上限（约 1 亿像素）
const DefaultMaxSourcePixels = 100_000_000

// Options 预览生成器配置
type Options struct {
	PreviewDir   string
	TempDir      string
	MaxDimension int
	// MaxSourcePixels 解码前按图片头校验源图宽 x 高，<= 0 时使用 DefaultMaxSourcePixels
	MaxSourcePixels int64
}

// Generator 按需生成并缓存 PNG 预览图
type Generator struct {
	blobs     *storage.BlobStore
	resizer   Resizer
	extractor FrameExtractor
	opts      Options
	group     singleflight.Group
}

// NewGenerator 创建预览生成器
func NewGenerator(blobs *storage.BlobStore, resizer Resizer, extractor FrameExtractor, opts Options) *Generator {
	opts.PreviewDir = strings.Trim(opts.PreviewDir, "/")
	if opts.PreviewDir == "" {
		opts.PreviewDir = "previews"
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if resizer == nil {
		resizer = DrawResizer{}
	}
	if opts.MaxSourcePixels <= 0 {
		opts.MaxSourcePixels = DefaultMaxSourcePixels
	}
	return &Generator{
		blobs:     blobs,
		resizer:   resizer,
		extractor: extractor,
		opts:      opts,
	}
}

// CachePath 预览缓存路径 {preview-dir}/{id}_{w}x{h}.png
func (g *Generator) CachePath(id string, width, height int) string {
	return path.Join(g.opts.PreviewDir, fmt.Sprintf("%s_%dx%d.png", id, width, height))
}

// ValidateDimensions 校验宽高
func (g *Generator) ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width and height must be positive", ErrInvalidDimensions)
	}
	if g.opts.MaxDimension > 0 && (width > g.opts.MaxDimension || height > g.opts.MaxDimension) {
		return fmt.Errorf("%w: width and height must not exceed %d", ErrInvalidDimensions, g.opts.MaxDimension)
	}
	return nil
}

// GetOrCreate 返回 width x height 的 PNG 预览，命中缓存时直接返回已存储的字节
func (g *Generator) GetOrCreate(ctx context.Context, file *models.MediaFile, width, height int) ([]byte, error) {
	if err := g.ValidateDimensions(width, height); err != nil {
		return nil, err
	}
	if !file.FileType.IsImage() && !file.FileType.IsVideo() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, file.FileType)
	}

	cachePath := g.CachePath(file.ID, width, height)
	if data, ok, err := g.lookup(ctx, cachePath); err != nil || ok {
		return data, err
	}

	// 同一尺寸的并发请求只生成一次，生成过程不受单个请求取消影响
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := g.group.Do(cachePath, func() (interface{}, error) {
		if data, ok, err := g.lookup(flightCtx, cachePath); err != nil || ok {
			return data, err
		}
		return g.generate(flightCtx, file, width, height, cachePath)
	})
	if shared {
		utils.LogIfDevf("[Preview] Shared generation result for %s", cachePath)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// lookup 读取缓存，不存在时 ok 为 false
func (g *Generator) lookup(ctx context.Context, cachePath string) ([]byte, bool, error) {
	data, err := g.blobs.Read(ctx, cachePath)
	if err == nil {
		return data, true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("failed to read preview cache %s: %w", cachePath, err)
}

func (g *Generator) generate(ctx context.Context, file *models.MediaFile, width, height int, cachePath string) ([]byte, error) {
	var (
		src []byte
		err error
	)

	switch {
	case file.FileType.IsImage():
		src, err = g.blobs.Read(ctx, file.FilePath)
	case file.FileType.IsVideo():
		src, err = g.firstFrame(ctx, file)
	}
	if err != nil {
		return nil, err
	}

	if err := checkSource(src, g.opts.MaxSourcePixels); err != nil {
		return nil, err
	}

	out, err := g.resizer.ResizePNG(src, width, height)
	if err != nil {
		return nil, err
	}

	if err := g.blobs.Write(ctx, cachePath, out); err != nil {
		return nil, fmt.Errorf("failed to store preview %s: %w", cachePath, err)
	}

	utils.LogIfDevf("[Preview] Generated %s with %s resizer (%d bytes)", cachePath, g.resizer.Name(), len(out))
	return out, nil
}

// firstFrame 获取视频本地路径后抓取首帧，非本地存储先落地到临时目录
func (g *Generator) firstFrame(ctx context.Context, file *models.MediaFile) ([]byte, error) {
	if g.extractor == nil {
		return nil, fmt.Errorf("%w: no frame extractor configured", ErrDecode)
	}

	if localPath, ok := g.blobs.LocalPath(file.FilePath); ok {
		if _, err := os.Stat(localPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, file.FilePath)
			}
			return nil, fmt.Errorf("%w: %v", storage.ErrIO, err)
		}
		return g.extractor.FirstFrame(ctx, localPath)
	}

	spooled, err := g.spool(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(spooled); err != nil && !os.IsNotExist(err) {
			log.Printf("[Preview] Failed to remove spooled file %s: %v", spooled, err)
		}
	}()

	return g.extractor.FirstFrame(ctx, spooled)
}

// spool 将远程对象复制到临时目录
func (g *Generator) spool(ctx context.Context, file *models.MediaFile) (string, error) {
	rc, err := g.blobs.Open(ctx, file.FilePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(g.opts.TempDir, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create temp dir: %v", storage.ErrIO, err)
	}

	tmp, err := os.CreateTemp(g.opts.TempDir, "preview-*"+path.Ext(file.FilePath))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", storage.ErrIO, err)
	}

	bufPtr := pool.SharedBufferPool.Get().(*[]byte)
	defer pool.SharedBufferPool.Put(bufPtr)

	_, copyErr := io.CopyBuffer(tmp, rc, *bufPtr)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: failed to spool %s: %v", storage.ErrIO, file.FilePath, errors.Join(copyErr, closeErr))
	}
	return tmp.Name(), nil
}
