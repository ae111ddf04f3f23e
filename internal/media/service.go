package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/anoixa/media-server/cache"
	"github.com/anoixa/media-server/config"
	"github.com/anoixa/media-server/database/models"
	mediarepo "github.com/anoixa/media-server/database/repo/media"
	"github.com/anoixa/media-server/internal/preview"
	"github.com/anoixa/media-server/internal/worker"
	"github.com/anoixa/media-server/storage"
	"github.com/anoixa/media-server/utils"
	"github.com/anoixa/media-server/utils/format"
	"github.com/google/uuid"
)

// Options 媒体服务配置
type Options struct {
	RecordTTL    time.Duration
	PrewarmSizes []config.Dimension
}

// Service 上传、读取与预览编排
type Service struct {
	repo     *mediarepo.Repository
	blobs    *storage.BlobStore
	cache    cache.Provider
	previews *preview.Generator
	pool     *worker.WorkerPool
	opts     Options
}

// NewService 创建媒体服务，pool 为 nil 时不做预热
func NewService(
	repo *mediarepo.Repository,
	blobs *storage.BlobStore,
	cacheProvider cache.Provider,
	previews *preview.Generator,
	pool *worker.WorkerPool,
	opts Options,
) *Service {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = time.Hour
	}
	return &Service{
		repo:     repo,
		blobs:    blobs,
		cache:    cacheProvider,
		previews: previews,
		pool:     pool,
		opts:     opts,
	}
}

// Upload 校验扩展名后写入数据，再提交记录；提交失败或请求取消时删除已写入的数据
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*models.MediaFile, error) {
	ext := utils.GetExtensionFromFilename(filename)
	fileType, ok := models.FileTypeFromExtension(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}

	id := uuid.NewString()
	filePath, size, err := s.blobs.Store(ctx, id, ext, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	record := &models.MediaFile{
		ID:        id,
		FilePath:  filePath,
		FileType:  fileType,
		FileSize:  size,
		CreatedAt: time.Now().UTC(),
	}

	if err := ctx.Err(); err != nil {
		s.discardBlob(ctx, filePath)
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.discardBlob(ctx, filePath)
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.cacheRecord(ctx, record)
	s.schedulePrewarm(record)

	utils.LogIfDevf("[Media] Uploaded %s as %s (%s, %s)", utils.SanitizeLogFilename(filename), filePath, fileType, format.Size(size))
	return record, nil
}

// discardBlob 补偿删除，不受请求取消影响
func (s *Service) discardBlob(ctx context.Context, filePath string) {
	if err := s.blobs.Remove(context.WithoutCancel(ctx), filePath); err != nil {
		log.Printf("[Media] Failed to remove orphaned blob %s: %v", filePath, err)
	}
}

// Get 读取记录，优先走缓存
func (s *Service) Get(ctx context.Context, id string) (*models.MediaFile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, utils.SanitizeLogMessage(id))
	}

	var cached models.MediaFile
	err := s.cache.Get(ctx, cache.MediaFileKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !cache.IsCacheMiss(err) {
		log.Printf("[Media] Cache lookup failed for %s: %v", id, err)
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mediarepo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	s.cacheRecord(ctx, record)
	return record, nil
}

func (s *Service) cacheRecord(ctx context.Context, record *models.MediaFile) {
	if err := s.cache.Set(ctx, cache.MediaFileKey(record.ID), record, s.opts.RecordTTL); err != nil {
		log.Printf("[Media] Failed to cache record %s: %v", record.ID, err)
	}
}

// Open 读取记录并打开数据流，调用方负责关闭
func (s *Service) Open(ctx context.Context, id string) (*models.MediaFile, io.ReadCloser, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, record.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrBlobMissing, record.FilePath)
		}
		return nil, nil, err
	}
	return record, rc, nil
}

// Preview 返回 width x height 的 PNG 预览
func (s *Service) Preview(ctx context.Context, id string, width, height int) ([]byte, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.previews.GetOrCreate(ctx, record, width, height)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBlobMissing, record.FilePath)
		}
		return nil, err
	}
	return data, nil
}

// InvalidateRecord 删除缓存中的记录
func (s *Service) InvalidateRecord(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, cache.MediaFileKey(id))
}
