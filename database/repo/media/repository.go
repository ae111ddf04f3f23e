package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/media-server/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("media file not found")
	// ErrDuplicateKey ID 已存在
	ErrDuplicateKey = errors.New("media file already exists")
)

// Repository 媒体文件元数据仓库，只支持新增与查询
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的媒体文件仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 插入一条记录，ID 冲突时返回 ErrDuplicateKey
func (r *Repository) Create(ctx context.Context, file *models.MediaFile) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(file)
	if result.Error != nil {
		return fmt.Errorf("failed to insert media file %s: %w", file.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateKey
	}
	return nil
}

// GetByID 根据 ID 查询记录
func (r *Repository) GetByID(ctx context.Context, id string) (*models.MediaFile, error) {
	var file models.MediaFile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query media file %s: %w", id, err)
	}
	return &file, nil
}

// Count 统计记录数
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MediaFile{}).Count(&count).Error
	return count, err
}

// ListFilePaths 返回所有记录引用的存储路径
func (r *Repository) ListFilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Model(&models.MediaFile{}).Pluck("file_path", &paths).Error
	return paths, err
}

// FindInBatches 按主键分批遍历记录，fn 返回错误时终止
func (r *Repository) FindInBatches(ctx context.Context, batchSize int, fn func(batch []models.MediaFile) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	var batch []models.MediaFile
	result := r.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return result.Error
}
