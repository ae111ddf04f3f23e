package di

import (
	"fmt"
	"log"
	"strings"

	"github.com/anoixa/media-server/cache"
	"github.com/anoixa/media-server/config"
	"github.com/anoixa/media-server/database"
	mediarepo "github.com/anoixa/media-server/database/repo/media"
	"github.com/anoixa/media-server/internal/media"
	"github.com/anoixa/media-server/internal/preview"
	"github.com/anoixa/media-server/internal/preview/vips"
	"github.com/anoixa/media-server/internal/worker"
	"github.com/anoixa/media-server/storage"
	"gorm.io/gorm"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config *config.Config

	db        *gorm.DB
	storage   storage.Provider
	blobs     *storage.BlobStore
	cache     cache.Provider
	repo      *mediarepo.Repository
	generator *preview.Generator
	pool      *worker.WorkerPool
	service   *media.Service

	vipsStarted bool
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 初始化所有服务
func (c *Container) Init() error {
	log.Println("Initializing DI container...")

	if err := c.InitDatabase(); err != nil {
		return err
	}

	if err := c.InitStorage(); err != nil {
		return err
	}

	if err := c.initCache(); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := c.initPreview(); err != nil {
		return fmt.Errorf("failed to initialize preview generator: %w", err)
	}

	c.initWorkerPool()

	if err := c.initService(); err != nil {
		return err
	}

	log.Println("DI container initialized successfully")
	return nil
}

// InitDatabase 打开数据库并确保表结构存在
func (c *Container) InitDatabase() error {
	if c.db != nil {
		return nil
	}

	db, err := database.NewDB(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	c.db = db
	c.repo = mediarepo.NewRepository(db)
	log.Printf("Database initialized, type: %s", c.config.DBType)
	return nil
}

// InitStorage 初始化存储
func (c *Container) InitStorage() error {
	if c.storage != nil {
		return nil
	}

	provider, err := storage.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.storage = provider
	c.blobs = storage.NewBlobStore(provider, c.config.StorageUploadDir)
	log.Printf("Storage initialized: %s", provider.Name())
	return nil
}

// initCache 初始化缓存
func (c *Container) initCache() error {
	provider, err := cache.NewProvider(c.config)
	if err != nil {
		return err
	}
	c.cache = provider
	log.Printf("Cache initialized: %s", provider.Name())
	return nil
}

// initPreview 初始化缩放实现、首帧提取与预览生成器
func (c *Container) initPreview() error {
	resizer, err := c.newResizer()
	if err != nil {
		return err
	}

	extractor := preview.NewFFmpegExtractor(c.config.FFmpegPath)
	if !extractor.Available() {
		log.Printf("[Warning] ffmpeg binary %q not found, video previews will fail", c.config.FFmpegPath)
	}

	c.generator = preview.NewGenerator(c.blobs, resizer, extractor, preview.Options{
		PreviewDir:   c.config.StoragePreviewDir,
		TempDir:      c.config.StorageTempDir,
		MaxDimension: c.config.PreviewMaxDimension,

		MaxSourcePixels: c.config.PreviewMaxSourcePixels,
	})
	log.Printf("Preview generator initialized, resizer: %s", resizer.Name())
	return nil
}

func (c *Container) newResizer() (preview.Resizer, error) {
	switch strings.ToLower(c.config.PreviewResizer) {
	case "", "draw":
		return preview.DrawResizer{}, nil
	case "imaging":
		return preview.ImagingResizer{}, nil
	case "vips":
		c.vipsStarted = true
		return vips.NewResizer(), nil
	default:
		return nil, fmt.Errorf("unsupported preview resizer: %s", c.config.PreviewResizer)
	}
}

// initWorkerPool 初始化预热协程池
func (c *Container) initWorkerPool() {
	c.pool = worker.NewWorkerPool(c.config.WorkerCount, c.config.WorkerQueueSize)
	c.pool.Start()
}

func (c *Container) initService() error {
	sizes, err := c.config.PrewarmSizes()
	if err != nil {
		return err
	}
	for _, size := range sizes {
		if err := c.generator.ValidateDimensions(size.Width, size.Height); err != nil {
			return fmt.Errorf("invalid prewarm size %dx%d: %w", size.Width, size.Height, err)
		}
	}

	c.service = media.NewService(c.repo, c.blobs, c.cache, c.generator, c.pool, media.Options{
		RecordTTL:    c.config.CacheRecordTTL,
		PrewarmSizes: sizes,
	})
	return nil
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetDB 获取数据库连接
func (c *Container) GetDB() *gorm.DB {
	return c.db
}

// GetRepository 获取媒体记录仓库
func (c *Container) GetRepository() *mediarepo.Repository {
	return c.repo
}

// GetStorage 获取存储提供者
func (c *Container) GetStorage() storage.Provider {
	return c.storage
}

// GetBlobStore 获取媒体数据存储
func (c *Container) GetBlobStore() *storage.BlobStore {
	return c.blobs
}

// GetCache 获取缓存提供者
func (c *Container) GetCache() cache.Provider {
	return c.cache
}

// GetWorkerPool 获取协程池
func (c *Container) GetWorkerPool() *worker.WorkerPool {
	return c.pool
}

// GetMediaService 获取媒体服务
func (c *Container) GetMediaService() *media.Service {
	return c.service
}

// Close 关闭所有服务
func (c *Container) Close() error {
	log.Println("Closing DI container...")

	if c.pool != nil {
		c.pool.Stop()
	}

	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}

	if c.db != nil {
		if err := database.Close(c.db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	if c.vipsStarted {
		vips.Shutdown()
	}

	log.Println("DI container closed")
	return nil
}
