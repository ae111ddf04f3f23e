package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost          string        `mapstructure:"server_host"`
	ServerPort          int           `mapstructure:"server_port"`
	ServerReadTimeout   time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout  time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout   time.Duration `mapstructure:"server_idle_timeout"`
	ServerCorsOrigins   string        `mapstructure:"server_cors_origins"`
	ServerMaxConcurrent int64         `mapstructure:"server_max_concurrent"`
	ServerEnableSwagger bool          `mapstructure:"server_enable_swagger"`

	// 数据库配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 存储配置
	StorageType       string `mapstructure:"storage_type"`
	StorageLocalPath  string `mapstructure:"storage_local_path"`
	StorageUploadDir  string `mapstructure:"storage_upload_dir"`
	StoragePreviewDir string `mapstructure:"storage_preview_dir"`
	StorageTempDir    string `mapstructure:"storage_temp_dir"`

	// MinIO
	MinioEndpoint        string `mapstructure:"minio_endpoint"`
	MinioAccessKeyID     string `mapstructure:"minio_access_key_id"`
	MinioSecretAccessKey string `mapstructure:"minio_secret_access_key"`
	MinioBucketName      string `mapstructure:"minio_bucket_name"`
	MinioUseSSL          bool   `mapstructure:"minio_use_ssl"`

	// WebDAV
	WebDAVURL      string        `mapstructure:"webdav_url"`
	WebDAVUsername string        `mapstructure:"webdav_username"`
	WebDAVPassword string        `mapstructure:"webdav_password"`
	WebDAVRootPath string        `mapstructure:"webdav_root_path"`
	WebDAVTimeout  time.Duration `mapstructure:"webdav_timeout"`

	// 缓存提供者配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheRecordTTL     time.Duration `mapstructure:"cache_record_ttl"`
	CacheMemoryMaxCost int64         `mapstructure:"cache_memory_max_cost"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`

	// 限流配置
	RateLimitRPS        float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst      int           `mapstructure:"rate_limit_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`

	// 上传配置
	UploadMaxSizeMB int `mapstructure:"upload_max_size_mb"`

	// 预览配置
	PreviewResizer      string `mapstructure:"preview_resizer"`
	PreviewMaxDimension int    `mapstructure:"preview_max_dimension"`
	PreviewPrewarmSizes string `mapstructure:"preview_prewarm_sizes"`
	FFmpegPath          string `mapstructure:"ffmpeg_path"`

	// 源图像素上限，解码前校验
	PreviewMaxSourcePixels int64 `mapstructure:"preview_max_source_pixels"`

	// 同时生成预览的请求数，0 = CPU 线程数
	PreviewMaxConcurrent int           `mapstructure:"preview_max_concurrent"`
	PreviewQueueTimeout  time.Duration `mapstructure:"preview_queue_timeout"`

	// Worker 配置
	WorkerCount     int `mapstructure:"worker_count"`
	WorkerQueueSize int `mapstructure:"worker_queue_size"`
}

// InitConfig Initialize configuration
func InitConfig() {
	once.Do(func() {
		cfg, err := Load(viper.GetString("config_file_path"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: Unable to unmarshal config, %v\n", err)
			os.Exit(1)
		}
		globalConfig = *cfg
	})
}

func Get() *Config {
	return &globalConfig
}

// Load 读取 env 文件与环境变量，envFile 为空时使用 .env
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if envFile == "" {
		envFile = ".env"
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Info: .env file not found, using defaults and environment variables")
	} else {
		fmt.Fprintf(os.Stderr, "Info: Loaded configuration from %s\n", envFile)
	}

	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// WorkerCount: -1 = 使用 CPU 线程数, 0 = 使用默认值 (max(2, CPU核心数)), >0 = 使用指定值
	switch {
	case cfg.WorkerCount < 0:
		cfg.WorkerCount = runtime.GOMAXPROCS(0)
	case cfg.WorkerCount == 0:
		cfg.WorkerCount = getCpus()
	}

	if cfg.PreviewMaxConcurrent <= 0 {
		cfg.PreviewMaxConcurrent = runtime.GOMAXPROCS(0)
	}

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// 服务器配置默认值
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8000)
	v.SetDefault("server_read_timeout", "15s")
	v.SetDefault("server_write_timeout", "60s")
	v.SetDefault("server_idle_timeout", "120s")
	v.SetDefault("server_cors_origins", "*")
	v.SetDefault("server_max_concurrent", 100)
	v.SetDefault("server_enable_swagger", true)

	// 数据库配置默认值
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_username", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "media")
	v.SetDefault("db_file_path", "./data/database.db")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", 3600)

	// 存储配置默认值
	v.SetDefault("storage_type", "local")
	v.SetDefault("storage_local_path", "./data")
	v.SetDefault("storage_upload_dir", "uploads")
	v.SetDefault("storage_preview_dir", "previews")
	v.SetDefault("storage_temp_dir", "./data/temp")

	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key_id", "")
	v.SetDefault("minio_secret_access_key", "")
	v.SetDefault("minio_bucket_name", "media")
	v.SetDefault("minio_use_ssl", false)

	v.SetDefault("webdav_url", "")
	v.SetDefault("webdav_username", "")
	v.SetDefault("webdav_password", "")
	v.SetDefault("webdav_root_path", "/media")
	v.SetDefault("webdav_timeout", "30s")

	// 缓存提供者配置默认值
	v.SetDefault("cache_type", "memory")
	v.SetDefault("cache_record_ttl", "1h")
	v.SetDefault("cache_memory_max_cost", 64<<20)
	v.SetDefault("cache_redis_addr", "localhost:6379")
	v.SetDefault("cache_redis_password", "")
	v.SetDefault("cache_redis_db", 0)

	// 限流配置默认值
	v.SetDefault("rate_limit_rps", 50.0)
	v.SetDefault("rate_limit_burst", 100)
	v.SetDefault("rate_limit_expire_time", "10m")

	// 上传配置默认值
	v.SetDefault("upload_max_size_mb", 100)

	// 预览配置默认值
	v.SetDefault("preview_resizer", "draw")
	v.SetDefault("preview_max_dimension", 4096)
	v.SetDefault("preview_prewarm_sizes", "")
	v.SetDefault("preview_max_concurrent", 0)
	v.SetDefault("preview_queue_timeout", "10s")
	v.SetDefault("preview_max_source_pixels", 100_000_000)
	v.SetDefault("ffmpeg_path", "ffmpeg")

	// Worker 配置默认值
	v.SetDefault("worker_count", 0) // 0 表示使用默认值
	v.SetDefault("worker_queue_size", 1000)
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8000
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// CorsOrigins 解析逗号分隔的跨域来源
func (c *Config) CorsOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.ServerCorsOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// UploadMaxBytes 单文件上传上限
func (c *Config) UploadMaxBytes() int64 {
	if c.UploadMaxSizeMB <= 0 {
		return 100 << 20
	}
	return int64(c.UploadMaxSizeMB) << 20
}

// Dimension 预览尺寸
type Dimension struct {
	Width  int
	Height int
}

// PrewarmSizes 解析 "128x128,320x240" 形式的预热尺寸
func (c *Config) PrewarmSizes() ([]Dimension, error) {
	var sizes []Dimension
	for _, part := range strings.Split(c.PreviewPrewarmSizes, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		w, h, ok := strings.Cut(strings.ToLower(part), "x")
		if !ok {
			return nil, fmt.Errorf("invalid preview size %q, expected WIDTHxHEIGHT", part)
		}
		width, err := strconv.Atoi(w)
		if err != nil || width <= 0 {
			return nil, fmt.Errorf("invalid preview width in %q", part)
		}
		height, err := strconv.Atoi(h)
		if err != nil || height <= 0 {
			return nil, fmt.Errorf("invalid preview height in %q", part)
		}
		sizes = append(sizes, Dimension{Width: width, Height: height})
	}
	return sizes, nil
}

// getCpus 获取默认线程数量
func getCpus() int {
	n := runtime.GOMAXPROCS(0)
	if n < 2 {
		return 2
	}
	return n
}
