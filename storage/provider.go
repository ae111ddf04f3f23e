package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound 对象不存在
	ErrNotFound = errors.New("storage: object not found")
	// ErrIO 读写失败
	ErrIO = errors.New("storage: io failure")
	// ErrInvalidPath 非法的存储路径
	ErrInvalidPath = errors.New("storage: invalid path")
)

// Provider 存储提供者接口 - 依赖倒置的核心抽象
// 缺失对象统一返回 ErrNotFound，写入失败统一包装 ErrIO
type Provider interface {
	// SaveWithContext 保存文件到存储，写入完成前对象不可见
	SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error

	// GetWithContext 从存储获取文件，调用方负责关闭
	GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// DeleteWithContext 从存储删除文件
	DeleteWithContext(ctx context.Context, storagePath string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, storagePath string) (bool, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// ObjectInfo 列举时返回的对象信息
type ObjectInfo struct {
	Path string
	Size int64
}

// Lister 可列举对象的存储
type Lister interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// LocalPather 可直接解析为本地文件路径的存储
type LocalPather interface {
	LocalPath(storagePath string) (string, error)
}
