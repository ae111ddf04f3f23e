package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
	Timeout  time.Duration
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	s := &WebDAVStorage{
		client:   client,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		rootPath: normalizeRootPath(cfg.RootPath),
	}

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.ensureDir(ctx, s.rootPath); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}
	// rootPath 为空时 ensureDir 不发请求，始终列一次根目录
	if err := s.Health(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	return s, nil
}

func normalizeRootPath(rootPath string) string {
	rootPath = strings.Trim(rootPath, "/")
	if rootPath == "" {
		return ""
	}
	return "/" + rootPath
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(storagePath string) string {
	storagePath = strings.TrimLeft(storagePath, "/")
	if s.rootPath != "" {
		return s.rootPath + "/" + storagePath
	}
	return "/" + storagePath
}

// run 在独立 goroutine 中执行阻塞的 WebDAV 调用，ctx 取消时立即返回
func run[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-done:
		return res.val, res.err
	}
}

// ensureDir 逐级创建目录
func (s *WebDAVStorage) ensureDir(ctx context.Context, dir string) error {
	if dir == "" || dir == "/" || dir == "." {
		return nil
	}

	currentPath := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		currentPath = currentPath + "/" + part

		p := currentPath
		_, err := run(ctx, func() (struct{}, error) {
			return struct{}{}, s.client.Mkdir(p, os.FileMode(0755))
		})
		if err != nil && !isCollectionExistsError(err) {
			return fmt.Errorf("failed to create directory %s: %w", currentPath, err)
		}
	}
	return nil
}

// isCollectionExistsError 判断是否为目录已存在的错误
func isCollectionExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, s := range []string{"already exists", "Conflict", "conflict", "405", "409", "Method Not Allowed"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// isNotFound 判断 WebDAV 404
func isNotFound(err error) bool {
	return gowebdav.IsErrNotFound(err)
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error {
	if !IsValidStoragePath(storagePath) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, storagePath)
	}

	fullPath := s.fullPath(storagePath)
	if err := s.ensureDir(ctx, path.Dir(fullPath)); err != nil {
		return fmt.Errorf("%w: failed to ensure parent directory for %s: %v", ErrIO, storagePath, err)
	}

	_, err := run(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.WriteStream(fullPath, file, 0644)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: failed to write file %s: %v", ErrIO, storagePath, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件流
func (s *WebDAVStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	fullPath := s.fullPath(storagePath)

	rc, err := run(ctx, func() (io.ReadCloser, error) {
		return s.client.ReadStream(fullPath)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("%w: failed to read file %s: %v", ErrIO, storagePath, err)
	}
	return rc, nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	fullPath := s.fullPath(storagePath)

	_, err := run(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Remove(fullPath)
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return fmt.Errorf("%w: failed to delete %s: %v", ErrIO, storagePath, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	fullPath := s.fullPath(storagePath)

	info, err := run(ctx, func() (os.FileInfo, error) {
		return s.client.Stat(fullPath)
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// List 列出前缀目录下的文件
func (s *WebDAVStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	prefix = strings.Trim(prefix, "/")
	dir := s.fullPath(prefix)

	infos, err := run(ctx, func() ([]os.FileInfo, error) {
		return s.client.ReadDir(dir)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to list %s: %v", ErrIO, prefix, err)
	}

	objects := make([]ObjectInfo, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		objects = append(objects, ObjectInfo{Path: prefix + "/" + info.Name(), Size: info.Size()})
	}
	return objects, nil
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	// 如果 client 为 nil（测试场景），直接返回
	if s.client == nil {
		return nil
	}

	_, err := run(ctx, func() ([]os.FileInfo, error) {
		return s.client.ReadDir(s.rootPath + "/")
	})
	return err
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	if s.baseURL == "" {
		return "webdav"
	}
	return fmt.Sprintf("webdav:%s%s", s.baseURL, s.rootPath)
}
