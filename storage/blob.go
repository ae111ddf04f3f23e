package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// BlobStore 按 {upload-dir}/{id}.{ext} 约定存取上传文件
type BlobStore struct {
	provider  Provider
	uploadDir string
}

// NewBlobStore 创建 BlobStore
func NewBlobStore(provider Provider, uploadDir string) *BlobStore {
	uploadDir = strings.Trim(uploadDir, "/")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &BlobStore{provider: provider, uploadDir: uploadDir}
}

// Provider 返回底层存储
func (b *BlobStore) Provider() Provider {
	return b.provider
}

// UploadDir 返回上传目录
func (b *BlobStore) UploadDir() string {
	return b.uploadDir
}

// PathFor 计算文件的存储路径
func (b *BlobStore) PathFor(id, ext string) string {
	return path.Join(b.uploadDir, id+"."+strings.ToLower(ext))
}

// countingReader 统计已读取字节数
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Store 将 r 完整写入存储，返回存储路径与字节数
func (b *BlobStore) Store(ctx context.Context, id, ext string, r io.Reader) (string, int64, error) {
	storagePath := b.PathFor(id, ext)
	cr := &countingReader{r: r}

	if err := b.provider.SaveWithContext(ctx, storagePath, cr); err != nil {
		return "", 0, err
	}
	return storagePath, cr.n, nil
}

// Open 打开存储对象
func (b *BlobStore) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	return b.provider.GetWithContext(ctx, storagePath)
}

// Read 读取存储对象全部内容
func (b *BlobStore) Read(ctx context.Context, storagePath string) ([]byte, error) {
	rc, err := b.provider.GetWithContext(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrIO, storagePath, err)
	}
	return data, nil
}

// Write 以字节写入任意存储路径
func (b *BlobStore) Write(ctx context.Context, storagePath string, data []byte) error {
	return b.provider.SaveWithContext(ctx, storagePath, bytes.NewReader(data))
}

// Exists 检查对象是否存在
func (b *BlobStore) Exists(ctx context.Context, storagePath string) (bool, error) {
	return b.provider.Exists(ctx, storagePath)
}

// Remove 删除对象，对象不存在视为成功
func (b *BlobStore) Remove(ctx context.Context, storagePath string) error {
	err := b.provider.DeleteWithContext(ctx, storagePath)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// LocalPath 后端为本地磁盘时返回绝对路径
func (b *BlobStore) LocalPath(storagePath string) (string, bool) {
	lp, ok := b.provider.(LocalPather)
	if !ok {
		return "", false
	}
	p, err := lp.LocalPath(storagePath)
	if err != nil {
		return "", false
	}
	return p, true
}

// List 列出前缀下的对象，后端不支持时返回错误
func (b *BlobStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	lister, ok := b.provider.(Lister)
	if !ok {
		return nil, fmt.Errorf("storage provider %s does not support listing", b.provider.Name())
	}
	return lister.List(ctx, prefix)
}
