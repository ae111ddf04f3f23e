package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anoixa/media-server/cache"
	"github.com/anoixa/media-server/cache/memory"
	"github.com/anoixa/media-server/config"
	"github.com/anoixa/media-server/database"
	"github.com/anoixa/media-server/database/models"
	mediarepo "github.com/anoixa/media-server/database/repo/media"
	"github.com/anoixa/media-server/internal/preview"
	"github.com/anoixa/media-server/internal/worker"
	"github.com/anoixa/media-server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	svc   *Service
	repo  *mediarepo.Repository
	blobs *storage.BlobStore
	cache cache.Provider
	base  string
}

type envOptions struct {
	skipMigrate bool
	pool        *worker.WorkerPool
	prewarm     []config.Dimension
	extractor   preview.FrameExtractor
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	base := t.TempDir()

	db, err := gorm.Open(sqlite.Open(filepath.Join(base, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	if !opts.skipMigrate {
		require.NoError(t, database.AutoMigrate(db))
	}
	t.Cleanup(func() { _ = database.Close(db) })

	provider, err := storage.NewLocalStorage(filepath.Join(base, "data"))
	require.NoError(t, err)
	blobs := storage.NewBlobStore(provider, "uploads")

	mem, err := memory.NewMemory(memory.Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	gen := preview.NewGenerator(blobs, preview.DrawResizer{}, opts.extractor, preview.Options{
		PreviewDir:   "previews",
		TempDir:      filepath.Join(base, "temp"),
		MaxDimension: 1024,
	})

	repo := mediarepo.NewRepository(db)
	svc := NewService(repo, blobs, mem, gen, opts.pool, Options{
		RecordTTL:    time.Minute,
		PrewarmSizes: opts.prewarm,
	})
	return &testEnv{svc: svc, repo: repo, blobs: blobs, cache: mem, base: base}
}

func (e *testEnv) uploads(t *testing.T) []storage.ObjectInfo {
	t.Helper()
	objs, err := e.blobs.List(context.Background(), "uploads")
	require.NoError(t, err)
	return objs
}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestUpload_RoundTrip 上传后下载得到相同内容
func TestUpload_RoundTrip(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.mp4", "e.AVI"} {
		t.Run(name, func(t *testing.T) {
			content := []byte("payload of " + name)
			record, err := env.svc.Upload(ctx, name, bytes.NewReader(content))
			require.NoError(t, err)
			assert.Len(t, record.ID, 36)
			assert.Equal(t, int64(len(content)), record.FileSize)
			assert.Equal(t, time.UTC, record.CreatedAt.Location())

			got, rc, err := env.svc.Open(ctx, record.ID)
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, content, data)
			assert.Equal(t, record.FilePath, got.FilePath)
		})
	}
}

// TestUpload_FileType 扩展名决定文件类型
func TestUpload_FileType(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	img, err := env.svc.Upload(ctx, "photo.PNG", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, models.FileTypeImage, img.FileType)
	assert.Equal(t, "uploads/"+img.ID+".png", img.FilePath)

	vid, err := env.svc.Upload(ctx, "clip.mp4", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, models.FileTypeVideo, vid.FileType)
}

// TestUpload_UnsupportedType 不支持的扩展名不写入任何数据
func TestUpload_UnsupportedType(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	for _, name := range []string{"notes.txt", "noext", "archive.png.zip", ""} {
		_, err := env.svc.Upload(ctx, name, bytes.NewReader([]byte("data")))
		assert.ErrorIs(t, err, ErrUnsupportedFileType, name)
	}

	assert.Empty(t, env.uploads(t))
	count, err := env.repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// TestUpload_CompensatingDelete 记录提交失败时删除已写入的数据
func TestUpload_CompensatingDelete(t *testing.T) {
	env := newTestEnv(t, envOptions{skipMigrate: true})

	_, err := env.svc.Upload(context.Background(), "a.png", bytes.NewReader([]byte("data")))
	require.Error(t, err)
	assert.Empty(t, env.uploads(t))
}

// cancelOnEOF 读到末尾时取消请求
type cancelOnEOF struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelOnEOF) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err == io.EOF {
		c.cancel()
	}
	return n, err
}

// TestUpload_CancelledAfterWrite 写入完成后请求被取消，不留下数据和记录
func TestUpload_CancelledAfterWrite(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := env.svc.Upload(ctx, "a.png", &cancelOnEOF{r: bytes.NewReader([]byte("data")), cancel: cancel})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, env.uploads(t))
	count, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

// TestGet_NotFound 未知或非法 id 返回 ErrNotFound
func TestGet_NotFound(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	_, err := env.svc.Get(ctx, "3f1c5c2e-8a44-4d59-9a3c-6e0b1f0a7d21")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Get(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = env.svc.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Preview(ctx, "3f1c5c2e-8a44-4d59-9a3c-6e0b1f0a7d21", 10, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestGet_CachesRecord 读取后记录进入缓存
func TestGet_CachesRecord(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	record, err := env.svc.Upload(ctx, "a.png", bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	require.NoError(t, env.svc.InvalidateRecord(ctx, record.ID))

	got, err := env.svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.FilePath, got.FilePath)

	var cached models.MediaFile
	require.NoError(t, env.cache.Get(ctx, cache.MediaFileKey(record.ID), &cached))
	assert.Equal(t, record.ID, cached.ID)
	assert.Equal(t, record.FileType, cached.FileType)
}

// TestOpen_BlobMissing 数据被外部删除
func TestOpen_BlobMissing(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	record, err := env.svc.Upload(ctx, "a.png", bytes.NewReader(samplePNG(t, 10, 10)))
	require.NoError(t, err)
	require.NoError(t, env.blobs.Remove(ctx, record.FilePath))

	_, _, err = env.svc.Open(ctx, record.ID)
	assert.ErrorIs(t, err, ErrBlobMissing)

	_, err = env.svc.Preview(ctx, record.ID, 5, 5)
	assert.ErrorIs(t, err, ErrBlobMissing)
}

// TestPreview_Scenario 100x100 上传后请求 50x50 预览，第二次命中缓存
func TestPreview_Scenario(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	record, err := env.svc.Upload(ctx, "square.png", bytes.NewReader(samplePNG(t, 100, 100)))
	require.NoError(t, err)

	first, err := env.svc.Preview(ctx, record.ID, 50, 50)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(first))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 50, cfg.Height)

	cachePath := filepath.Join(env.base, "data", "previews", record.ID+"_50x50.png")
	_, err = os.Stat(cachePath)
	require.NoError(t, err)

	second, err := env.svc.Preview(ctx, record.ID, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestPreview_Errors 预览错误类型
func TestPreview_Errors(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	ctx := context.Background()

	record, err := env.svc.Upload(ctx, "broken.png", bytes.NewReader([]byte("not an image")))
	require.NoError(t, err)

	_, err = env.svc.Preview(ctx, record.ID, 10, 10)
	assert.ErrorIs(t, err, preview.ErrDecode)

	_, err = env.svc.Preview(ctx, record.ID, 0, 10)
	assert.ErrorIs(t, err, preview.ErrInvalidDimensions)
}

// TestUpload_Prewarm 上传后在协程池中生成预览
func TestUpload_Prewarm(t *testing.T) {
	pool := worker.NewWorkerPool(1, 10)
	pool.Start()
	defer pool.Stop()

	env := newTestEnv(t, envOptions{
		pool:    pool,
		prewarm: []config.Dimension{{Width: 16, Height: 16}, {Width: 32, Height: 24}},
	})

	record, err := env.svc.Upload(context.Background(), "a.png", bytes.NewReader(samplePNG(t, 64, 64)))
	require.NoError(t, err)

	for _, name := range []string{record.ID + "_16x16.png", record.ID + "_32x24.png"} {
		p := filepath.Join(env.base, "data", "previews", name)
		assert.Eventually(t, func() bool {
			_, err := os.Stat(p)
			return err == nil
		}, 5*time.Second, 20*time.Millisecond, name)
	}
}
