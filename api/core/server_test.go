package core

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/anoixa/media-server/cache/memory"
	"github.com/anoixa/media-server/config"
	"github.com/anoixa/media-server/database"
	mediarepo "github.com/anoixa/media-server/database/repo/media"
	mediasvc "github.com/anoixa/media-server/internal/media"
	"github.com/anoixa/media-server/internal/preview"
	"github.com/anoixa/media-server/internal/worker"
	"github.com/anoixa/media-server/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerHost:          "127.0.0.1",
		ServerPort:          8000,
		ServerReadTimeout:   5 * time.Second,
		ServerWriteTimeout:  5 * time.Second,
		ServerIdleTimeout:   5 * time.Second,
		ServerCorsOrigins:   "*",
		ServerMaxConcurrent: 10,
		RateLimitRPS:        0.001,
		RateLimitBurst:      5,
		RateLimitExpireTime: time.Minute,
		UploadMaxSizeMB:     1,

		PreviewMaxConcurrent: 2,
		PreviewQueueTimeout:  time.Second,
	}
}

func setupTestServer(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	base := t.TempDir()

	db, err := gorm.Open(sqlite.Open(filepath.Join(base, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	provider, err := storage.NewLocalStorage(filepath.Join(base, "data"))
	require.NoError(t, err)
	blobs := storage.NewBlobStore(provider, "uploads")

	mem, err := memory.NewMemory(memory.Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	pool := worker.NewWorkerPool(1, 10)
	pool.Start()
	t.Cleanup(pool.Stop)

	gen := preview.NewGenerator(blobs, preview.DrawResizer{}, nil, preview.Options{TempDir: filepath.Join(base, "temp")})
	svc := mediasvc.NewService(mediarepo.NewRepository(db), blobs, mem, gen, pool, mediasvc.Options{})

	router, cleanup := setupRouter(&ServerDependencies{
		Config:  cfg,
		DB:      db,
		Cache:   mem,
		Storage: provider,
		Media:   svc,
		Pool:    pool,
	})
	t.Cleanup(cleanup)
	return router
}

func TestHealthCheck(t *testing.T) {
	router := setupTestServer(t, testConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"database": "ok", "cache": "ok", "storage": "ok"}, body.Checks)
}

func TestVersionAndMetrics(t *testing.T) {
	router := setupTestServer(t, testConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), config.Version)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"worker"`)
	assert.Contains(t, w.Body.String(), `"request_count"`)
	assert.Contains(t, w.Body.String(), `"preview_max_concurrent":2`)
	assert.Contains(t, w.Body.String(), `"preview_in_flight":0`)
}

func TestSwaggerDisabled(t *testing.T) {
	router := setupTestServer(t, testConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestUploadThroughMiddleware 完整中间件链路下的上传与请求体限制
func TestUploadThroughMiddleware(t *testing.T) {
	router := setupTestServer(t, testConfig())

	send := func(size int) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, err := mw.CreateFormFile("file", "a.png")
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("x"), size))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPut, "/upload/", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("X-Forwarded-For", "10.1.1.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := send(128)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = send(3 << 20)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

// TestRateLimit 超过突发额度后返回 429
func TestRateLimit(t *testing.T) {
	router := setupTestServer(t, testConfig())

	codes := make([]int, 0, 7)
	for i := 0; i < 7; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.2.2.2")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 200, 200, 429, 429}, codes)
}
