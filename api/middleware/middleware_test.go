package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

// TestIPRateLimiter_Burst 突发额度用完后返回 429
func TestIPRateLimiter_Burst(t *testing.T) {
	rl := NewIPRateLimiter(0.001, 3, time.Minute)
	defer rl.StopCleanup()

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", okHandler)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"status":"error","detail":"Too many requests"}`, w.Body.String())

	// 其他 IP 不受影响
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.2, 192.168.1.1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestIPRateLimiter_Evict 过期客户端被清理
func TestIPRateLimiter_Evict(t *testing.T) {
	rl := NewIPRateLimiter(10, 10, time.Minute)
	rl.StopCleanup()
	rl.StopCleanup()

	rl.get("1.1.1.1")
	rl.evict(time.Now())
	_, ok := rl.limiterMap.Load("1.1.1.1")
	assert.True(t, ok)

	rl.evict(time.Now().Add(2 * time.Minute))
	_, ok = rl.limiterMap.Load("1.1.1.1")
	assert.False(t, ok)
}

// TestConcurrencyLimiter_Busy 并发已满时返回 503
func TestConcurrencyLimiter_Busy(t *testing.T) {
	cl := NewConcurrencyLimiter(1)
	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.Use(cl.Reject())
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/fast", okHandler)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	}()
	<-entered

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)

	close(release)
	wg.Wait()

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// holdSlot 占住限制器的唯一名额，返回释放函数
func holdSlot(t *testing.T, r *gin.Engine) func() {
	t.Helper()
	entered := make(chan struct{})
	release := make(chan struct{})
	r.GET("/hold", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hold", nil))
	}()
	<-entered
	return func() {
		close(release)
		wg.Wait()
	}
}

// TestConcurrencyLimiter_WaitTimeout 排队超时返回 503
func TestConcurrencyLimiter_WaitTimeout(t *testing.T) {
	cl := NewConcurrencyLimiter(1)
	r := gin.New()
	r.Use(cl.Wait(50 * time.Millisecond))
	r.GET("/preview", okHandler)

	done := holdSlot(t, r)
	defer done()
	assert.Equal(t, int64(1), cl.InFlight())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Too many preview requests")
}

// TestConcurrencyLimiter_WaitAcquires 名额释放后排队请求继续执行
func TestConcurrencyLimiter_WaitAcquires(t *testing.T) {
	cl := NewConcurrencyLimiter(1)
	r := gin.New()
	r.Use(cl.Wait(5 * time.Second))
	r.GET("/preview", okHandler)

	done := holdSlot(t, r)
	go func() {
		time.Sleep(50 * time.Millisecond)
		done()
	}()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), cl.InFlight())
}

// TestConcurrencyLimiter_Unlimited max <= 0 时不限制
func TestConcurrencyLimiter_Unlimited(t *testing.T) {
	cl := NewConcurrencyLimiter(0)
	r := gin.New()
	r.Use(cl.Wait(time.Millisecond))
	r.GET("/preview", okHandler)

	done := holdSlot(t, r)
	defer done()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), cl.Max())
}

// TestRequestID 生成或透传请求 ID
func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

// TestMaxBytesReader 超过上限时读取失败
func TestMaxBytesReader(t *testing.T) {
	r := gin.New()
	r.Use(MaxBytesReader(8))
	r.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// TestMetrics 统计请求数
func TestMetrics(t *testing.T) {
	ResetMetrics()
	r := gin.New()
	r.Use(Metrics())
	r.GET("/", okHandler)
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	m := GetMetrics()
	require.Equal(t, int64(2), m["request_count"])
	assert.Equal(t, int64(1), m["server_errors"])
	assert.Equal(t, int64(0), m["in_flight"])
}
