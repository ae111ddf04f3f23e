package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/anoixa/media-server/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter 基于信号量的并发限制，max <= 0 时不限制
type ConcurrencyLimiter struct {
	sem      *semaphore.Weighted
	max      int64
	inFlight atomic.Int64
}

// NewConcurrencyLimiter 并发限制器
func NewConcurrencyLimiter(max int64) *ConcurrencyLimiter {
	cl := &ConcurrencyLimiter{max: max}
	if max > 0 {
		cl.sem = semaphore.NewWeighted(max)
	}
	return cl
}

// Reject 名额已满时立即返回 503
func (cl *ConcurrencyLimiter) Reject() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cl.sem != nil && !cl.sem.TryAcquire(1) {
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Server is busy, please try again later")
			return
		}
		cl.serve(c)
	}
}

// Wait 排队等待名额，超过 timeout 返回 503；timeout <= 0 时一直等到请求结束
func (cl *ConcurrencyLimiter) Wait(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cl.sem == nil {
			cl.serve(c)
			return
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := cl.sem.Acquire(ctx, 1); err != nil {
			// 客户端已断开，无需响应
			if errors.Is(c.Request.Context().Err(), context.Canceled) {
				c.Abort()
				return
			}
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Too many preview requests, please try again later")
			return
		}
		cl.serve(c)
	}
}

func (cl *ConcurrencyLimiter) serve(c *gin.Context) {
	cl.inFlight.Add(1)
	defer func() {
		cl.inFlight.Add(-1)
		if cl.sem != nil {
			cl.sem.Release(1)
		}
	}()
	c.Next()
}

// InFlight 当前占用的名额数
func (cl *ConcurrencyLimiter) InFlight() int64 {
	return cl.inFlight.Load()
}

// Max 名额上限，0 表示不限制
func (cl *ConcurrencyLimiter) Max() int64 {
	if cl.max < 0 {
		return 0
	}
	return cl.max
}
