package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedPool(t *testing.T, workers, queue int) *WorkerPool {
	t.Helper()
	pool := NewWorkerPool(workers, queue)
	pool.Start()
	return pool
}

// TestPanicRecovery 测试 Panic Recovery 功能
func TestPanicRecovery(t *testing.T) {
	pool := newStartedPool(t, 2, 10)
	defer pool.Stop()

	var completed atomic.Int32
	panicTask := TaskFunc(func() { panic("intentional panic for testing") })
	normalTask := TaskFunc(func() { completed.Add(1) })

	pool.Submit(panicTask)
	pool.Submit(panicTask)
	pool.Submit(normalTask)
	pool.Submit(normalTask)
	pool.Submit(normalTask)

	require.Eventually(t, func() bool {
		return pool.Stats().Executed == 5
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(3), completed.Load())
	assert.Equal(t, uint64(2), pool.Stats().Failed)
}

// TestGracefulShutdown 测试优雅关闭等待正在执行的任务
func TestGracefulShutdown(t *testing.T) {
	pool := newStartedPool(t, 2, 10)

	var completed atomic.Int32
	var started sync.WaitGroup
	started.Add(1)

	pool.Submit(TaskFunc(func() {
		started.Done()
		time.Sleep(300 * time.Millisecond)
		completed.Add(1)
	}))

	started.Wait()

	begin := time.Now()
	pool.Stop()

	assert.GreaterOrEqual(t, time.Since(begin), 250*time.Millisecond)
	assert.Equal(t, int32(1), completed.Load())
}

// TestQueueFullDropPolicy 测试队列满时的丢弃策略
func TestQueueFullDropPolicy(t *testing.T) {
	pool := newStartedPool(t, 1, 2)

	blocker := make(chan struct{})
	var running sync.WaitGroup
	running.Add(1)
	pool.Submit(TaskFunc(func() {
		running.Done()
		<-blocker
	}))
	running.Wait()

	assert.True(t, pool.Submit(TaskFunc(func() {})))
	assert.True(t, pool.Submit(TaskFunc(func() {})))
	assert.False(t, pool.Submit(TaskFunc(func() {})), "queue is full")
	assert.Equal(t, uint64(1), pool.Stats().Dropped)

	close(blocker)
	pool.Stop()
}

// TestConcurrentSubmit 测试并发提交
func TestConcurrentSubmit(t *testing.T) {
	pool := newStartedPool(t, 4, 2000)
	defer pool.Stop()

	const goroutines = 50
	const perGoroutine = 20

	var completed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				pool.Submit(TaskFunc(func() { completed.Add(1) }))
			}
		}()
	}
	wg.Wait()

	expected := int32(goroutines * perGoroutine)
	require.Eventually(t, func() bool {
		return completed.Load() == expected
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(expected), pool.Stats().Submitted)
}

// TestSubmitAfterStop 测试停止后提交任务
func TestSubmitAfterStop(t *testing.T) {
	pool := newStartedPool(t, 2, 10)
	pool.Stop()

	assert.False(t, pool.Submit(TaskFunc(func() {})))
	assert.False(t, pool.SubmitBlocking(TaskFunc(func() {}), time.Second))
}

// TestSubmitBlocking_Timeout 测试阻塞提交超时
func TestSubmitBlocking_Timeout(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Stop()

	assert.True(t, pool.SubmitBlocking(TaskFunc(func() {}), 50*time.Millisecond))
	assert.False(t, pool.SubmitBlocking(TaskFunc(func() {}), 50*time.Millisecond), "pool not started, queue stays full")
}

// TestDoubleStop 测试重复停止
func TestDoubleStop(t *testing.T) {
	pool := newStartedPool(t, 2, 10)
	pool.Stop()
	pool.Stop()
}

// TestSubmitNilTask 测试提交 nil 任务
func TestSubmitNilTask(t *testing.T) {
	pool := newStartedPool(t, 2, 10)
	defer pool.Stop()

	assert.False(t, pool.Submit(nil))
	assert.Equal(t, 2, pool.Stats().WorkerCount)
	assert.Equal(t, 10, pool.Stats().QueueCap)
}
