package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Task 异步任务接口
type Task interface {
	Execute()
}

// TaskFunc 函数适配为 Task
type TaskFunc func()

func (f TaskFunc) Execute() { f() }

// Stats 协程池统计
type Stats struct {
	WorkerCount int    `json:"worker_count"`
	QueueLen    int    `json:"queue_len"`
	QueueCap    int    `json:"queue_cap"`
	Submitted   uint64 `json:"submitted"`
	Executed    uint64 `json:"executed"`
	Failed      uint64 `json:"failed"`
	Dropped     uint64 `json:"dropped"`
}

// WorkerPool 有界队列协程池，队列满时丢弃任务
type WorkerPool struct {
	workers int
	queue   chan Task
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	mu      sync.Mutex

	submitted atomic.Uint64
	executed  atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewWorkerPool 创建工作池
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers: workers,
		queue:   make(chan Task, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 启动工作池
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	p.started = true
	log.Printf("[Worker] Pool started with %d workers", p.workers)
}

// Stop 停止接收任务并等待正在执行的任务结束，队列中未执行的任务被丢弃
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	if n := len(p.queue); n > 0 {
		p.dropped.Add(uint64(n))
		log.Printf("[Worker] Pool stopped, %d queued tasks discarded", n)
		return
	}
	log.Println("[Worker] Pool stopped")
}

// Submit 提交任务（非阻塞，队列满时丢弃）
func (p *WorkerPool) Submit(task Task) bool {
	if task == nil || p.ctx.Err() != nil {
		return false
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return true
	default:
		p.dropped.Add(1)
		log.Println("[Worker] WARN: queue is full, task dropped")
		return false
	}
}

// SubmitBlocking 阻塞提交任务，队列满时等待（带超时）
func (p *WorkerPool) SubmitBlocking(task Task, timeout time.Duration) bool {
	if task == nil || p.ctx.Err() != nil {
		return false
	}

	ctx := p.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, timeout)
		defer cancel()
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return true
	case <-ctx.Done():
		return false
	}
}

// Stats 返回统计快照
func (p *WorkerPool) Stats() Stats {
	return Stats{
		WorkerCount: p.workers,
		QueueLen:    len(p.queue),
		QueueCap:    cap(p.queue),
		Submitted:   p.submitted.Load(),
		Executed:    p.executed.Load(),
		Failed:      p.failed.Load(),
		Dropped:     p.dropped.Load(),
	}
}

// worker 工作协程
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.queue:
			p.executeTask(task)
		}
	}
}

// executeTask 执行任务并捕获 panic
func (p *WorkerPool) executeTask(task Task) {
	defer func() {
		p.executed.Add(1)
		if r := recover(); r != nil {
			p.failed.Add(1)
			log.Printf("[Worker] Panic recovered in async task: %v", r)
		}
	}()
	task.Execute()
}
