package redis

import (
	"sync"

	"go.uber.org/zap"
)

// workerPool 缓存写入的后台协程池，Redis 与内存实现共用
type workerPool struct {
	taskChan chan func()
	wg       sync.WaitGroup
	once     sync.Once
	mu       sync.RWMutex
	closed   bool
}

func newWorkerPool(workerNum, bufferSize int) *workerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	p := &workerPool{taskChan: make(chan func(), bufferSize)}
	p.wg.Add(workerNum)
	for i := 0; i < workerNum; i++ {
		go p.startWorker()
	}
	zap.L().Info("Cache workers started", zap.Int("workers", workerNum), zap.Int("buffer", bufferSize))
	return p
}

// startWorker 启动单个 Worker 消费循环
func (p *workerPool) startWorker() {
	defer p.wg.Done()
	for task := range p.taskChan {
		p.run(task)
	}
}

// run 单个任务 panic 不影响 worker 继续消费
func (p *workerPool) run(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("Cache worker panic", zap.Any("recover", rec))
		}
	}()
	if task != nil {
		task()
	}
}

// submit 通道满或已关闭时同步执行
func (p *workerPool) submit(action func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.run(action)
		return
	}
	select {
	case p.taskChan <- action:
	default:
		zap.L().Warn("Cache task channel full, executing synchronously")
		p.run(action)
	}
}

// stop 关闭通道并等待已提交的任务执行完
func (p *workerPool) stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.taskChan)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
