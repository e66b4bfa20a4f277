package service

import (
	"context"
	"errors"
	"sync"

	"iptrail/internal/constants"
	"iptrail/internal/metrics"
	"iptrail/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrExecutorSaturated is returned by Submit when the queue is full and
	// the pool has already grown to its maximum size.
	ErrExecutorSaturated = errors.New("async executor queue is full")
	// ErrExecutorClosed is returned by Submit after Shutdown has started.
	ErrExecutorClosed = errors.New("async executor has been shut down")
)

// Executor is a bounded task queue with a fixed set of resident workers.
// Under queue pressure the pool grows up to MaxPoolSize with transient
// workers that drain the backlog and exit; beyond that, submissions are
// rejected rather than queued without bound.
type Executor struct {
	mu      sync.Mutex
	tasks   chan func()
	wg      sync.WaitGroup
	workers int
	core    int
	max     int
	closed  bool
	logger  *logrus.Logger
}

// NewExecutor starts the resident workers immediately. Zero or negative
// configuration values fall back to defaults; MaxPoolSize is raised to
// CorePoolSize when smaller.
func NewExecutor(cfg models.AsyncConfig, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.New()
	}

	core := cfg.CorePoolSize
	if core <= 0 {
		core = constants.DefaultCorePoolSize
	}
	max := cfg.MaxPoolSize
	if max <= 0 {
		max = constants.DefaultMaxPoolSize
	}
	if max < core {
		max = core
	}
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = constants.DefaultQueueCapacity
	}

	e := &Executor{
		tasks:   make(chan func(), capacity),
		workers: core,
		core:    core,
		max:     max,
		logger:  logger,
	}

	for i := 0; i < core; i++ {
		e.wg.Add(1)
		go e.worker()
	}

	return e
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for task := range e.tasks {
		metrics.SetAsyncQueueDepth(len(e.tasks))
		task()
	}
}

// Submit enqueues a task for execution. It never blocks: when the queue is
// full it grows the pool if allowed, and otherwise rejects the task with
// ErrExecutorSaturated.
func (e *Executor) Submit(task func()) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorClosed
	}

	select {
	case e.tasks <- task:
		metrics.SetAsyncQueueDepth(len(e.tasks))
		e.mu.Unlock()
		return nil
	default:
	}

	if e.workers < e.max {
		e.workers++
		e.wg.Add(1)
		e.mu.Unlock()
		go e.overflowWorker(task)
		return nil
	}

	e.mu.Unlock()
	metrics.RecordAsyncRejection()
	return ErrExecutorSaturated
}

// overflowWorker runs its own task first, then keeps draining the queue
// until it finds it empty and retires.
func (e *Executor) overflowWorker(task func()) {
	defer e.wg.Done()
	task()

	for {
		select {
		case queued, ok := <-e.tasks:
			if !ok {
				return
			}
			metrics.SetAsyncQueueDepth(len(e.tasks))
			queued()
		default:
			e.mu.Lock()
			e.workers--
			e.mu.Unlock()
			return
		}
	}
}

// Shutdown stops accepting tasks and waits for queued work to drain. When
// the context expires first, remaining workers are abandoned and the
// context error is returned.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Debug("Async executor drained")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Async executor shutdown timed out before draining")
		return ctx.Err()
	}
}

// QueueDepth reports the number of tasks currently waiting.
func (e *Executor) QueueDepth() int {
	return len(e.tasks)
}
