// Package pagepool provides the process-wide worker pool that page-level
// extraction tasks run on. One pool serves every request, so a burst of
// concurrent documents cannot oversubscribe the host: the pool size, not
// the request count, bounds page parallelism.
package pagepool

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/docparse-io/docparse/internal/config"
)

// ErrClosed is returned for submissions after Shutdown.
var ErrClosed = errors.New("page pool closed")

// SizeFor resolves the pool size from config: an explicit max_workers wins;
// otherwise NumCPU minus the reserved cores, at least 1, capped by max_limit.
func SizeFor(cfg config.PagePoolConfig) int {
	if cfg.MaxWorkers > 0 {
		return cfg.MaxWorkers
	}
	n := runtime.NumCPU() - cfg.ReservedCores
	if n < 1 {
		n = 1
	}
	if cfg.MaxLimit > 0 && n > cfg.MaxLimit {
		n = cfg.MaxLimit
	}
	return n
}

// Pool executes submitted tasks on a fixed number of worker goroutines.
type Pool struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
	size  int
	once  sync.Once
}

// New starts a pool with the given number of workers.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tasks: make(chan func()),
		done:  make(chan struct{}),
		size:  size,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	slog.Info("page pool started", "workers", size)
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			p.run(task)
		case <-p.done:
			return
		}
	}
}

// run shields the worker from panicking tasks. The pool is shared by
// every request, so one bad document must not take the workers down.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("page task panicked", "panic", r)
		}
	}()
	task()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit hands a task to the pool, blocking until a worker accepts it or
// the context expires. The task itself runs asynchronously.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	select {
	case p.tasks <- task:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the workers. Running tasks finish; queued submissions
// fail with ErrClosed.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		slog.Info("page pool stopped")
	})
}
