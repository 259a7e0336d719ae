package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned for submissions after Shutdown.
var ErrPoolClosed = errors.New("ocr pool closed")

// EngineFactory builds one engine instance for one worker.
type EngineFactory func() (Engine, error)

type job struct {
	data  []byte
	reply chan jobResult
}

type jobResult struct {
	text string
	err  error
}

// Pool runs recognition on a fixed set of workers. Each worker owns a
// private Engine, so sessions are isolated the way separate processes
// would be; the pool itself is safe for concurrent use.
type Pool struct {
	jobs    chan job
	done    chan struct{}
	wg      sync.WaitGroup
	workers int
	once    sync.Once
}

// DefaultWorkers sizes the pool as min(NumCPU, maxWorkers).
func DefaultWorkers(maxWorkers int) int {
	n := runtime.NumCPU()
	if maxWorkers > 0 && n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// NewPool creates the workers and their engines up front, so a broken
// model path fails at startup rather than on the first request.
func NewPool(workers int, factory EngineFactory) (*Pool, error) {
	if workers < 1 {
		workers = 1
	}

	engines := make([]Engine, 0, workers)
	for i := 0; i < workers; i++ {
		engine, err := factory()
		if err != nil {
			for _, e := range engines {
				_ = e.Close()
			}
			return nil, fmt.Errorf("create ocr engine %d: %w", i, err)
		}
		engines = append(engines, engine)
	}

	p := &Pool{
		jobs:    make(chan job),
		done:    make(chan struct{}),
		workers: workers,
	}
	for i, engine := range engines {
		p.wg.Add(1)
		go p.worker(i, engine)
	}
	slog.Info("ocr pool started", "workers", workers)
	return p, nil
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) worker(id int, engine Engine) {
	defer p.wg.Done()
	defer func() { _ = engine.Close() }()

	for {
		select {
		case j := <-p.jobs:
			text, err := p.recognizeSafely(id, engine, j.data)
			j.reply <- jobResult{text: text, err: err}
		case <-p.done:
			return
		}
	}
}

// recognizeSafely shields the worker loop from engine panics; a panicking
// recognition fails that one image only.
func (p *Pool) recognizeSafely(id int, engine Engine, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("ocr worker recovered from panic", "worker", id, "panic", r)
			text = ""
			err = fmt.Errorf("%w: panic: %v", ErrEngine, r)
		}
	}()
	return engine.Recognize(data)
}

// Recognize submits one image and waits for its result or the context.
func (p *Pool) Recognize(ctx context.Context, data []byte) (string, error) {
	reply := make(chan jobResult, 1)
	select {
	case p.jobs <- job{data: data, reply: reply}:
	case <-p.done:
		return "", ErrPoolClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-reply:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown stops the workers and closes their engines. In-flight
// recognitions finish; queued submissions fail with ErrPoolClosed.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		slog.Info("ocr pool stopped")
	})
}
