package scoring

import (
	"context"
	"sync"
)

// job is a unit of work run by the pool.
type job func()

// pool runs jobs on a fixed number of goroutines. Jobs are admitted in
// submission order; submitters block while the backlog is full.
type pool struct {
	jobs    chan job
	quit    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closed and close(jobs)
	closed  bool
	quitted sync.Once
}

func newPool(workers, backlog int) *pool {
	if workers <= 0 {
		workers = 1
	}
	if backlog <= 0 {
		backlog = workers * 2
	}
	p := &pool{
		jobs: make(chan job, backlog),
		quit: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				j()
			}
		}()
	}
	return p
}

// submit enqueues j. It returns ErrQueueClosed after close, or ctx.Err() if
// ctx ends while waiting for backlog space.
func (p *pool) submit(ctx context.Context, j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.jobs <- j:
		return nil
	case <-p.quit:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops admitting jobs, lets queued ones finish, and waits for workers.
func (p *pool) close() {
	p.quitted.Do(func() { close(p.quit) })
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// ErrQueueClosed is returned for evaluations submitted after Close.
var ErrQueueClosed = &QueueError{"evaluation queue closed"}

// QueueError is a typed error for queue lifecycle failures.
type QueueError struct{ msg string }

func (e *QueueError) Error() string { return e.msg }
