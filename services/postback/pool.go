package postback

import (
	"context"
	"errors"
	"sync"

	"github.com/m3rciful/offerbot/core/logger"
)

// ErrQueueFull reports that the submission queue has no capacity left.
var ErrQueueFull = errors.New("postback queue full")

// Pool bounds how many orchestration runs execute simultaneously. One run
// can take tens of seconds, so runs never execute on the event goroutine.
// Stopping the pool cancels in-flight runs at their next wait point.
type Pool struct {
	mu      sync.Mutex
	queue   chan job
	wg      sync.WaitGroup
	stopped bool

	runCtx context.Context
	cancel context.CancelFunc
}

type job struct {
	ctx context.Context
	fn  func(ctx context.Context)
}

// NewPool starts workers goroutines consuming a queue of queueSize.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 8
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	runCtx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan job, queueSize),
		runCtx: runCtx,
		cancel: cancel,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.queue {
		queueDepth.Dec()
		p.runJob(j, id)
	}
}

func (p *Pool) runJob(j job, workerID int) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.SVCPostback.ErrorContext(j.ctx, "worker_panic",
				"status", "fail", "worker", workerID, "err", rec)
		}
	}()

	// Tie the run to the pool lifetime so Stop interrupts step delays.
	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	unlink := context.AfterFunc(p.runCtx, cancel)
	defer unlink()

	if ctx.Err() != nil {
		return
	}
	j.fn(ctx)
}

// Submit enqueues one run without blocking; a saturated queue is rejected
// so the user gets immediate feedback instead of a silent stall. The lock
// is held across the send so Stop cannot close the queue underneath it.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return errors.New("postback pool stopped")
	}
	select {
	case p.queue <- job{ctx: ctx, fn: fn}:
		queueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue, cancels in-flight runs and waits for the workers
// to drain. Safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
		p.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
}
