package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmp3/internal/shared"
)

// JobFunc executes one job. ctx is canceled when the job is canceled or the pool stops.
type JobFunc func(ctx context.Context, id string)

// Pool runs jobs on a fixed number of slots fed by a FIFO queue.
//
// Waiting ids live in a slice under the pool lock so that canceling a queued
// job frees its place at once.
type Pool struct {
	size      int
	queueSize int
	policy    string
	run       JobFunc
	logger    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	ready   *sync.Cond
	pending []string
	running map[string]context.CancelFunc
	closed  bool
	started bool
}

// NewPool creates a pool with size slots and room for queueSize waiting jobs.
// policy is [shared.QueuePolicyQueue] or [shared.QueuePolicyReject].
func NewPool(size, queueSize int, policy string, run JobFunc, logger *log.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		size:      size,
		queueSize: queueSize,
		policy:    policy,
		run:       run,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		running:   make(map[string]context.CancelFunc),
	}
	p.ready = sync.NewCond(&p.mu)
	return p
}

// Start launches the slot goroutines. It is a no-op after the first call.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.slot(i)
	}
}

// Submit enqueues id without blocking. It returns [shared.ErrCapacity] when the
// queue is full, or under the reject policy when no slot would be free for it.
func (p *Pool) Submit(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return shared.ErrPoolClosed
	}
	if p.policy == shared.QueuePolicyReject && len(p.running)+len(p.pending) >= p.size {
		return fmt.Errorf("%w: all %d slots busy", shared.ErrCapacity, p.size)
	}
	if len(p.pending) >= p.queueSize {
		return fmt.Errorf("%w: %d jobs waiting", shared.ErrCapacity, len(p.pending))
	}

	p.pending = append(p.pending, id)
	p.ready.Signal()
	return nil
}

// Cancel cancels the context of a running job, or drops the job from the queue
// if it has not started. It reports whether the job was running.
func (p *Pool) Cancel(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cancel, ok := p.running[id]; ok {
		cancel()
		return true
	}
	for i, queued := range p.pending {
		if queued == id {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}
	return false
}

// Busy returns the number of jobs currently executing.
func (p *Pool) Busy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}

// Queued returns the number of jobs waiting for a slot.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Stop refuses new jobs, cancels running ones and waits for every slot to exit.
// Jobs still waiting in the queue are not executed.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		if n := len(p.pending); n > 0 {
			p.logger.Debug("pool stopped, leaving jobs queued", "count", n)
		}
		p.pending = nil
		p.cancel()
		p.ready.Broadcast()
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// next blocks until a job is waiting and registers it as running.
// It returns false once the pool is closed.
func (p *Pool) next() (string, context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.pending) == 0 && !p.closed {
		p.ready.Wait()
	}
	if p.closed {
		return "", nil, false
	}

	id := p.pending[0]
	p.pending = p.pending[1:]
	ctx, cancel := context.WithCancel(p.ctx)
	p.running[id] = cancel
	return id, ctx, true
}

func (p *Pool) slot(n int) {
	defer p.wg.Done()
	logger := shared.WithLogger(p.logger, "slot", n)

	for {
		id, ctx, ok := p.next()
		if !ok {
			return
		}
		p.execute(ctx, logger, id)
	}
}

func (p *Pool) execute(ctx context.Context, logger *log.Logger, id string) {
	defer func() {
		p.mu.Lock()
		if cancel, ok := p.running[id]; ok {
			cancel()
			delete(p.running, id)
		}
		p.mu.Unlock()

		if r := recover(); r != nil {
			logger.Error("job panicked", "job", id, "panic", r)
		}
	}()

	p.run(ctx, id)
}
