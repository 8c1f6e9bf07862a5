// Package pool keeps a bounded set of pre-cloned analysis snapshots. A single
// background replenisher refills it while the engine is idle; Take never waits
// for it and clones inline on a miss.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pathwaycore/internal/graph"
)

// DefaultSize is the pool capacity used when no size is configured.
const DefaultSize = 3

// DefaultBackoff is how long the replenisher waits after a failed clone.
const DefaultBackoff = 500 * time.Millisecond

// Cloner produces statistics-reset snapshots of the canonical graph.
type Cloner interface {
	Clone() (*graph.Snapshot, error)
}

// Logger is the subset of the service logger used by the replenisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Observer receives pool events, typically to export them as metrics.
type Observer interface {
	PoolSize(n int)
	PoolMiss()
	CloneFailure()
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type noopObserver struct{}

func (noopObserver) PoolSize(int)  {}
func (noopObserver) PoolMiss()     {}
func (noopObserver) CloneFailure() {}

// Option configures a Pool.
type Option func(*Pool)

// WithSize sets the pool capacity. Values below one are ignored.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithLogger installs the logger used to report replenisher failures.
func WithLogger(l Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver installs an event observer.
func WithObserver(o Observer) Option {
	return func(p *Pool) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithBackoff sets the delay between failed background clones.
func WithBackoff(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// Pool is a bounded FIFO of ready snapshots plus the in-flight analysis
// counter that gates the replenisher. Snapshots handed out by Take are never
// returned.
type Pool struct {
	source   Cloner
	size     int
	backoff  time.Duration
	logger   Logger
	observer Observer

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*graph.Snapshot
	active  int
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a pool cloning from source. Call Start to launch the
// replenisher.
func New(source Cloner, opts ...Option) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		source:   source,
		size:     DefaultSize,
		backoff:  DefaultBackoff,
		logger:   noopLogger{},
		observer: noopObserver{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cond = sync.NewCond(&p.mu)
	p.queue = make([]*graph.Snapshot, 0, p.size)
	return p
}

// Start launches the background replenisher. Further calls are no-ops.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	p.wg.Add(1)
	go p.loop()
}

// Stop halts the replenisher, drops pooled snapshots and waits for the
// background goroutine until ctx expires.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take pops the oldest pooled snapshot or, when the pool is empty, clones one
// synchronously. It never waits for the replenisher.
func (p *Pool) Take() (*graph.Snapshot, error) {
	p.mu.Lock()
	if len(p.queue) > 0 {
		snap := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		n := len(p.queue)
		p.cond.Broadcast()
		p.mu.Unlock()
		p.observer.PoolSize(n)
		return snap, nil
	}
	p.mu.Unlock()

	p.observer.PoolMiss()
	snap, err := p.source.Clone()
	if err != nil {
		p.observer.CloneFailure()
		return nil, fmt.Errorf("clone snapshot: %w", err)
	}
	return snap, nil
}

// Acquire registers an in-flight analysis. The replenisher stays paused while
// any analysis is registered. The returned release function is safe to call
// more than once; it must be deferred by the caller.
func (p *Pool) Acquire() (release func()) {
	p.mu.Lock()
	p.active++
	p.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.active--
			if p.active == 0 {
				p.cond.Broadcast()
			}
			p.mu.Unlock()
		})
	}
}

// InFlight returns the number of registered analyses.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Len returns the number of pooled snapshots.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return p.size }

// IsFull reports whether the pool holds Size snapshots.
func (p *Pool) IsFull() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) >= p.size
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for !p.stopped && (len(p.queue) >= p.size || p.active > 0) {
			p.cond.Wait()
		}
		stopped := p.stopped
		p.mu.Unlock()
		if stopped {
			return
		}
		if err := p.put(); err != nil {
			p.observer.CloneFailure()
			p.logger.Warn("snapshot replenish failed", "error", err, "retry_in", p.backoff)
			timer := time.NewTimer(p.backoff)
			select {
			case <-p.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// put clones one snapshot and appends it when capacity allows. A clone made
// while the pool filled up concurrently is discarded.
func (p *Pool) put() error {
	snap, err := p.source.Clone()
	if err != nil {
		return err
	}
	p.mu.Lock()
	if p.stopped || len(p.queue) >= p.size {
		p.mu.Unlock()
		return nil
	}
	p.queue = append(p.queue, snap)
	n := len(p.queue)
	p.mu.Unlock()
	p.observer.PoolSize(n)
	p.logger.Debug("snapshot pooled", "size", n)
	return nil
}
