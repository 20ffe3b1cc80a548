// Package worker drains feed queues and applies events to the scoreboard.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

const defaultShutdownTimeout = 30 * time.Second

// ErrShutdownTimeout reports that workers were still busy when the deadline hit.
var ErrShutdownTimeout = errors.New("worker shutdown timed out")

// Event abstracts what workers read off the queue.
type Event = model.Event

// Applier performs the state change an event describes.
type Applier interface {
	Apply(ctx context.Context, e model.Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue() <-chan Event
	Dequeued()
	Close() error
}

// Worker processes events from exactly one queue.
type Worker interface {
	// Run processes events until the queue is closed and drained or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for feed events.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		applier:  applier,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.queue.Dequeued()
			// Failures are logged and counted; one bad event must not stall the partition.
			_ = w.processEvent(ctx, event)
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(metrics.Milliseconds(time.Since(start)))
	}()

	if err := w.applier.Apply(ctx, event); err != nil {
		metrics.RecordWorkerError(string(event.Kind))
		w.logger.Warn(ctx, "event rejected",
			logger.String("event_id", event.EventID),
			logger.String("kind", string(event.Kind)),
			logger.String("pair", event.Pair().String()),
			logger.Error(err),
		)
		return fmt.Errorf("apply event %s: %w", event.EventID, err)
	}

	metrics.RecordWorkerApplied(string(event.Kind))
	return nil
}

// Pool runs one worker per queue. Events of a queue are applied in order.
type Pool struct {
	workers         []*InMemoryWorker
	queues          []Queue
	shutdownTimeout time.Duration
	logger          logger.Logger
}

// NewPool creates a pool with a worker bound to each queue.
func NewPool(queues []Queue, applier Applier, opts ...PoolOption) *Pool {
	p := &Pool{
		workers:         make([]*InMemoryWorker, len(queues)),
		queues:          queues,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.Discard(),
	}

	for _, opt := range opts {
		opt(p)
	}

	for i, q := range queues {
		p.workers[i] = NewInMemoryWorker(q, applier,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
		)
	}
	p.logger = p.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(len(p.workers))
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Debug(ctx, "workers started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes every queue and waits until the workers have drained them.
func (p *Pool) Shutdown(ctx context.Context) error {
	for _, q := range p.queues {
		if err := q.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, shutdownCtx.Err())
	}
	return nil
}
