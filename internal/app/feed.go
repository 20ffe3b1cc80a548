package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/okian/scoreboard/internal/adapters/mq/queue"
	"github.com/okian/scoreboard/internal/adapters/mq/worker"
	"github.com/okian/scoreboard/internal/domain/dedupe"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Default feed configuration.
const (
	defaultFeedWorkers   = 4
	defaultFeedQueueSize = 1024
	defaultDedupeSize    = 50_000
)

// Feed applies score events to a Scoreboard asynchronously.
//
// Events are partitioned by their normalized pair, so all events for one
// contest go through the same queue and worker and are applied in the order
// they were published. Events for different contests may interleave.
type Feed struct {
	board   *Scoreboard
	deduper dedupe.Deduper
	queues  []*queue.InMemoryQueue
	pool    *worker.Pool

	workers    int
	queueSize  int
	dedupeSize int
	logger     logger.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewFeed builds a feed in front of board. Call Start before publishing
// events you expect to see applied.
func NewFeed(board *Scoreboard, opts ...FeedOption) *Feed {
	f := &Feed{
		board:      board,
		workers:    defaultFeedWorkers,
		queueSize:  defaultFeedQueueSize,
		dedupeSize: defaultDedupeSize,
		logger:     logger.Discard(),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(f.dedupeSize))
	f.queues = make([]*queue.InMemoryQueue, f.workers)
	consumers := make([]worker.Queue, f.workers)
	for i := range f.queues {
		f.queues[i] = queue.NewInMemoryQueue(
			queue.WithCapacity(f.queueSize),
			queue.WithName(strconv.Itoa(i)),
		)
		consumers[i] = f.queues[i]
	}
	f.pool = worker.NewPool(consumers, board, worker.WithPoolLogger(f.logger))
	f.logger = f.logger.Named("feed")
	return f
}

// Start launches the workers. Calling it again is a no-op.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started || f.closed {
		return
	}
	f.started = true
	f.pool.Start(ctx)
	f.logger.Info(ctx, "feed started",
		logger.Int("workers", f.workers),
		logger.Int("queue_size", f.queueSize),
		logger.Int("dedupe_size", f.dedupeSize),
	)
}

// Publish accepts an event for asynchronous application. An event whose id
// was already accepted is dropped and Publish returns nil. Events without an
// id get a fresh one and are never treated as duplicates.
//
// Returns ErrUnknownEventKind, ErrFeedFull or ErrFeedClosed when the event
// was not accepted; a rejected id may be published again.
func (f *Feed) Publish(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event is handed to the queue by value
	switch e.Kind {
	case model.EventStart, model.EventScore, model.EventEnd:
	default:
		metrics.RecordFeedRejected("unknown_kind")
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}

	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		metrics.RecordFeedRejected("closed")
		return ErrFeedClosed
	}

	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}

	if f.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordFeedDuplicate()
		f.logger.Debug(ctx, "duplicate event dropped", logger.String("event_id", e.EventID))
		return nil
	}

	q := f.partition(e.Pair())
	if err := q.Enqueue(ctx, e); err != nil {
		f.deduper.Unrecord(ctx, e.EventID)
		return f.rejectEnqueue(ctx, e, err)
	}

	metrics.RecordFeedPublished()
	return nil
}

// Close stops accepting events and waits until every accepted event has
// been applied, or ctx is done. Calling it again is a no-op.
func (f *Feed) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	started := f.started
	f.mu.Unlock()

	if !started {
		// Nothing will drain the queues; close them and drop what they hold.
		for _, q := range f.queues {
			_ = q.Close()
		}
		return nil
	}

	if err := f.pool.Shutdown(ctx); err != nil {
		f.logger.Error(ctx, "feed did not drain", logger.Error(err))
		return err
	}
	f.logger.Info(ctx, "feed closed")
	return nil
}

// Pending returns the number of accepted events not yet taken by a worker.
func (f *Feed) Pending() int {
	n := 0
	for _, q := range f.queues {
		n += q.Len()
	}
	return n
}

func (f *Feed) partition(p model.Pair) *queue.InMemoryQueue {
	p = model.Pair{Home: strings.TrimSpace(p.Home), Away: strings.TrimSpace(p.Away)}.Normalize(f.board.Policy())
	h := xxhash.New()
	_, _ = h.WriteString(p.Home)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(p.Away)
	return f.queues[h.Sum64()%uint64(len(f.queues))]
}

func (f *Feed) rejectEnqueue(ctx context.Context, e model.Event, err error) error { //nolint:gocritic // hugeParam: Event is only logged
	var sentinel error
	switch {
	case errors.Is(err, queue.ErrQueueClosed):
		sentinel = ErrFeedClosed
		metrics.RecordFeedRejected("closed")
	case errors.Is(err, queue.ErrQueueFull):
		sentinel = ErrFeedFull
		metrics.RecordFeedRejected("full")
	default:
		metrics.RecordFeedRejected("canceled")
		return err
	}
	f.logger.Warn(ctx, "event not accepted",
		logger.String("event_id", e.EventID),
		logger.String("pair", e.Pair().String()),
		logger.Error(err),
	)
	return fmt.Errorf("%w: %w", sentinel, err)
}
