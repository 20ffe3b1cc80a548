// Package queue defines the contract for enqueuing and consuming feed events.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Event represents the payload type flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue without blocking.
	// Returns ErrQueueFull or ErrQueueClosed when the event was not accepted.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns the channel events are delivered on, in FIFO order.
	// The channel is closed once the queue is closed and drained.
	Dequeue() <-chan Event

	// Dequeued is called by the consumer once per received event.
	Dequeued()

	// Len returns the current number of queued events.
	Len() int

	// Close stops accepting events. Already queued events are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	name     string

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		name:     "0",
	}

	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(q.name, 0)
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return fmt.Errorf("%w: %s", ErrQueueClosed, q.name)
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return ctx.Err()
	default:
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(q.name, len(q.events))
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		return fmt.Errorf("%w: %s holds %d events", ErrQueueFull, q.name, q.capacity)
	}
}

// Dequeue returns the receive side of the buffer. Consumers range over it
// and should call Dequeued after each event so the size gauge stays current.
func (q *InMemoryQueue) Dequeue() <-chan Event {
	return q.events
}

// Dequeued records that one event left the queue.
func (q *InMemoryQueue) Dequeued() {
	metrics.RecordQueueDequeue()
	metrics.UpdateQueueSize(q.name, len(q.events))
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Name returns the queue's metric label.
func (q *InMemoryQueue) Name() string {
	return q.name
}

// Close gracefully shuts down the queue. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
