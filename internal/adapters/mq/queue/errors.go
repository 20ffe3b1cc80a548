package queue

import "errors"

// Sentinel errors for rejected enqueues.
var (
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = errors.New("queue closed")
)
