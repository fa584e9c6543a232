// Package queue provides the bounded in-memory queues that decouple the
// pipeline stages from each other.
//
// Two instances exist at runtime: one carrying punches from the sources to
// the enrichment stage and one carrying announcements to the playback
// stage. Both are generic over their payload type.
package queue

import (
	"context"
	"sync"

	"github.com/klasvik/prewarn/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultBufferSize    = 10000
	defaultName          = "queue"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item to the queue.
	// Returns false if the queue is full or closed and the item was dropped.
	Enqueue(ctx context.Context, item T) bool

	// Dequeue returns a channel that receives items as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new items can be enqueued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemory implements Queue using a buffered channel.
type InMemory[T any] struct {
	items      chan T
	name       string
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemory creates a new in-memory queue with configuration options.
func NewInMemory[T any](opts ...Option) *InMemory[T] {
	cfg := settings{
		name:       defaultName,
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemory[T]{
		name:       cfg.name,
		capacity:   cfg.capacity,
		bufferSize: cfg.bufferSize,
	}
	q.items = make(chan T, q.bufferSize)

	metrics.UpdateQueueSize(q.name, 0)

	return q
}

// Enqueue adds an item to the queue.
func (q *InMemory[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError(q.name)
		return false
	}

	if len(q.items) >= q.capacity {
		metrics.RecordQueueEnqueueError(q.name)
		return false
	}

	select {
	case q.items <- item:
		metrics.UpdateQueueSize(q.name, len(q.items))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError(q.name)
		return false
	default:
		metrics.RecordQueueEnqueueError(q.name)
		return false
	}
}

// Dequeue returns a channel that receives items as they become available.
func (q *InMemory[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for item := range q.items {
			select {
			case out <- item:
				metrics.UpdateQueueSize(q.name, len(q.items))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemory[T]) Len(ctx context.Context) int {
	size := len(q.items)
	metrics.UpdateQueueSize(q.name, size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemory[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.items)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemory[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
