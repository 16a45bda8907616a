package buffer

import (
	"sync"

	"github.com/c360/flowpipe/errors"
)

// circularBuffer is a thread-safe ring buffer with configurable overflow policies.
type circularBuffer[T any] struct {
	mu      sync.RWMutex
	items   []T
	size    int
	head    int // next write position
	tail    int // oldest item
	stats   *Statistics
	metrics *bufferMetrics
	opts    *bufferOptions[T]
	closed  bool
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) (*circularBuffer[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsName)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newCircularBuffer", "metrics registration")
		}
	}

	return &circularBuffer[T]{
		items:   make([]T, capacity),
		stats:   NewStatistics(),
		metrics: metrics,
		opts:    opts,
	}, nil
}

// Write adds an item to the buffer according to the overflow policy.
func (cb *circularBuffer[T]) Write(item T) error {
	cb.mu.Lock()

	if cb.closed {
		cb.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write", "buffer closed")
	}

	var (
		dropped    T
		hasDropped bool
	)

	if cb.size == len(cb.items) {
		switch cb.opts.overflowPolicy {
		case Grow:
			cb.grow()
		case DropNewest:
			cb.recordDrop()
			cb.mu.Unlock()
			if cb.opts.dropCallback != nil {
				cb.opts.dropCallback(item)
			}
			return nil
		default:
			dropped, hasDropped = cb.items[cb.tail], true
			cb.removeOldest()
			cb.recordDrop()
		}
	}

	cb.items[cb.head] = item
	cb.head = (cb.head + 1) % len(cb.items)
	cb.size++

	cb.stats.Write()
	cb.stats.UpdateSize(int64(cb.size))
	if cb.metrics != nil {
		cb.metrics.recordWrite(cb.size)
	}
	cb.mu.Unlock()

	if hasDropped && cb.opts.dropCallback != nil {
		cb.opts.dropCallback(dropped)
	}
	return nil
}

// grow doubles the storage, moving items so the oldest sits at index 0.
func (cb *circularBuffer[T]) grow() {
	next := make([]T, len(cb.items)*2)
	for i := 0; i < cb.size; i++ {
		next[i] = cb.items[(cb.tail+i)%len(cb.items)]
	}
	cb.items = next
	cb.tail = 0
	cb.head = cb.size
	cb.stats.Grow()
}

func (cb *circularBuffer[T]) recordDrop() {
	cb.stats.Drop()
	if cb.metrics != nil {
		cb.metrics.recordDrop()
	}
}

func (cb *circularBuffer[T]) removeOldest() T {
	var zero T
	item := cb.items[cb.tail]
	cb.items[cb.tail] = zero
	cb.tail = (cb.tail + 1) % len(cb.items)
	cb.size--
	return item
}

func (cb *circularBuffer[T]) removeNewest() T {
	var zero T
	cb.head = (cb.head - 1 + len(cb.items)) % len(cb.items)
	item := cb.items[cb.head]
	cb.items[cb.head] = zero
	cb.size--
	return item
}

func (cb *circularBuffer[T]) afterRead() {
	cb.stats.Read()
	cb.stats.UpdateSize(int64(cb.size))
	if cb.metrics != nil {
		cb.metrics.recordRead(cb.size)
	}
}

// Read retrieves and removes the oldest item.
func (cb *circularBuffer[T]) Read() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}
	item := cb.removeOldest()
	cb.afterRead()
	return item, true
}

// ReadNewest retrieves and removes the most recently written item.
func (cb *circularBuffer[T]) ReadNewest() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}
	item := cb.removeNewest()
	cb.afterRead()
	return item, true
}

// Peek returns the oldest item without removing it.
func (cb *circularBuffer[T]) Peek() (T, bool) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}
	cb.stats.Peek()
	return cb.items[cb.tail], true
}

// PeekNewest returns the most recently written item without removing it.
func (cb *circularBuffer[T]) PeekNewest() (T, bool) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}
	cb.stats.Peek()
	return cb.items[(cb.head-1+len(cb.items))%len(cb.items)], true
}

// Drain removes and returns all items, oldest first.
func (cb *circularBuffer[T]) Drain() []T {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		return nil
	}
	result := make([]T, 0, cb.size)
	for cb.size > 0 {
		result = append(result, cb.removeOldest())
		cb.stats.Read()
	}
	cb.stats.UpdateSize(0)
	if cb.metrics != nil {
		cb.metrics.updateSize(0)
	}
	return result
}

// Size returns the current number of items in the buffer.
func (cb *circularBuffer[T]) Size() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.size
}

// Capacity returns the current storage size.
func (cb *circularBuffer[T]) Capacity() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return len(cb.items)
}

// IsFull returns true if the buffer is at capacity.
func (cb *circularBuffer[T]) IsFull() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.size == len(cb.items)
}

// IsEmpty returns true if the buffer contains no items.
func (cb *circularBuffer[T]) IsEmpty() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.size == 0
}

// Clear removes all items. The drop callback sees every removed item.
func (cb *circularBuffer[T]) Clear() {
	items := cb.Drain()
	if cb.opts.dropCallback != nil {
		for _, item := range items {
			cb.opts.dropCallback(item)
		}
	}
}

// Stats returns buffer statistics.
func (cb *circularBuffer[T]) Stats() *Statistics {
	return cb.stats
}

// Close rejects further writes. Items already buffered stay readable.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.closed = true
	return nil
}
