// Package buffer provides generic, thread-safe buffers used as node storage.
//
// This package offers:
//   - CircularBuffer: ring buffer with configurable overflow policies
//   - DropOldest and DropNewest for bounded retention, Grow for unbounded queues
//   - Access from both ends so a buffer can serve FIFO and most-recent-first reads
//   - Statistics always enabled, optional Prometheus metrics via WithMetrics()
//
// Buffers never block: a full bounded buffer drops according to its policy.
package buffer

// Buffer represents a generic buffer interface that all buffer implementations must satisfy.
type Buffer[T any] interface {
	// Write adds an item at the newest end. A full buffer applies its overflow policy.
	Write(item T) error

	// Read removes and returns the oldest item.
	Read() (T, bool)

	// ReadNewest removes and returns the most recently written item.
	ReadNewest() (T, bool)

	// Peek returns the oldest item without removing it.
	Peek() (T, bool)

	// PeekNewest returns the most recently written item without removing it.
	PeekNewest() (T, bool)

	// Drain removes and returns all items, oldest first.
	Drain() []T

	// Size returns the current number of items in the buffer.
	Size() int

	// Capacity returns the number of items the buffer can hold before overflowing
	// or, for Grow, before its storage is enlarged.
	Capacity() int

	// IsFull returns true if the buffer is at capacity.
	IsFull() bool

	// IsEmpty returns true if the buffer contains no items.
	IsEmpty() bool

	// Clear removes all items from the buffer.
	Clear()

	// Stats returns buffer statistics.
	Stats() *Statistics

	// Close rejects further writes.
	Close() error
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest

	// Grow doubles the storage so no item is ever dropped.
	Grow
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	case Grow:
		return "Grow"
	default:
		return "Unknown"
	}
}

// DropCallback is called when an item is dropped due to overflow policy.
type DropCallback[T any] func(item T)

// NewCircularBuffer creates a new circular buffer with the specified capacity and options.
// Returns an error if metrics registration fails when metrics are requested.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) (Buffer[T], error) {
	opts := applyOptions(options...)
	return newCircularBuffer(capacity, opts)
}

// NewQueue creates an unbounded FIFO buffer. It cannot fail because it never registers metrics.
func NewQueue[T any]() Buffer[T] {
	cb, _ := newCircularBuffer(16, applyOptions(WithOverflowPolicy[T](Grow)))
	return cb
}
