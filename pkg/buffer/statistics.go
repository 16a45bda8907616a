package buffer

import (
	"sync"
	"sync/atomic"
)

// Statistics tracks buffer activity.
type Statistics struct {
	writes int64
	reads  int64
	peeks  int64
	drops  int64
	grows  int64

	mu          sync.RWMutex
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Write records a buffer write operation.
func (s *Statistics) Write() { atomic.AddInt64(&s.writes, 1) }

// Read records a buffer read operation.
func (s *Statistics) Read() { atomic.AddInt64(&s.reads, 1) }

// Peek records a buffer peek operation.
func (s *Statistics) Peek() { atomic.AddInt64(&s.peeks, 1) }

// Drop records an item dropped by the overflow policy.
func (s *Statistics) Drop() { atomic.AddInt64(&s.drops, 1) }

// Grow records a storage enlargement.
func (s *Statistics) Grow() { atomic.AddInt64(&s.grows, 1) }

// UpdateSize updates the current buffer size.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Writes returns the total number of write operations.
func (s *Statistics) Writes() int64 { return atomic.LoadInt64(&s.writes) }

// Reads returns the total number of read operations.
func (s *Statistics) Reads() int64 { return atomic.LoadInt64(&s.reads) }

// Peeks returns the total number of peek operations.
func (s *Statistics) Peeks() int64 { return atomic.LoadInt64(&s.peeks) }

// Drops returns the total number of dropped items.
func (s *Statistics) Drops() int64 { return atomic.LoadInt64(&s.drops) }

// Grows returns how many times the storage was enlarged.
func (s *Statistics) Grows() int64 { return atomic.LoadInt64(&s.grows) }

// CurrentSize returns the current number of items in the buffer.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the maximum number of items the buffer has held.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// StatsSummary is a snapshot of all statistics.
type StatsSummary struct {
	Writes      int64 `json:"writes"`
	Reads       int64 `json:"reads"`
	Peeks       int64 `json:"peeks"`
	Drops       int64 `json:"drops"`
	Grows       int64 `json:"grows"`
	CurrentSize int64 `json:"current_size"`
	MaxSize     int64 `json:"max_size"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:      s.Writes(),
		Reads:       s.Reads(),
		Peeks:       s.Peeks(),
		Drops:       s.Drops(),
		Grows:       s.Grows(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
	}
}
