package flow

import "sync"

// Receiver is an input port. TryPut never blocks: it returns false when the value
// is refused and the caller keeps ownership of it.
type Receiver interface {
	Type() Type
	TryPut(v any) bool
}

// Sender is an output port. It pushes values to its successors and, when it has
// storage, serves pulls through TryGet.
type Sender interface {
	Type() Type
	AddSuccessor(r Receiver)
	TryGet() (any, bool)
}

// Reservable is implemented by senders with storage. A reservation sets one value
// aside for the caller, which must either Consume or Release it.
type Reservable interface {
	TryReserve() (any, bool)
	Release()
	Consume()
}

// Successors is the fan-out list of a sender. It is safe for concurrent use;
// receivers are called outside its lock.
type Successors struct {
	mu   sync.RWMutex
	list []Receiver
}

// Add appends r.
func (s *Successors) Add(r Receiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, r)
}

// Len returns the number of successors.
func (s *Successors) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

func (s *Successors) snapshot() []Receiver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

// Broadcast offers v to every successor and reports whether any accepted it.
func (s *Successors) Broadcast(v any) bool {
	accepted := false
	for _, r := range s.snapshot() {
		if r.TryPut(v) {
			accepted = true
		}
	}
	return accepted
}

// Offer hands v to the first successor that accepts it.
func (s *Successors) Offer(v any) bool {
	for _, r := range s.snapshot() {
		if r.TryPut(v) {
			return true
		}
	}
	return false
}
