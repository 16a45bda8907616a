package node

import (
	"fmt"
	"sync"

	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
)

// Source produces values from a zero-input element until the element reports
// it is stopped. A value no successor accepts is kept and production pauses
// until the value is pulled or a reservation on it is consumed.
type Source struct {
	base
	iv       *invoker
	out      *outPort
	priority uint

	mu        sync.Mutex
	cached    any
	hasCached bool
	reserved  bool
	running   bool
	stopped   bool
}

// NewSource creates a source node around bound.
func NewSource(g *flow.Graph, opts Options, bound *element.Bound) (*Source, error) {
	sig := bound.Signature()
	if !element.CanSource(sig) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s cannot back a source: %s", errors.ErrIncompatibleKind, opts.Info.Element, sig),
			"node", "NewSource", "check signature")
	}

	s := &Source{
		base:     newBase(g, opts, Functional),
		priority: opts.Priority,
	}
	s.iv = newInvoker(&s.base, bound, opts)
	s.out = newOutPort(sig.OutputType())
	s.out.get = s.take
	s.outs = []flow.Sender{&storePort{outPort: s.out, Reservable: s}}
	return s, nil
}

// Activate starts production. It is a no-op once the source stopped or while it
// is already running or paused on an undelivered value.
func (s *Source) Activate() {
	s.mu.Lock()
	if s.stopped || s.running || s.hasCached {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.schedule()
}

// Stopped reports whether the element finished.
func (s *Source) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Source) schedule() {
	if !s.graph.SpawnWithSkip(s.priority, s.info.Name, s.step, s.idle) {
		s.idle()
	}
}

// idle lets a later Activate restart production.
func (s *Source) idle() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Source) step() error {
	v, err := s.iv.process(flow.Signal{})
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	// a refused value must be visible to reservations triggered by the refusal
	s.mu.Lock()
	accepted := s.out.succ.Broadcast(v)
	// checked only after the value of this call was delivered
	if s.iv.bound.Stopped() {
		s.stopped = true
	}
	if !accepted {
		s.cached, s.hasCached = v, true
	}
	if s.stopped || !accepted {
		s.running = false
		s.mu.Unlock()
		if s.stopped {
			s.logger.Debug("Source stopped", "calls", s.iv.bound.Calls())
		}
		return nil
	}
	s.mu.Unlock()

	s.schedule()
	return nil
}

// resume restarts production after the cached value left.
func (s *Source) resume() {
	s.mu.Lock()
	if s.stopped || s.running || s.hasCached {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	s.schedule()
}

func (s *Source) take() (any, bool) {
	s.mu.Lock()
	if !s.hasCached || s.reserved {
		s.mu.Unlock()
		return nil, false
	}
	v := s.cached
	s.cached, s.hasCached = nil, false
	s.mu.Unlock()

	s.resume()
	return v, true
}

// TryReserve sets the undelivered value aside for the caller.
func (s *Source) TryReserve() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasCached || s.reserved {
		return nil, false
	}
	s.reserved = true
	return s.cached, true
}

// Release gives the reserved value back.
func (s *Source) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved = false
}

// Consume drops the reserved value and resumes production.
func (s *Source) Consume() {
	s.mu.Lock()
	if !s.reserved {
		s.mu.Unlock()
		return
	}
	s.reserved = false
	s.cached, s.hasCached = nil, false
	s.mu.Unlock()

	s.resume()
}
