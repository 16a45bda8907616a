package node

import (
	"fmt"
	"sync"

	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/pkg/buffer"
)

// Split forwards entry i of each incoming tuple on output port i.
type Split struct {
	base
	ports []*outPort
}

// NewSplit creates a split of the tuple t.
func NewSplit(g *flow.Graph, opts Options, t flow.Type) (*Split, error) {
	if !t.IsTuple() || t.Arity() < 2 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: split %s needs a tuple of at least two, got %s", errors.ErrIncompatibleKind, opts.Info.Name, t),
			"node", "NewSplit", "check payload")
	}

	s := &Split{base: newBase(g, opts, ServiceOut)}
	s.ins = []*inPort{{typ: t, put: s.put}}
	for i := 0; i < t.Arity(); i++ {
		p := newOutPort(flow.ScalarType(t.Elem(i)))
		s.ports = append(s.ports, p)
		s.outs = append(s.outs, p)
	}
	return s, nil
}

func (s *Split) put(v any) bool {
	tuple := v.(flow.Tuple)
	for i, p := range s.ports {
		p.succ.Broadcast(tuple[i])
	}
	return true
}

// Broadcast passes every value to all successors and keeps nothing.
type Broadcast struct {
	base
	out *outPort
}

// NewBroadcast creates a broadcast of t.
func NewBroadcast(g *flow.Graph, opts Options, t flow.Type) *Broadcast {
	b := &Broadcast{base: newBase(g, opts, opts.Kind), out: newOutPort(t)}
	b.ins = []*inPort{{typ: t, put: b.put}}
	b.outs = []flow.Sender{b.out}
	return b
}

func (b *Broadcast) put(v any) bool {
	b.out.succ.Broadcast(v)
	return true
}

// Buffer hands each value to one successor and keeps what nobody accepts.
// Kept values are served newest first by a Buffer and oldest first by a Queue.
type Buffer struct {
	base
	out  *outPort
	fifo bool

	mu          sync.Mutex
	items       buffer.Buffer[any]
	reserved    any
	hasReserved bool
}

// NewBuffer creates a newest-first buffer of t.
func NewBuffer(g *flow.Graph, opts Options, t flow.Type) *Buffer {
	return newBuffer(g, opts, t, false)
}

// NewQueue creates an oldest-first buffer of t.
func NewQueue(g *flow.Graph, opts Options, t flow.Type) *Buffer {
	return newBuffer(g, opts, t, true)
}

func newBuffer(g *flow.Graph, opts Options, t flow.Type, fifo bool) *Buffer {
	b := &Buffer{
		base:  newBase(g, opts, opts.Kind),
		out:   newOutPort(t),
		fifo:  fifo,
		items: newStore(g, opts),
	}
	b.out.get = b.take
	b.ins = []*inPort{{typ: t, put: b.put}}
	b.outs = []flow.Sender{&storePort{outPort: b.out, Reservable: b}}
	return b
}

// newStore returns an unbounded store, observed when the graph exports metrics.
func newStore(g *flow.Graph, opts Options) buffer.Buffer[any] {
	if g.Metrics() == nil {
		return buffer.NewQueue[any]()
	}
	name := g.ID()
	if len(name) > 8 {
		name = name[:8]
	}
	store, err := buffer.NewCircularBuffer[any](16,
		buffer.WithOverflowPolicy[any](buffer.Grow),
		buffer.WithMetrics[any](g.Metrics(), name+"/"+opts.Info.Name))
	if err != nil {
		g.Logger().Warn("buffer metrics unavailable", "node", opts.Info.Name, "error", err)
		return buffer.NewQueue[any]()
	}
	return store
}

func (b *Buffer) put(v any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.items.Write(v)
	for {
		next, ok := b.peek()
		if !ok || !b.out.succ.Offer(next) {
			return true
		}
		b.read()
	}
}

func (b *Buffer) peek() (any, bool) {
	if b.fifo {
		return b.items.Peek()
	}
	return b.items.PeekNewest()
}

func (b *Buffer) read() (any, bool) {
	if b.fifo {
		return b.items.Read()
	}
	return b.items.ReadNewest()
}

func (b *Buffer) take() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read()
}

// Len returns the number of kept values, excluding a reserved one.
func (b *Buffer) Len() int {
	return b.items.Size()
}

// TryReserve sets the next value aside for the caller.
func (b *Buffer) TryReserve() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasReserved {
		return nil, false
	}
	v, ok := b.read()
	if !ok {
		return nil, false
	}
	b.reserved, b.hasReserved = v, true
	return v, true
}

// Release puts the reserved value back where it was taken from.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasReserved {
		return
	}
	v := b.reserved
	b.reserved, b.hasReserved = nil, false

	if !b.fifo {
		_ = b.items.Write(v)
		return
	}
	rest := b.items.Drain()
	_ = b.items.Write(v)
	for _, item := range rest {
		_ = b.items.Write(item)
	}
}

// Consume drops the reserved value.
func (b *Buffer) Consume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reserved, b.hasReserved = nil, false
}

// Overwrite holds the latest value. Every put replaces it and is passed to all
// successors; TryGet returns it without removing it.
type Overwrite struct {
	base
	out *outPort

	mu       sync.Mutex
	value    any
	has      bool
	reserved bool
}

// NewOverwrite creates an overwrite node of t.
func NewOverwrite(g *flow.Graph, opts Options, t flow.Type) *Overwrite {
	o := &Overwrite{base: newBase(g, opts, opts.Kind), out: newOutPort(t)}
	o.out.get = o.peek
	o.ins = []*inPort{{typ: t, put: o.put}}
	o.outs = []flow.Sender{&storePort{outPort: o.out, Reservable: o}}
	return o
}

func (o *Overwrite) put(v any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value, o.has = v, true
	o.out.succ.Broadcast(v)
	return true
}

func (o *Overwrite) peek() (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value, o.has
}

// Clear forgets the held value.
func (o *Overwrite) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value, o.has = nil, false
}

// TryReserve returns the held value; it stays held.
func (o *Overwrite) TryReserve() (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.has || o.reserved {
		return nil, false
	}
	o.reserved = true
	return o.value, true
}

// Release ends the reservation.
func (o *Overwrite) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reserved = false
}

// Consume ends the reservation; the value is kept.
func (o *Overwrite) Consume() {
	o.Release()
}
