package node

import (
	"fmt"
	"log/slog"

	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/flow"
)

// Kind groups nodes by how they are constructed.
type Kind int

const (
	// Unknown marks nodes created outside the factory, such as view adapters.
	Unknown Kind = iota
	// ServiceIn nodes are typed by an element's input payload.
	ServiceIn
	// ServiceOut nodes are typed by an element's output payload.
	ServiceOut
	// Functional nodes run an element instance.
	Functional
)

func (k Kind) String() string {
	switch k {
	case ServiceIn:
		return "service_in"
	case ServiceOut:
		return "service_out"
	case Functional:
		return "functional"
	default:
		return "unknown"
	}
}

// Info identifies a node within its pipeline.
type Info struct {
	Name    string
	Element string
	Node    string
}

func (i Info) String() string {
	return fmt.Sprintf("%s(%s/%s)", i.Name, i.Element, i.Node)
}

// Node is a vertex of a pipeline graph with a fixed set of typed ports.
type Node interface {
	Kind() Kind
	Info() Info
	Receiver(i int) (flow.Receiver, bool)
	Sender(i int) (flow.Sender, bool)
	// Connect makes s feed receiver port i. It returns false, without side
	// effects, when the payload types differ, i is out of range, the graph is
	// frozen or the port only accepts reservable senders and s is not one.
	Connect(s flow.Sender, i int) bool
}

// Receivable is the input side of a node.
type Receivable interface {
	Receiver(i int) (flow.Receiver, bool)
	Connect(s flow.Sender, i int) bool
}

// Sendable is the output side of a node.
type Sendable interface {
	Sender(i int) (flow.Sender, bool)
}

// Activatable nodes start producing on Activate. Activate schedules work and
// returns immediately.
type Activatable interface {
	Activate()
}

// Putter accepts values from outside the graph. Several values are delivered as
// one tuple, or to one port each for a join.
type Putter interface {
	TryPut(values ...any) bool
}

// Getter serves values from outside the graph.
type Getter interface {
	TryGet() (any, bool)
}

// Put pushes values into n.
func Put(n Node, values ...any) bool {
	if p, ok := n.(Putter); ok {
		return p.TryPut(values...)
	}
	r, ok := n.Receiver(0)
	if !ok {
		return false
	}
	return r.TryPut(element.Pack(values))
}

// Get pulls one value of type T from n. A value of another type is consumed and
// reported as missing.
func Get[T any](n Node) (T, bool) {
	var zero T
	var (
		v  any
		ok bool
	)
	if g, isGetter := n.(Getter); isGetter {
		v, ok = g.TryGet()
	} else if s, hasSender := n.Sender(0); hasSender {
		v, ok = s.TryGet()
	}
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// base carries what every node shares: identity, graph and ports.
type base struct {
	info   Info
	kind   Kind
	graph  *flow.Graph
	logger *slog.Logger
	ins    []*inPort
	outs   []flow.Sender
}

func newBase(g *flow.Graph, opts Options, kind Kind) base {
	return base{
		info:   opts.Info,
		kind:   kind,
		graph:  g,
		logger: g.Logger().With("node", opts.Info.Name, "node_kind", opts.Info.Node),
	}
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Info() Info { return b.info }

func (b *base) Receiver(i int) (flow.Receiver, bool) {
	if i < 0 || i >= len(b.ins) {
		return nil, false
	}
	return b.ins[i], true
}

func (b *base) Sender(i int) (flow.Sender, bool) {
	if i < 0 || i >= len(b.outs) {
		return nil, false
	}
	return b.outs[i], true
}

func (b *base) Connect(s flow.Sender, i int) bool {
	if b.graph.Frozen() || s == nil || i < 0 || i >= len(b.ins) {
		return false
	}
	port := b.ins[i]
	if !s.Type().Equal(port.typ) {
		b.logger.Debug("Connect refused: payload mismatch", "input", i, "want", port.typ.String(), "got", s.Type().String())
		return false
	}
	if port.reserving {
		r, ok := s.(flow.Reservable)
		if !ok {
			b.logger.Debug("Connect refused: sender cannot be reserved", "input", i)
			return false
		}
		port.preds = append(port.preds, r)
	}
	port.connected++
	s.AddSuccessor(port)
	return true
}

// TryPut packs values into one payload for the single input port.
func (b *base) TryPut(values ...any) bool {
	if len(b.ins) != 1 {
		return false
	}
	return b.ins[0].TryPut(element.Pack(values))
}

// TryGet pulls from the first output port.
func (b *base) TryGet() (any, bool) {
	if len(b.outs) == 0 {
		return nil, false
	}
	return b.outs[0].TryGet()
}
