package node

import "github.com/c360/flowpipe/flow"

type inPort struct {
	typ       flow.Type
	put       func(v any) bool
	reserving bool
	preds     []flow.Reservable
	connected int
}

func (p *inPort) Type() flow.Type { return p.typ }

// TryPut refuses values that do not match the port type.
func (p *inPort) TryPut(v any) bool {
	if !p.typ.Accepts(v) {
		return false
	}
	return p.put(v)
}

type outPort struct {
	typ  flow.Type
	succ flow.Successors
	get  func() (any, bool)
}

func newOutPort(typ flow.Type) *outPort {
	return &outPort{typ: typ}
}

func (p *outPort) Type() flow.Type { return p.typ }

func (p *outPort) AddSuccessor(r flow.Receiver) { p.succ.Add(r) }

func (p *outPort) TryGet() (any, bool) {
	if p.get == nil {
		return nil, false
	}
	return p.get()
}

// storePort is the sender of a node with storage; reservations go to the store.
type storePort struct {
	*outPort
	flow.Reservable
}
