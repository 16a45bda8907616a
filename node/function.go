package node

import (
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/pkg/buffer"
)

// Function runs its element once per input value and broadcasts the result.
// At most Concurrency invocations run at a time; further inputs wait in an
// unbounded FIFO. Inputs are refused only while the graph is failed. It keeps
// no output, so TryGet on it always fails.
type Function struct {
	base
	iv       *invoker
	priority uint
	multi    bool
	ports    []*outPort

	mu        sync.Mutex
	sem       *semaphore.Weighted // nil: unbounded
	backlog   buffer.Buffer[any]
	scheduled int // tasks spawned that have not taken an input yet
}

// NewFunction creates a function node around bound.
func NewFunction(g *flow.Graph, opts Options, bound *element.Bound) (*Function, error) {
	if !element.CanFunction(bound.Signature()) {
		return nil, incompatible("NewFunction", "a function", opts, bound)
	}
	return newFunction(g, opts, bound, false)
}

// NewMultifunction creates a node that forwards each present optional result
// of bound on its own output port.
func NewMultifunction(g *flow.Graph, opts Options, bound *element.Bound) (*Function, error) {
	if !element.CanMultifunction(bound.Signature()) {
		return nil, incompatible("NewMultifunction", "a multifunction", opts, bound)
	}
	return newFunction(g, opts, bound, true)
}

func newFunction(g *flow.Graph, opts Options, bound *element.Bound, multi bool) (*Function, error) {
	sig := bound.Signature()
	f := &Function{
		base:     newBase(g, opts, Functional),
		priority: opts.Priority,
		multi:    multi,
		backlog:  buffer.NewQueue[any](),
	}
	f.iv = newInvoker(&f.base, bound, opts)
	if opts.Concurrency > 0 {
		f.sem = semaphore.NewWeighted(int64(opts.Concurrency))
	}

	f.ins = []*inPort{{typ: sig.InputType(), put: f.put}}
	if multi {
		for _, t := range sig.OutputPortTypes() {
			f.ports = append(f.ports, newOutPort(t))
		}
	} else {
		f.ports = []*outPort{newOutPort(sig.OutputType())}
	}
	for _, p := range f.ports {
		f.outs = append(f.outs, p)
	}
	return f, nil
}

func incompatible(op, what string, opts Options, bound *element.Bound) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: element %s cannot back %s node %s: %s",
			errors.ErrIncompatibleKind, opts.Info.Element, what, opts.Info.Node, bound.Signature()),
		"node", op, "check signature")
}

func (f *Function) put(v any) bool {
	if f.sem == nil {
		return f.graph.Spawn(f.priority, f.info.Name, func() error {
			return f.process(v)
		})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.graph.Failed() {
		return false
	}
	// every input passes the backlog so arrival order holds
	_ = f.backlog.Write(v)
	f.drain()
	return true
}

// drain schedules one task per queued input while permits are free. Each task
// takes the oldest input when it starts, so a skipped task leaves its input at
// the head of the backlog for the next drain. Called with f.mu held.
func (f *Function) drain() {
	for f.backlog.Size() > f.scheduled && f.sem.TryAcquire(1) {
		if !f.graph.SpawnWithSkip(f.priority, f.info.Name, f.runNext, f.skip) {
			f.sem.Release(1)
			return
		}
		f.scheduled++
	}
}

func (f *Function) runNext() error {
	f.mu.Lock()
	f.scheduled--
	v, ok := f.backlog.Read()
	f.mu.Unlock()

	var err error
	if ok {
		err = f.process(v)
	}

	f.mu.Lock()
	f.sem.Release(1)
	f.drain()
	f.mu.Unlock()
	return err
}

// skip returns the permit of a task the failed graph never ran.
func (f *Function) skip() {
	f.mu.Lock()
	f.scheduled--
	f.sem.Release(1)
	f.mu.Unlock()
}

func (f *Function) process(v any) error {
	if !f.multi {
		out, err := f.iv.process(v)
		if err != nil {
			return err
		}
		f.ports[0].succ.Broadcast(out)
		return nil
	}

	outs, err := f.iv.invoke(v)
	if err != nil {
		return err
	}
	for i, o := range outs {
		if val, ok := element.Unwrap(o); ok {
			f.ports[i].succ.Broadcast(val)
		}
	}
	return nil
}

// Waiting returns the number of inputs not yet handed to the element. Inputs
// queued when the graph failed stay here and resume with the next put.
func (f *Function) Waiting() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backlog.Size()
}

// Continue runs a zero-input element once all of its predecessors signalled.
type Continue struct {
	*Function

	mu       sync.Mutex
	received int
}

// NewContinue creates a continue node around bound.
func NewContinue(g *flow.Graph, opts Options, bound *element.Bound) (*Continue, error) {
	if !element.CanContinue(bound.Signature()) {
		return nil, incompatible("NewContinue", "a continue", opts, bound)
	}
	f, err := newFunction(g, opts, bound, false)
	if err != nil {
		return nil, err
	}
	c := &Continue{Function: f}
	f.ins[0].put = c.signal
	return c, nil
}

func (c *Continue) signal(v any) bool {
	c.mu.Lock()
	c.received++
	want := c.ins[0].connected
	if want < 1 {
		want = 1
	}
	if c.received < want {
		c.mu.Unlock()
		return true
	}
	c.received = 0
	c.mu.Unlock()

	return c.put(v)
}
