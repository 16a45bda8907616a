package node

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/pkg/buffer"
)

// Join combines one value from each input port into a tuple.
//
// With Queueing every port has a FIFO and a tuple is emitted, atomically, as
// soon as all FIFOs hold a value, so the n-th values of all ports travel
// together. With Reserving the join stores nothing: a put is refused and
// schedules an attempt to reserve one value from a predecessor of every port;
// the reservations are consumed when all succeed and released otherwise.
//
// Tuples no successor accepts are kept for TryGet.
type Join struct {
	base
	policy   JoinPolicy
	priority uint
	out      *outPort

	mu      sync.Mutex
	queues  []buffer.Buffer[any]
	pending buffer.Buffer[any]

	attempts atomic.Int64
}

// NewJoin creates a join whose output payload is the tuple t.
func NewJoin(g *flow.Graph, opts Options, t flow.Type) (*Join, error) {
	if !t.IsTuple() || t.Arity() < 2 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: join %s needs a tuple of at least two, got %s", errors.ErrIncompatibleKind, opts.Info.Name, t),
			"node", "NewJoin", "check payload")
	}

	j := &Join{
		base:     newBase(g, opts, ServiceIn),
		policy:   opts.Policy,
		priority: opts.Priority,
		out:      newOutPort(t),
		pending:  buffer.NewQueue[any](),
	}
	j.out.get = j.takePending
	j.outs = []flow.Sender{j.out}

	for i := 0; i < t.Arity(); i++ {
		port := &inPort{typ: flow.ScalarType(t.Elem(i)), reserving: j.policy == Reserving}
		if j.policy == Reserving {
			port.put = j.refuse
		} else {
			index := i
			port.put = func(v any) bool { return j.enqueue(index, v) }
		}
		j.ins = append(j.ins, port)
		j.queues = append(j.queues, buffer.NewQueue[any]())
	}
	return j, nil
}

// Policy returns the pairing policy.
func (j *Join) Policy() JoinPolicy { return j.policy }

// TryPut delivers one value per input port.
func (j *Join) TryPut(values ...any) bool {
	if len(values) != len(j.ins) {
		return false
	}
	ok := true
	for i, v := range values {
		if !j.ins[i].TryPut(v) {
			ok = false
		}
	}
	return ok
}

func (j *Join) enqueue(i int, v any) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	_ = j.queues[i].Write(v)
	for _, q := range j.queues {
		if q.IsEmpty() {
			return true
		}
	}

	tuple := make(flow.Tuple, len(j.queues))
	for k, q := range j.queues {
		tuple[k], _ = q.Read()
	}
	j.emit(tuple)
	return true
}

// emit runs under j.mu so tuples leave in the order they formed.
func (j *Join) emit(tuple flow.Tuple) {
	if !j.out.succ.Broadcast(tuple) {
		_ = j.pending.Write(tuple)
	}
}

func (j *Join) takePending() (any, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pending.Read()
}

func (j *Join) refuse(any) bool {
	if j.attempts.Add(1) == 1 {
		reset := func() { j.attempts.Store(0) }
		if !j.graph.SpawnWithSkip(j.priority, j.info.Name+"/reserve", j.reserveLoop, reset) {
			reset()
		}
	}
	return false
}

// reserveLoop makes one attempt per refused put, including puts that arrive
// while it runs.
func (j *Join) reserveLoop() error {
	n := j.attempts.Load()
	for n > 0 {
		for i := int64(0); i < n; i++ {
			if !j.reserveAll() {
				break
			}
		}
		n = j.attempts.Add(-n)
	}
	return nil
}

func (j *Join) reserveAll() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	tuple := make(flow.Tuple, len(j.ins))
	held := make([]flow.Reservable, 0, len(j.ins))
	for i, port := range j.ins {
		reserved := false
		for _, pred := range port.preds {
			if v, ok := pred.TryReserve(); ok {
				tuple[i] = v
				held = append(held, pred)
				reserved = true
				break
			}
		}
		if !reserved {
			for _, h := range held {
				h.Release()
			}
			return false
		}
	}

	for _, h := range held {
		h.Consume()
	}
	j.emit(tuple)
	return true
}
