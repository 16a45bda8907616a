package node

import (
	"fmt"
	"strings"

	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/metric"
)

// JoinPolicy selects how a join pairs its inputs.
type JoinPolicy int

const (
	// Queueing keeps a FIFO per port and pairs values in arrival order.
	Queueing JoinPolicy = iota
	// Reserving stores nothing and pulls one value from every port's
	// predecessors once all of them can supply one.
	Reserving
)

func (p JoinPolicy) String() string {
	if p == Reserving {
		return "reserving"
	}
	return "queueing"
}

// ParsePolicy reads a policy name; the empty string is Queueing.
func ParsePolicy(s string) (JoinPolicy, error) {
	switch strings.ToLower(s) {
	case "", "queueing":
		return Queueing, nil
	case "reserving":
		return Reserving, nil
	}
	return Queueing, errors.WrapInvalid(
		fmt.Errorf("%w: unknown join policy %q", errors.ErrInvalidConfig, s), "node", "ParsePolicy", "read policy")
}

// FrameHook drives a frame counter around element invocations. NewFrame selects
// which side of the counter it advances.
type FrameHook struct {
	Counter  metric.FrameCounter
	NewFrame bool
}

func (h *FrameHook) fire() {
	if h == nil || h.Counter == nil {
		return
	}
	if h.NewFrame {
		h.Counter.NewFrame()
		return
	}
	h.Counter.FrameProcessed()
}

// Options configures a node at construction.
type Options struct {
	Info Info
	// Kind applies to service nodes that exist on both sides (broadcast, buffer,
	// overwrite, queue); other constructors fix their kind.
	Kind Kind
	// Concurrency bounds in-flight invocations of a function node; 0 is unbounded.
	Concurrency uint
	// Priority orders the node's tasks in the graph; higher runs first.
	Priority uint
	Policy   JoinPolicy
	Before   *FrameHook
	After    *FrameHook
}
