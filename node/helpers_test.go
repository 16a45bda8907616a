package node

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/flow"
)

type collector struct {
	typ    flow.Type
	refuse atomic.Bool

	mu     sync.Mutex
	values []any
}

func newCollector(typ flow.Type) *collector {
	return &collector{typ: typ}
}

func (c *collector) Type() flow.Type { return c.typ }

func (c *collector) TryPut(v any) bool {
	if c.refuse.Load() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
	return true
}

func (c *collector) Values() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.values...)
}

func attach(t *testing.T, n Node, port int, r flow.Receiver) {
	t.Helper()
	s, ok := n.Sender(port)
	require.True(t, ok)
	s.AddSuccessor(r)
}

func sender(t *testing.T, n Node, port int) flow.Sender {
	t.Helper()
	s, ok := n.Sender(port)
	require.True(t, ok)
	return s
}

func newGraph(t *testing.T, opts ...flow.GraphOption) *flow.Graph {
	t.Helper()
	g := flow.NewGraph(opts...)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func bind(t *testing.T, e any) *element.Bound {
	t.Helper()
	b, err := element.Bind(e)
	require.NoError(t, err)
	return b
}

func named(name string) Options {
	return Options{Info: Info{Name: name}}
}

// countdown emits 1, 2, ... and stops after limit values.
type countdown struct {
	n, limit int
}

func (c *countdown) Process() int {
	c.n++
	return c.n
}

func (c *countdown) IsStopped() bool { return c.n >= c.limit }

type router struct{}

func (router) Process(v int) (element.Optional[int], element.Optional[string]) {
	if v%2 == 0 {
		return element.Some(v), element.None[string]()
	}
	return element.None[int](), element.Some("odd")
}

type evens struct{}

func (evens) Process(v int) element.Optional[int] {
	if v%2 == 0 {
		return element.Some(v)
	}
	return element.None[int]()
}

type maybe struct{}

func (maybe) Process() element.Optional[int] { return element.Some(1) }

type ticker struct {
	n atomic.Int64
}

func (t *ticker) Process() { t.n.Add(1) }

type sink struct{}

func (sink) Process(int) {}

type failing struct{}

func (failing) Process() (int, error) { return 0, stderrors.New("sensor offline") }
