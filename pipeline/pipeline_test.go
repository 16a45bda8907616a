package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/flowgraph"
	"github.com/c360/flowpipe/metric"
	"github.com/c360/flowpipe/node"
	"github.com/c360/flowpipe/registry"
	"github.com/c360/flowpipe/view"
)

// once emits its value a single time.
type once struct {
	value int
	calls int
}

func (o *once) Process() int {
	o.calls++
	return o.value
}

func (o *once) IsStopped() bool { return o.calls >= 1 }

type pass struct{}

func (pass) Process(v int) int { return v }

type hundredth struct{}

func (hundredth) Process(v int) float64 { return float64(v) / 100.0 }

type sum struct{}

func (sum) Process(a int, b float64) float64 { return float64(a) + b }

type sink struct {
	mu  sync.Mutex
	got []float64
}

func (s *sink) Process(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, v)
}

func (s *sink) values() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.got...)
}

type divide struct{}

func (divide) Process(v int) (int, error) {
	if v == 0 {
		return 0, stderrors.New("division by zero")
	}
	return 100 / v, nil
}

type positive struct{}

func (positive) Process(v int) element.Optional[int] {
	if v > 0 {
		return element.Some(v)
	}
	return element.None[int]()
}

type described struct{}

func (described) Process(v int) int { return v }

func (described) Describe() []string { return []string{"passes integers through"} }

func newFactory(t *testing.T, out *sink) *registry.Factory {
	t.Helper()
	f := registry.New()
	RegisterDefaults(f, nil)

	require.NoError(t, RegisterElement(f, "ten", func(config.Tree) (*once, error) { return &once{value: 10}, nil }))
	require.NoError(t, RegisterElement(f, "zero", func(config.Tree) (*once, error) { return &once{}, nil }))
	require.NoError(t, RegisterElement(f, "pass", func(config.Tree) (pass, error) { return pass{}, nil }))
	require.NoError(t, RegisterElement(f, "hundredth", func(config.Tree) (hundredth, error) { return hundredth{}, nil }))
	require.NoError(t, RegisterElement(f, "sum", func(config.Tree) (sum, error) { return sum{}, nil }))
	require.NoError(t, RegisterElement(f, "divide", func(config.Tree) (divide, error) { return divide{}, nil }))
	require.NoError(t, RegisterElement(f, "positive", func(config.Tree) (positive, error) { return positive{}, nil }))
	require.NoError(t, RegisterElement(f, "sink", func(config.Tree) (*sink, error) { return out, nil }))
	return f
}

func n(name, elem, kind string) map[string]any {
	return map[string]any{"name": name, "element": elem, "node": kind}
}

func c(from, to string, ports ...int) map[string]any {
	conn := map[string]any{"from": from, "to": to}
	if len(ports) > 0 {
		conn["output"] = ports[0]
	}
	if len(ports) > 1 {
		conn["input"] = ports[1]
	}
	return conn
}

func scenario() config.Tree {
	return config.Tree{
		"autostart": true,
		"nodes": []any{
			n("A", "ten", KindSource),
			n("Bc", "ten", KindBroadcastOut),
			n("B", "pass", KindFunction),
			n("C", "hundredth", KindFunction),
			n("J", "sum", KindJoin),
			n("D", "sum", KindFunction),
			n("E", "sink", KindFunction),
		},
		"connections": []any{
			c("A", "Bc"),
			c("Bc", "B"),
			c("Bc", "C"),
			c("B", "J", 0, 0),
			c("C", "J", 0, 1),
			c("J", "D"),
			c("D", "E"),
		},
	}
}

func TestMake_Scenario(t *testing.T) {
	out := &sink{}
	f := newFactory(t, out)

	p, err := Make(scenario(), f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, Ready, p.State())
	assert.Equal(t, []string{"A", "Bc", "B", "C", "J", "D", "E"}, p.Nodes())
	assert.NotEmpty(t, p.ID())
	assert.True(t, p.Graph().Frozen())

	code, err := p.Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []float64{10.1}, out.values())
	assert.Equal(t, Ready, p.State())

	j, ok := p.Node("J")
	require.True(t, ok)
	assert.Equal(t, node.ServiceIn, j.Kind())
	bc, _ := p.Node("Bc")
	assert.Equal(t, node.ServiceOut, bc.Kind())

	result, err := p.Analyze()
	require.NoError(t, err)
	assert.Equal(t, flowgraph.StatusHealthy, result.ValidationStatus)
	assert.Len(t, result.ConnectedComponents, 1)
}

func TestMake_WithoutAutostart(t *testing.T) {
	out := &sink{}
	cfg := scenario()
	cfg["autostart"] = false

	p, err := Make(cfg, newFactory(t, out))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	code, err := p.Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Empty(t, out.values())

	p.Activate()
	require.NoError(t, p.WaitForAll())
	assert.Equal(t, []float64{10.1}, out.values())
}

type spyNode struct {
	node.Node
	connects *atomic.Int32
}

func (s spyNode) Connect(snd flow.Sender, i int) bool {
	s.connects.Add(1)
	return s.Node.Connect(snd, i)
}

func TestMake_MissingNodeIsAtomic(t *testing.T) {
	f := newFactory(t, &sink{})
	var connects atomic.Int32
	registry.Register(f, "spy", node.Functional)
	registry.Register[FunctionalConstructor](f, "spy", func(g *flow.Graph, o node.Options, b *element.Bound) (node.Node, error) {
		fn, err := node.NewFunction(g, o, b)
		if err != nil {
			return nil, err
		}
		return spyNode{Node: fn, connects: &connects}, nil
	})

	p, err := Make(config.Tree{
		"nodes": []any{n("A", "ten", KindSource), n("B", "pass", "spy")},
		"connections": []any{
			c("A", "B"),
			c("missing", "B"),
		},
	}, f)

	require.Error(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, errors.ErrBuildPipeline)
	assert.ErrorIs(t, err, errors.ErrNodeNotFound)
	assert.Contains(t, err.Error(), "can't find node missing")
	assert.Equal(t, int32(0), connects.Load())
}

func TestMake_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Tree
		want    error
		message string
	}{
		{
			name: "duplicate node name",
			cfg:  config.Tree{"nodes": []any{n("A", "pass", KindFunction), n("A", "pass", KindFunction)}},
			want: errors.ErrDuplicateNode,
		},
		{
			name: "unknown element",
			cfg:  config.Tree{"nodes": []any{n("A", "nope", KindFunction)}},
			want: errors.ErrNotRegistered,
		},
		{
			name: "unknown node kind",
			cfg:  config.Tree{"nodes": []any{n("A", "pass", "teleport")}},
			want: errors.ErrNotRegistered,
		},
		{
			name:    "element cannot back the kind",
			cfg:     config.Tree{"nodes": []any{n("A", "pass", KindSource)}},
			want:    errors.ErrIncompatibleKind,
			message: "element pass",
		},
		{
			name:    "optional result on a function node",
			cfg:     config.Tree{"nodes": []any{n("P", "positive", KindFunction)}},
			want:    errors.ErrIncompatibleKind,
			message: "element positive",
		},
		{
			name: "missing sender",
			cfg: config.Tree{
				"nodes":       []any{n("A", "ten", KindSource), n("B", "pass", KindFunction)},
				"connections": []any{c("A", "B", 3)},
			},
			want:    errors.ErrSenderNotFound,
			message: "no sender with index 3 on node A",
		},
		{
			name: "payload mismatch",
			cfg: config.Tree{
				"nodes":       []any{n("A", "ten", KindSource), n("E", "sink", KindFunction)},
				"connections": []any{c("A", "E")},
			},
			want:    errors.ErrConnect,
			message: "can't connect output 0 of A with input 0 of E",
		},
		{
			name: "unknown graph type",
			cfg:  config.Tree{"graph": map[string]any{"type": "gpu"}, "nodes": []any{}},
			want: errors.ErrNotRegistered,
		},
		{
			name: "schema violation",
			cfg:  config.Tree{"nodes": []any{map[string]any{"element": "pass", "node": KindFunction}}},
			want: errors.ErrInvalidConfig,
		},
		{
			name: "bad policy",
			cfg: config.Tree{"nodes": []any{map[string]any{
				"name": "J", "element": "sum", "node": KindJoin, "policy": "tagged",
			}}},
			want: errors.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Make(tt.cfg, newFactory(t, &sink{}))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, errors.ErrBuildPipeline)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errors.IsInvalid(err))
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestMake_RejectsMalformedPortIndex(t *testing.T) {
	for _, bad := range []any{-1, 1.5, "first"} {
		cfg := config.Tree{
			"nodes":       []any{n("A", "ten", KindSource), n("B", "pass", KindFunction)},
			"connections": []any{map[string]any{"from": "A", "to": "B", "output": bad}},
		}
		p, err := Make(cfg, newFactory(t, &sink{}), WithoutValidation())
		require.Error(t, err, "output %v", bad)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, errors.ErrBuildPipeline)
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	}
}

func TestMake_ElementErrorCarriesNodeName(t *testing.T) {
	f := newFactory(t, &sink{})
	p, err := Make(config.Tree{
		"autostart":   true,
		"graph":       map[string]any{"type": "serial"},
		"nodes":       []any{n("Z", "zero", KindSource), n("D", "divide", KindFunction)},
		"connections": []any{c("Z", "D")},
	}, f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	assert.Equal(t, 1, p.Graph().Workers())

	code, err := p.Exec(context.Background())
	assert.Equal(t, 1, code)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrElementFailed)
	name, ok := errors.NodeName(err)
	assert.True(t, ok)
	assert.Equal(t, "D", name)
	assert.Equal(t, Failed, p.State())
}

func TestMake_ReservingJoin(t *testing.T) {
	out := &sink{}
	f := newFactory(t, out)
	join := n("J", "sum", KindJoin)
	join["policy"] = "reserving"

	p, err := Make(config.Tree{
		"autostart": true,
		"nodes": []any{
			n("A", "ten", KindSource),
			n("Bc", "ten", KindBroadcastOut),
			n("B", "pass", KindFunction),
			n("C", "hundredth", KindFunction),
			n("QB", "pass", KindQueueOut),
			n("QC", "hundredth", KindQueueOut),
			join,
			n("D", "sum", KindFunction),
			n("E", "sink", KindFunction),
		},
		"connections": []any{
			c("A", "Bc"), c("Bc", "B"), c("Bc", "C"),
			c("B", "QB"), c("C", "QC"),
			c("QB", "J", 0, 0), c("QC", "J", 0, 1),
			c("J", "D"), c("D", "E"),
		},
	}, f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	_, err = p.Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{10.1}, out.values())
}

func TestMake_ReservingJoinRejectsBroadcast(t *testing.T) {
	join := n("J", "sum", KindJoin)
	join["policy"] = "reserving"

	_, err := Make(config.Tree{
		"nodes":       []any{n("A", "ten", KindSource), n("B", "pass", KindFunction), join},
		"connections": []any{c("B", "J", 0, 0)},
	}, newFactory(t, &sink{}))
	assert.ErrorIs(t, err, errors.ErrConnect)
}

func TestMake_FrameCounters(t *testing.T) {
	out := &sink{}
	f := newFactory(t, out)
	cfg := scenario()
	nodes := cfg["nodes"].([]any)
	nodes[5] = map[string]any{
		"name": "D", "element": "sum", "node": KindFunction,
		"node_counters": map[string]any{
			"before": map[string]any{"name": "sum", "type": true},
			"after":  map[string]any{"name": "sum", "type": false},
		},
	}

	p, err := Make(cfg, f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	_, err = p.Exec(context.Background())
	require.NoError(t, err)

	create, ok := registry.Lookup[CounterConstructor](f, CounterKey)
	require.True(t, ok)
	counter := create("sum").(*metric.Counter)
	assert.Equal(t, int64(1), counter.Started())
	assert.Equal(t, int64(1), counter.Processed())
}

type tagged struct{ id int }

func (t *tagged) Process(v int) int { return v + t.id }

func TestRegisterElement_FirstWins(t *testing.T) {
	f := registry.New()
	RegisterDefaults(f, nil)

	require.NoError(t, RegisterElement(f, "X", func(config.Tree) (*tagged, error) { return &tagged{id: 1}, nil }))
	require.NoError(t, RegisterElement(f, "X", func(config.Tree) (*tagged, error) { return &tagged{id: 2}, nil }))
	require.NoError(t, RegisterElement(f, "X", func(config.Tree) (pass, error) { return pass{}, nil }))

	for i := 0; i < 3; i++ {
		e, err := CreateElement[*tagged](f, "X", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, e.id)
	}
	_, err := CreateElement[pass](f, "X", nil)
	assert.ErrorIs(t, err, errors.ErrNotRegistered)
}

func TestRegisterElement_Metadata(t *testing.T) {
	f := registry.New()
	require.NoError(t, RegisterElement(f, "described", func(config.Tree) (described, error) { return described{}, nil }))
	require.NoError(t, RegisterElement(f, "sum", func(config.Tree) (sum, error) { return sum{}, nil }))

	desc, ok := registry.Lookup[Description](f, "described")
	require.True(t, ok)
	assert.Equal(t, Description{"passes integers through"}, desc)
	assert.False(t, registry.Has[Description](f, "sum"))

	sig, ok := registry.Lookup[element.Signature](f, "sum")
	require.True(t, ok)
	assert.True(t, element.CanJoin(sig))

	err := RegisterElement(f, "broken", func(config.Tree) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, errors.ErrInvalidElement)
}

type halfView struct {
	frames [][]any
	seen   []view.Frame
}

func (h *halfView) Next(context.Context) ([]any, bool, error) {
	if len(h.frames) == 0 {
		return nil, true, nil
	}
	next := h.frames[0]
	h.frames = h.frames[1:]
	return next, false, nil
}

func (h *halfView) Handle(_ context.Context, f view.Frame) error {
	h.seen = append(h.seen, f)
	return nil
}

func TestMakeView(t *testing.T) {
	f := newFactory(t, &sink{})
	h := &halfView{frames: [][]any{{250}, {7}}}
	registry.Register[view.Constructor](f, "script", func(_ config.Tree, g *flow.Graph) (*view.View, error) {
		return view.New(g, []flow.Type{flow.TypeOf[float64]()}, []flow.Type{flow.TypeOf[int]()}, h), nil
	})

	cfg := config.Tree{
		"type":  TypeView,
		"nodes": []any{n("H", "hundredth", KindFunction)},
		"view": map[string]any{
			"type":    "script",
			"inputs":  []any{map[string]any{"from": "H", "input": 0}},
			"outputs": []any{map[string]any{"to": "H", "output": 0}},
		},
	}

	r, err := Build(cfg, f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	require.IsType(t, &ViewPipeline{}, r)

	code, err := r.Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	require.Len(t, h.seen, 2)
	assert.Equal(t, []any{2.5}, h.seen[0].Values[0])
	assert.Equal(t, []any{0.07}, h.seen[1].Values[0])
}

func TestMakeView_Errors(t *testing.T) {
	f := newFactory(t, &sink{})
	base := func() config.Tree {
		return config.Tree{"type": TypeView, "nodes": []any{n("H", "hundredth", KindFunction)}}
	}

	_, err := MakeView(base(), f)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)

	cfg := base()
	cfg["view"] = map[string]any{"type": "hologram"}
	_, err = MakeView(cfg, f)
	assert.ErrorIs(t, err, errors.ErrNotRegistered)

	registry.Register[view.Constructor](f, "empty", func(_ config.Tree, g *flow.Graph) (*view.View, error) {
		return view.New(g, nil, nil, &halfView{}), nil
	})
	cfg = base()
	cfg["view"] = map[string]any{"type": "empty", "inputs": []any{map[string]any{"from": "ghost", "input": 0}}}
	_, err = MakeView(cfg, f)
	assert.ErrorIs(t, err, errors.ErrBuildPipeline)
	assert.ErrorIs(t, err, errors.ErrNodeNotFound)
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := Build(config.Tree{"type": "Gui"}, newFactory(t, &sink{}))
	assert.ErrorIs(t, err, errors.ErrNotRegistered)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "nodes_created", NodesCreated.String())
	assert.Equal(t, "unknown", State(42).String())
}
