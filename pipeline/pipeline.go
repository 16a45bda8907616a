package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/flowgraph"
	"github.com/c360/flowpipe/metric"
	"github.com/c360/flowpipe/node"
	"github.com/c360/flowpipe/registry"
)

// Pipeline types.
const (
	TypeDefault = "Default"
	TypeView    = "View"
)

// State is the assembly and run state of a pipeline.
type State int

const (
	Unconfigured State = iota
	GraphCreated
	NodesCreated
	Connected
	Ready
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case GraphCreated:
		return "graph_created"
	case NodesCreated:
		return "nodes_created"
	case Connected:
		return "connected"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Runner is an assembled pipeline of any type.
type Runner interface {
	Exec(ctx context.Context) (int, error)
	WaitForAll() error
	Node(name string) (node.Node, bool)
	Nodes() []string
	State() State
	ID() string
	Close() error
}

// Constructor assembles a pipeline of one type.
type Constructor func(cfg config.Tree, f *registry.Factory, opts ...Option) (Runner, error)

// Build assembles the pipeline type named by the "type" field of cfg.
func Build(cfg config.Tree, f *registry.Factory, opts ...Option) (Runner, error) {
	typ := cfg.String("type", TypeDefault)
	ctor, ok := registry.Lookup[Constructor](f, typ)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: pipeline type %q", errors.ErrNotRegistered, typ),
			"pipeline", "Build", "lookup pipeline type")
	}
	return ctor(cfg, f, opts...)
}

type connection struct {
	from, to      string
	output, input int
}

// Pipeline owns a graph and the named nodes wired on it.
type Pipeline struct {
	id        string
	graph     *flow.Graph
	nodes     map[string]node.Node
	order     []string
	links     []connection
	autostart bool
	logger    *slog.Logger
	metrics   *metric.Metrics

	mu    sync.Mutex
	state State
}

// Make assembles a Default pipeline from its configuration section. On failure
// the graph is closed and no pipeline is returned; the error matches
// errors.ErrBuildPipeline.
func Make(cfg config.Tree, f *registry.Factory, opts ...Option) (*Pipeline, error) {
	p, err := assemble(cfg, f, newOptions(opts))
	if err != nil {
		return nil, err
	}
	p.ready()
	return p, nil
}

func assemble(cfg config.Tree, f *registry.Factory, o *options) (*Pipeline, error) {
	id := uuid.NewString()
	p := &Pipeline{
		id:      id,
		nodes:   make(map[string]node.Node),
		logger:  o.logger.With("component", "pipeline", "pipeline_id", id),
		metrics: o.metrics.CoreMetrics(),
	}
	p.setState(Unconfigured)

	if o.validate {
		if err := config.ValidatePipeline(cfg); err != nil {
			return nil, p.fail(err)
		}
	}
	if err := p.parseGraph(cfg, f, o); err != nil {
		return nil, p.fail(err)
	}
	if err := p.parseNodes(cfg, f); err != nil {
		return nil, p.fail(err)
	}
	if err := p.parseConnections(cfg); err != nil {
		return nil, p.fail(err)
	}
	p.autostart = cfg.Bool("autostart", false)
	return p, nil
}

func (p *Pipeline) parseGraph(cfg config.Tree, f *registry.Factory, o *options) error {
	graphCfg, _ := cfg.Child("graph")
	typ := graphCfg.String("type", "default")

	ctor, ok := registry.Lookup[GraphConstructor](f, typ)
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: graph type %q", errors.ErrNotRegistered, typ),
			"Pipeline", "parseGraph", "lookup graph type")
	}
	g, err := ctor(graphCfg, flow.WithLogger(o.logger), flow.WithMetrics(o.metrics))
	if err != nil {
		return errors.Wrap(err, "Pipeline", "parseGraph", "create graph")
	}

	p.graph = g
	p.setState(GraphCreated)
	return nil
}

func (p *Pipeline) parseNodes(cfg config.Tree, f *registry.Factory) error {
	entries, err := cfg.Children("nodes")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		spec, err := nodeSpec(entry, f, p.logger)
		if err != nil {
			return err
		}
		info := spec.Options.Info
		if _, exists := p.nodes[info.Name]; exists {
			return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrDuplicateNode, info.Name),
				"Pipeline", "parseNodes", "add node")
		}

		ctor, ok := registry.Lookup[NodeConstructor](f, info.Element)
		if !ok {
			return errors.WrapInvalid(fmt.Errorf("%w: element %q of node %s", errors.ErrNotRegistered, info.Element, info.Name),
				"Pipeline", "parseNodes", "lookup element")
		}
		n, err := ctor(p.graph, spec, f)
		if err != nil {
			return errors.Wrap(err, "Pipeline", "parseNodes", fmt.Sprintf("create node %s", info.Name))
		}

		p.nodes[info.Name] = n
		p.order = append(p.order, info.Name)
		p.logger.Debug("Node created", "node", info.Name, "element", info.Element, "kind", info.Node)
	}

	p.setState(NodesCreated)
	return nil
}

// parseConnections resolves every connection before connecting any.
func (p *Pipeline) parseConnections(cfg config.Tree) error {
	entries, err := cfg.Children("connections")
	if err != nil {
		return err
	}

	type resolved struct {
		connection
		sender flow.Sender
		target node.Node
	}
	plan := make([]resolved, 0, len(entries))
	for _, entry := range entries {
		output, err := entry.UintOr("output", 0)
		if err != nil {
			return err
		}
		input, err := entry.UintOr("input", 0)
		if err != nil {
			return err
		}
		c := connection{
			from:   entry.String("from", ""),
			to:     entry.String("to", ""),
			output: int(output),
			input:  int(input),
		}

		source, ok := p.nodes[c.from]
		if !ok {
			return errors.WrapInvalid(fmt.Errorf("%w: can't find node %s", errors.ErrNodeNotFound, c.from),
				"Pipeline", "parseConnections", "resolve connection")
		}
		target, ok := p.nodes[c.to]
		if !ok {
			return errors.WrapInvalid(fmt.Errorf("%w: can't find node %s", errors.ErrNodeNotFound, c.to),
				"Pipeline", "parseConnections", "resolve connection")
		}
		sender, ok := source.Sender(c.output)
		if !ok {
			return errors.WrapInvalid(fmt.Errorf("%w: no sender with index %d on node %s", errors.ErrSenderNotFound, c.output, c.from),
				"Pipeline", "parseConnections", "resolve connection")
		}
		plan = append(plan, resolved{connection: c, sender: sender, target: target})
	}

	for _, r := range plan {
		if !r.target.Connect(r.sender, r.input) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: can't connect output %d of %s with input %d of %s", errors.ErrConnect, r.output, r.from, r.input, r.to),
				"Pipeline", "parseConnections", "connect")
		}
		p.links = append(p.links, r.connection)
	}

	p.setState(Connected)
	return nil
}

func (p *Pipeline) ready() {
	p.graph.Freeze()
	p.setState(Ready)
	p.logger.Info("Pipeline ready", "nodes", len(p.order), "connections", len(p.links), "autostart", p.autostart)
}

// fail closes what was built and wraps err as a build failure.
func (p *Pipeline) fail(err error) error {
	p.setState(Failed)
	if p.graph != nil {
		_ = p.graph.Close()
	}
	p.logger.Error("Pipeline assembly failed", "error", err)
	return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrBuildPipeline, err), "Pipeline", "Make", "assemble pipeline")
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	if p.metrics != nil {
		p.metrics.RecordPipelineStatus(p.id, int(s))
	}
}

// Activate starts every activatable functional node, in declaration order.
func (p *Pipeline) Activate() {
	for _, name := range p.order {
		n := p.nodes[name]
		if n.Kind() != node.Functional {
			continue
		}
		if a, ok := n.(node.Activatable); ok {
			a.Activate()
		}
	}
}

// Exec activates the sources when autostart is set and waits until the graph
// is idle. It returns 0 on normal completion and 1 with the error otherwise.
func (p *Pipeline) Exec(ctx context.Context) (int, error) {
	p.setState(Running)
	if p.autostart {
		p.Activate()
	}
	return p.finish(p.graph.Wait(ctx))
}

func (p *Pipeline) finish(err error) (int, error) {
	if err != nil {
		p.setState(Failed)
		p.logger.Error("Pipeline failed", "error", err)
		return 1, err
	}
	p.setState(Ready)
	return 0, nil
}

// WaitForAll blocks until the graph is idle and returns the task errors.
func (p *Pipeline) WaitForAll() error {
	return p.graph.WaitForAll()
}

// Node returns the node named name.
func (p *Pipeline) Node(name string) (node.Node, bool) {
	n, ok := p.nodes[name]
	return n, ok
}

// Nodes returns the node names in declaration order.
func (p *Pipeline) Nodes() []string {
	return append([]string(nil), p.order...)
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ID returns the pipeline ID.
func (p *Pipeline) ID() string { return p.id }

// Graph returns the graph the nodes run on.
func (p *Pipeline) Graph() *flow.Graph { return p.graph }

// Analyze reports the topology of the configured nodes and connections.
func (p *Pipeline) Analyze() (*flowgraph.AnalysisResult, error) {
	fg := flowgraph.NewFlowGraph()
	for _, name := range p.order {
		if err := fg.AddNode(name, p.nodes[name]); err != nil {
			return nil, errors.Wrap(err, "Pipeline", "Analyze", "add node")
		}
	}
	for _, l := range p.links {
		err := fg.AddEdge(flowgraph.PortRef{Node: l.from, Port: l.output}, flowgraph.PortRef{Node: l.to, Port: l.input})
		if err != nil {
			return nil, errors.Wrap(err, "Pipeline", "Analyze", "add edge")
		}
	}
	return fg.AnalyzeConnectivity(), nil
}

// Close stops the graph.
func (p *Pipeline) Close() error {
	return p.graph.Close()
}
