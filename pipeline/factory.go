package pipeline

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/metric"
	"github.com/c360/flowpipe/node"
	"github.com/c360/flowpipe/registry"
)

// Kind keys.
const (
	KindSource        = "source"
	KindFunction      = "function"
	KindContinue      = "continue"
	KindMultifunction = "multifunction"
	KindJoin          = "join"
	KindSplit         = "split"
	KindBroadcastIn   = "broadcast_in"
	KindBufferIn      = "buffer_in"
	KindOverwriteIn   = "overwrite_in"
	KindQueueIn       = "queue_in"
	KindBroadcastOut  = "broadcast_out"
	KindBufferOut     = "buffer_out"
	KindOverwriteOut  = "overwrite_out"
	KindQueueOut      = "queue_out"
)

// CounterKey is the factory key of the frame counter constructor.
const CounterKey = "NodeCounter"

// NodeSpec is one entry of the nodes list.
type NodeSpec struct {
	Options node.Options
	Config  config.Tree
}

// NodeConstructor creates the node of a nodes entry. One is registered per
// element key; it dispatches on the kind key in spec.Options.Info.Node.
type NodeConstructor func(g *flow.Graph, spec NodeSpec, f *registry.Factory) (node.Node, error)

// ElementConstructor creates an element instance from its node entry.
type ElementConstructor[E any] func(cfg config.Tree) (E, error)

// ServiceConstructor creates a service node carrying payload t.
type ServiceConstructor func(g *flow.Graph, opts node.Options, t flow.Type) (node.Node, error)

// FunctionalConstructor creates a node running bound.
type FunctionalConstructor func(g *flow.Graph, opts node.Options, bound *element.Bound) (node.Node, error)

// Eligibility reports whether an element signature can back a node kind.
type Eligibility func(element.Signature) bool

// CounterConstructor returns the frame counter named name.
type CounterConstructor func(name string) metric.FrameCounter

// GraphConstructor creates a graph from the graph section.
type GraphConstructor func(cfg config.Tree, opts ...flow.GraphOption) (*flow.Graph, error)

// Description is the human readable description of an element key.
type Description []string

// RegisterElement registers the element constructor ctor under key, the node
// dispatch for it and, when E implements element.Describer, its description.
// Duplicates are ignored and logged by the factory.
func RegisterElement[E any](f *registry.Factory, key string, ctor ElementConstructor[E]) error {
	sig, err := element.Analyze(reflect.TypeOf((*E)(nil)).Elem())
	if err != nil {
		return errors.WrapInvalid(err, "pipeline", "RegisterElement", fmt.Sprintf("analyze element %s", key))
	}

	if !registry.Register[NodeConstructor](f, key, dispatch(key, sig, ctor)) {
		return nil
	}
	registry.Register(f, key, ctor)
	registry.Register(f, key, sig)

	if d, ok := describer[E](); ok {
		registry.Register(f, key, Description(d.Describe()))
	}
	return nil
}

// describer probes a zero E, or a pointer to a zero struct, for a description.
func describer[E any]() (element.Describer, bool) {
	t := reflect.TypeOf((*E)(nil)).Elem()
	var v any
	if t.Kind() == reflect.Pointer {
		v = reflect.New(t.Elem()).Interface()
	} else {
		var zero E
		v = zero
	}
	d, ok := v.(element.Describer)
	return d, ok
}

// CreateElement builds an element through the constructor registered under key.
func CreateElement[E any](f *registry.Factory, key string, cfg config.Tree) (E, error) {
	ctor, ok := registry.Lookup[ElementConstructor[E]](f, key)
	if !ok {
		var zero E
		return zero, errors.WrapInvalid(fmt.Errorf("%w: element %q", errors.ErrNotRegistered, key),
			"pipeline", "CreateElement", "lookup element")
	}
	return ctor(cfg)
}

func dispatch[E any](key string, sig element.Signature, ctor ElementConstructor[E]) NodeConstructor {
	return func(g *flow.Graph, spec NodeSpec, f *registry.Factory) (node.Node, error) {
		kindKey := spec.Options.Info.Node
		kind, ok := registry.Lookup[node.Kind](f, kindKey)
		if !ok {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: node kind %q", errors.ErrNotRegistered, kindKey),
				"pipeline", "NodeConstructor", "lookup kind")
		}
		if eligible, ok := registry.Lookup[Eligibility](f, kindKey); ok && !eligible(sig) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: element %s %s cannot back node %s", errors.ErrIncompatibleKind, key, sig, kindKey),
				"pipeline", "NodeConstructor", "check eligibility")
		}

		switch kind {
		case node.ServiceIn, node.ServiceOut:
			create, ok := registry.Lookup[ServiceConstructor](f, kindKey)
			if !ok {
				return nil, notConstructible(kindKey)
			}
			t := sig.InputType()
			if kind == node.ServiceOut {
				t = sig.OutputType()
			}
			spec.Options.Kind = kind
			return create(g, spec.Options, t)

		case node.Functional:
			create, ok := registry.Lookup[FunctionalConstructor](f, kindKey)
			if !ok {
				return nil, notConstructible(kindKey)
			}
			e, err := ctor(spec.Config)
			if err != nil {
				return nil, errors.Wrap(err, "pipeline", "NodeConstructor", fmt.Sprintf("create element %s", key))
			}
			bound, err := element.Bind(e)
			if err != nil {
				return nil, err
			}
			spec.Options.Kind = kind
			return create(g, spec.Options, bound)
		}
		return nil, notConstructible(kindKey)
	}
}

func notConstructible(kindKey string) error {
	return errors.WrapInvalid(fmt.Errorf("%w: no constructor for node kind %q", errors.ErrNotRegistered, kindKey),
		"pipeline", "NodeConstructor", "lookup constructor")
}

// RegisterDefaults registers kind tags, node constructors, graph types,
// pipeline types and the frame counter service. metrics may be nil.
func RegisterDefaults(f *registry.Factory, metrics *metric.MetricsRegistry) {
	functional := map[string]struct {
		eligible Eligibility
		create   FunctionalConstructor
	}{
		KindSource: {element.CanSource, func(g *flow.Graph, o node.Options, b *element.Bound) (node.Node, error) {
			return node.NewSource(g, o, b)
		}},
		KindFunction: {element.CanFunction, func(g *flow.Graph, o node.Options, b *element.Bound) (node.Node, error) {
			return node.NewFunction(g, o, b)
		}},
		KindContinue: {element.CanContinue, func(g *flow.Graph, o node.Options, b *element.Bound) (node.Node, error) {
			return node.NewContinue(g, o, b)
		}},
		KindMultifunction: {element.CanMultifunction, func(g *flow.Graph, o node.Options, b *element.Bound) (node.Node, error) {
			return node.NewMultifunction(g, o, b)
		}},
	}
	for key, entry := range functional {
		registry.Register(f, key, node.Functional)
		registry.Register(f, key, entry.eligible)
		registry.Register(f, key, entry.create)
	}

	registerService(f, KindJoin, node.ServiceIn, element.CanJoin, func(g *flow.Graph, o node.Options, t flow.Type) (node.Node, error) {
		return node.NewJoin(g, o, t)
	})
	registerService(f, KindSplit, node.ServiceOut, element.CanSplit, func(g *flow.Graph, o node.Options, t flow.Type) (node.Node, error) {
		return node.NewSplit(g, o, t)
	})
	for _, side := range []struct {
		suffix string
		kind   node.Kind
	}{{"_in", node.ServiceIn}, {"_out", node.ServiceOut}} {
		registerService(f, "broadcast"+side.suffix, side.kind, nil, func(g *flow.Graph, o node.Options, t flow.Type) (node.Node, error) {
			return node.NewBroadcast(g, o, t), nil
		})
		registerService(f, "buffer"+side.suffix, side.kind, nil, func(g *flow.Graph, o node.Options, t flow.Type) (node.Node, error) {
			return node.NewBuffer(g, o, t), nil
		})
		registerService(f, "overwrite"+side.suffix, side.kind, nil, func(g *flow.Graph, o node.Options, t flow.Type) (node.Node, error) {
			return node.NewOverwrite(g, o, t), nil
		})
		registerService(f, "queue"+side.suffix, side.kind, nil, func(g *flow.Graph, o node.Options, t flow.Type) (node.Node, error) {
			return node.NewQueue(g, o, t), nil
		})
	}

	registry.Register[GraphConstructor](f, "default", func(cfg config.Tree, opts ...flow.GraphOption) (*flow.Graph, error) {
		opts = append(opts, flow.WithWorkers(int(cfg.Uint("workers", 0))))
		return flow.NewGraph(opts...), nil
	})
	registry.Register[GraphConstructor](f, "serial", func(_ config.Tree, opts ...flow.GraphOption) (*flow.Graph, error) {
		opts = append(opts, flow.WithWorkers(1))
		return flow.NewGraph(opts...), nil
	})

	registry.Register[Constructor](f, TypeDefault, func(cfg config.Tree, f *registry.Factory, opts ...Option) (Runner, error) {
		return Make(cfg, f, opts...)
	})
	registry.Register[Constructor](f, TypeView, func(cfg config.Tree, f *registry.Factory, opts ...Option) (Runner, error) {
		return MakeView(cfg, f, opts...)
	})

	registry.Register[CounterConstructor](f, CounterKey, counterCache(metrics))
}

func registerService(f *registry.Factory, key string, kind node.Kind, eligible Eligibility, create ServiceConstructor) {
	registry.Register(f, key, kind)
	if eligible != nil {
		registry.Register(f, key, eligible)
	}
	registry.Register(f, key, create)
}

// counterCache hands out one counter per name.
func counterCache(metrics *metric.MetricsRegistry) CounterConstructor {
	var (
		mu       sync.Mutex
		counters = make(map[string]*metric.Counter)
	)
	return func(name string) metric.FrameCounter {
		mu.Lock()
		defer mu.Unlock()
		c, ok := counters[name]
		if !ok {
			c = metric.NewFrameCounter(metrics, name)
			counters[name] = c
		}
		return c
	}
}

// nodeSpec reads a nodes entry.
func nodeSpec(cfg config.Tree, f *registry.Factory, logger *slog.Logger) (NodeSpec, error) {
	var spec NodeSpec
	name, err := cfg.RequireString("name")
	if err != nil {
		return spec, err
	}
	elementKey, err := cfg.RequireString("element")
	if err != nil {
		return spec, errors.Wrap(err, "pipeline", "nodeSpec", fmt.Sprintf("read node %s", name))
	}
	kindKey, err := cfg.RequireString("node")
	if err != nil {
		return spec, errors.Wrap(err, "pipeline", "nodeSpec", fmt.Sprintf("read node %s", name))
	}
	policy, err := node.ParsePolicy(cfg.String("policy", ""))
	if err != nil {
		return spec, err
	}

	spec.Config = cfg
	spec.Options = node.Options{
		Info:        node.Info{Name: name, Element: elementKey, Node: kindKey},
		Concurrency: cfg.Uint("concurrency", 0),
		Priority:    cfg.Uint("priority", 0),
		Policy:      policy,
	}

	counters, ok := cfg.Child("node_counters")
	if !ok {
		return spec, nil
	}
	create, ok := registry.Lookup[CounterConstructor](f, CounterKey)
	if !ok {
		logger.Warn("node_counters ignored: no counter service registered", "node", name)
		return spec, nil
	}
	if spec.Options.Before, err = frameHook(counters, "before", create); err != nil {
		return spec, err
	}
	if spec.Options.After, err = frameHook(counters, "after", create); err != nil {
		return spec, err
	}
	return spec, nil
}

func frameHook(counters config.Tree, side string, create CounterConstructor) (*node.FrameHook, error) {
	entry, ok := counters.Child(side)
	if !ok {
		return nil, nil
	}
	name, err := entry.RequireString("name")
	if err != nil {
		return nil, err
	}
	return &node.FrameHook{Counter: create(name), NewFrame: entry.Bool("type", false)}, nil
}
