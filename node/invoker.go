package node

import (
	"time"

	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/metric"
)

// invoker runs an element on behalf of a node: frame counters around the call,
// invocation metrics and the node name on failures.
type invoker struct {
	name    string
	bound   *element.Bound
	before  *FrameHook
	after   *FrameHook
	metrics *metric.Metrics
}

func newInvoker(b *base, bound *element.Bound, opts Options) *invoker {
	return &invoker{
		name:    b.info.Name,
		bound:   bound,
		before:  opts.Before,
		after:   opts.After,
		metrics: b.graph.Metrics().CoreMetrics(),
	}
}

func (iv *invoker) invoke(v any) ([]any, error) {
	args, err := iv.bound.Args(v)
	if err != nil {
		return nil, errors.WrapNode(err, iv.name)
	}

	iv.before.fire()
	start := time.Now()
	outs, err := iv.bound.Invoke(args)
	if iv.metrics != nil {
		iv.metrics.RecordInvocation(iv.name, time.Since(start), err)
	}
	if err != nil {
		return nil, errors.WrapNode(err, iv.name)
	}
	iv.after.fire()
	return outs, nil
}

func (iv *invoker) process(v any) (any, error) {
	outs, err := iv.invoke(v)
	if err != nil {
		return nil, err
	}
	return element.Pack(outs), nil
}
