// Package view adapts a running graph to an externally driven loop.
//
// A View owns one internal Queue per input slot and one internal Broadcast per
// output slot. Graph senders feed the queues and the broadcasts feed graph
// receivers. Exec asks its Handler for a frame of output values, pushes them into
// the graph, waits until the graph is idle and hands whatever reached the input
// slots back to the Handler.
package view

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/node"
)

// Frame holds the values collected from each input slot during one round,
// oldest first.
type Frame struct {
	Values [][]any
}

// Len returns the number of input slots.
func (f Frame) Len() int { return len(f.Values) }

// Last returns the newest value of slot i.
func (f Frame) Last(i int) (any, bool) {
	if i < 0 || i >= len(f.Values) || len(f.Values[i]) == 0 {
		return nil, false
	}
	return f.Values[i][len(f.Values[i])-1], true
}

// Handler drives a View.
type Handler interface {
	// Next returns one value per output slot; nil entries are not sent. done
	// ends the loop without sending.
	Next(ctx context.Context) (values []any, done bool, err error)
	// Handle receives the values that reached the input slots.
	Handle(ctx context.Context, frame Frame) error
}

// Constructor creates a view from its configuration section.
type Constructor func(cfg config.Tree, g *flow.Graph) (*View, error)

// View is the boundary between a graph and a Handler.
type View struct {
	graph   *flow.Graph
	handler Handler
	logger  *slog.Logger

	inTypes  []flow.Type
	outTypes []flow.Type
	inputs   []*node.Buffer
	outputs  []*node.Broadcast
}

// New creates a view with the given slot types.
func New(g *flow.Graph, inputs, outputs []flow.Type, handler Handler) *View {
	return &View{
		graph:    g,
		handler:  handler,
		logger:   g.Logger().With("component", "view"),
		inTypes:  inputs,
		outTypes: outputs,
		inputs:   make([]*node.Buffer, len(inputs)),
		outputs:  make([]*node.Broadcast, len(outputs)),
	}
}

// Inputs returns the input slot types.
func (v *View) Inputs() []flow.Type { return v.inTypes }

// Outputs returns the output slot types.
func (v *View) Outputs() []flow.Type { return v.outTypes }

// AddSender makes s feed input slot i.
func (v *View) AddSender(i int, s flow.Sender) bool {
	if i < 0 || i >= len(v.inputs) {
		return false
	}
	if v.inputs[i] == nil {
		v.inputs[i] = node.NewQueue(v.graph, node.Options{
			Info: node.Info{Name: fmt.Sprintf("view.input.%d", i), Node: "queue"},
			Kind: node.Unknown,
		}, v.inTypes[i])
	}
	return v.inputs[i].Connect(s, 0)
}

// AddReceiver makes output slot i feed input port of target.
func (v *View) AddReceiver(i int, target node.Receivable, port int) bool {
	if i < 0 || i >= len(v.outputs) {
		return false
	}
	if v.outputs[i] == nil {
		v.outputs[i] = node.NewBroadcast(v.graph, node.Options{
			Info: node.Info{Name: fmt.Sprintf("view.output.%d", i), Node: "broadcast"},
			Kind: node.Unknown,
		}, v.outTypes[i])
	}
	s, _ := v.outputs[i].Sender(0)
	return target.Connect(s, port)
}

// Wire connects the slots listed in cfg:
//
//	inputs:  [{from, output, input}]
//	outputs: [{to, input, output}]
//
// lookup resolves node names.
func (v *View) Wire(cfg config.Tree, lookup func(name string) (node.Node, bool)) error {
	inputs, err := cfg.Children("inputs")
	if err != nil {
		return errors.WrapInvalid(err, "View", "Wire", "read inputs")
	}
	for _, in := range inputs {
		from, err := in.RequireString("from")
		if err != nil {
			return err
		}
		slot, err := in.RequireUint("input")
		if err != nil {
			return err
		}
		output, err := in.UintOr("output", 0)
		if err != nil {
			return err
		}

		n, ok := lookup(from)
		if !ok {
			return errors.WrapInvalid(fmt.Errorf("%w: can't find node %s", errors.ErrNodeNotFound, from),
				"View", "Wire", "resolve input")
		}
		s, ok := n.Sender(int(output))
		if !ok || !v.AddSender(int(slot), s) {
			return errors.WrapInvalid(fmt.Errorf("%w: can't connect node %s:%d with input %d", errors.ErrConnect, from, output, slot),
				"View", "Wire", "connect input")
		}
	}

	outputs, err := cfg.Children("outputs")
	if err != nil {
		return errors.WrapInvalid(err, "View", "Wire", "read outputs")
	}
	for _, out := range outputs {
		to, err := out.RequireString("to")
		if err != nil {
			return err
		}
		slot, err := out.RequireUint("output")
		if err != nil {
			return err
		}
		input, err := out.UintOr("input", 0)
		if err != nil {
			return err
		}

		n, ok := lookup(to)
		if !ok {
			return errors.WrapInvalid(fmt.Errorf("%w: can't find node %s", errors.ErrNodeNotFound, to),
				"View", "Wire", "resolve output")
		}
		if !v.AddReceiver(int(slot), n, int(input)) {
			return errors.WrapInvalid(fmt.Errorf("%w: can't connect node %s:%d with output %d", errors.ErrConnect, to, input, slot),
				"View", "Wire", "connect output")
		}
	}
	return nil
}

// Exec runs the loop until the handler is done. It returns 0 on normal
// completion and 1 with the error otherwise.
func (v *View) Exec(ctx context.Context) (int, error) {
	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return 1, err
		}

		values, done, err := v.handler.Next(ctx)
		if err != nil {
			return 1, errors.Wrap(err, "View", "Exec", "next frame")
		}
		if done {
			v.logger.Debug("View finished", "rounds", rounds)
			return 0, nil
		}
		if err := v.send(values); err != nil {
			return 1, err
		}

		if err := v.graph.Wait(ctx); err != nil {
			return 1, err
		}

		if err := v.handler.Handle(ctx, v.collect()); err != nil {
			return 1, errors.Wrap(err, "View", "Exec", "handle frame")
		}
		rounds++
	}
}

func (v *View) send(values []any) error {
	for i, val := range values {
		if val == nil || i >= len(v.outputs) || v.outputs[i] == nil {
			continue
		}
		if !node.Put(v.outputs[i], val) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: output %d wants %s, got %T", errors.ErrTypeMismatch, i, v.outTypes[i], val),
				"View", "Exec", "send frame")
		}
	}
	return nil
}

func (v *View) collect() Frame {
	frame := Frame{Values: make([][]any, len(v.inputs))}
	for i, in := range v.inputs {
		if in == nil {
			continue
		}
		for {
			val, ok := in.TryGet()
			if !ok {
				break
			}
			frame.Values[i] = append(frame.Values[i], val)
		}
	}
	return frame
}
