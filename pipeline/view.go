package pipeline

import (
	"context"
	"fmt"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/registry"
	"github.com/c360/flowpipe/view"
)

// ViewPipeline is a pipeline driven by a view.
type ViewPipeline struct {
	*Pipeline
	view *view.View
}

// MakeView assembles a pipeline and wires the view described by its "view"
// section: {type, inputs: [{from, output, input}], outputs: [{to, input, output}]}.
func MakeView(cfg config.Tree, f *registry.Factory, opts ...Option) (*ViewPipeline, error) {
	p, err := assemble(cfg, f, newOptions(opts))
	if err != nil {
		return nil, err
	}

	v, err := p.makeView(cfg, f)
	if err != nil {
		return nil, p.fail(err)
	}
	p.ready()
	return &ViewPipeline{Pipeline: p, view: v}, nil
}

func (p *Pipeline) makeView(cfg config.Tree, f *registry.Factory) (*view.View, error) {
	viewCfg, ok := cfg.Child("view")
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: view section", errors.ErrMissingConfig),
			"Pipeline", "makeView", "read view")
	}
	typ, err := viewCfg.RequireString("type")
	if err != nil {
		return nil, err
	}
	ctor, ok := registry.Lookup[view.Constructor](f, typ)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: view type %q", errors.ErrNotRegistered, typ),
			"Pipeline", "makeView", "lookup view")
	}

	v, err := ctor(viewCfg, p.graph)
	if err != nil {
		return nil, errors.Wrap(err, "Pipeline", "makeView", "create view")
	}
	if err := v.Wire(viewCfg, p.Node); err != nil {
		return nil, err
	}
	return v, nil
}

// View returns the view.
func (vp *ViewPipeline) View() *view.View { return vp.view }

// Exec activates the sources when autostart is set, runs the view until its
// handler is done and waits for the graph.
func (vp *ViewPipeline) Exec(ctx context.Context) (int, error) {
	vp.setState(Running)
	if vp.autostart {
		vp.Activate()
	}
	if _, err := vp.view.Exec(ctx); err != nil {
		return vp.finish(err)
	}
	return vp.finish(vp.graph.Wait(ctx))
}
