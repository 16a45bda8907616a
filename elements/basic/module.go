package basic

import (
	stderrors "errors"

	"github.com/c360/flowpipe/module"
	"github.com/c360/flowpipe/pipeline"
	"github.com/c360/flowpipe/registry"
	"github.com/c360/flowpipe/view"
)

// Name is the module name.
const Name = "basic"

// Module registers the basic elements and the JSONLines view.
type Module struct{}

func init() {
	module.Add(Module{})
}

// Name implements module.Module
func (Module) Name() string { return Name }

// Version implements module.Module
func (Module) Version() int { return module.APIVersion }

// Register implements module.Module
func (Module) Register(f *registry.Factory) error {
	registry.Register[view.Constructor](f, "JSONLines", NewJSONLinesView)
	return stderrors.Join(
		pipeline.RegisterElement(f, "Counter", NewCounter),
		pipeline.RegisterElement(f, "Identity", NewIdentity),
		pipeline.RegisterElement(f, "Divide", NewDivide),
		pipeline.RegisterElement(f, "Scale", NewScale),
		pipeline.RegisterElement(f, "Sum", NewSum),
		pipeline.RegisterElement(f, "Add", NewAdd),
		pipeline.RegisterElement(f, "Parity", NewParity),
		pipeline.RegisterElement(f, "Fork", NewFork),
		pipeline.RegisterElement(f, "Format", NewFormat),
		pipeline.RegisterElement(f, "PrintInt", NewPrinter[int]),
		pipeline.RegisterElement(f, "PrintFloat", NewPrinter[float64]),
		pipeline.RegisterElement(f, "PrintString", NewPrinter[string]),
		pipeline.RegisterElement(f, "Beat", NewBeat),
	)
}
