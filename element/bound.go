package element

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
)

// Bound pairs an element instance with its analyzed Process method.
type Bound struct {
	elem    any
	sig     Signature
	method  reflect.Value
	stopper Stopper
	calls   atomic.Int64
}

// Bind analyzes e and prepares it for invocation.
func Bind(e any) (*Bound, error) {
	sig, err := AnalyzeValue(e)
	if err != nil {
		return nil, err
	}
	b := &Bound{
		elem:   e,
		sig:    sig,
		method: reflect.ValueOf(e).MethodByName(MethodName),
	}
	b.stopper, _ = e.(Stopper)
	return b, nil
}

// Element returns the bound instance.
func (b *Bound) Element() any { return b.elem }

// Signature returns the analyzed signature.
func (b *Bound) Signature() Signature { return b.sig }

// Calls returns how many times the element was invoked.
func (b *Bound) Calls() int64 { return b.calls.Load() }

// Stopped reports whether a source backed by this element must stop. Elements
// without IsStopped stop after their first call.
func (b *Bound) Stopped() bool {
	if b.stopper != nil {
		return b.stopper.IsStopped()
	}
	return b.calls.Load() > 0
}

// Invoke calls Process with args and returns its outputs without the trailing
// error. A panic in the element is recovered and returned as an error.
func (b *Bound) Invoke(args []any) (outs []any, err error) {
	if len(args) != len(b.sig.Inputs) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: got %d arguments, want %d", errors.ErrInvalidElement, len(args), len(b.sig.Inputs)),
			"Bound", "Invoke", "check arguments")
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := b.sig.Inputs[i]
		if arg == nil {
			in[i] = reflect.Zero(want)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(want) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: argument %d is %s, want %s", errors.ErrTypeMismatch, i, v.Type(), want),
				"Bound", "Invoke", "check arguments")
		}
		in[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			outs = nil
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()

	b.calls.Add(1)
	results := b.method.Call(in)

	if b.sig.HasError {
		last := results[len(results)-1]
		results = results[:len(results)-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}

	outs = make([]any, len(results))
	for i, r := range results {
		outs[i] = r.Interface()
	}
	return outs, nil
}

// Args spreads a payload into Process arguments: nothing for a signal, the value
// itself for one input and the tuple entries for several.
func (b *Bound) Args(v any) ([]any, error) {
	switch len(b.sig.Inputs) {
	case 0:
		return nil, nil
	case 1:
		return []any{v}, nil
	}
	tuple, ok := v.(flow.Tuple)
	if !ok || len(tuple) != len(b.sig.Inputs) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %T is not a %d-tuple", errors.ErrTypeMismatch, v, len(b.sig.Inputs)),
			"Bound", "Args", "spread payload")
	}
	return tuple, nil
}

// Pack folds outputs into one payload: a signal for none, the value for one and a
// tuple for several.
func Pack(outs []any) any {
	switch len(outs) {
	case 0:
		return flow.Signal{}
	case 1:
		return outs[0]
	}
	return flow.Tuple(outs)
}

// Process turns one input payload into one output payload.
func (b *Bound) Process(v any) (any, error) {
	args, err := b.Args(v)
	if err != nil {
		return nil, err
	}
	outs, err := b.Invoke(args)
	if err != nil {
		return nil, err
	}
	return Pack(outs), nil
}

// Describe returns the element's description lines, if it has any.
func Describe(e any) []string {
	if d, ok := e.(Describer); ok {
		return d.Describe()
	}
	return nil
}
