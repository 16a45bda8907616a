package element

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
)

// MethodName is the method every element exposes.
const MethodName = "Process"

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Signature describes the Process method of an element type.
type Signature struct {
	Inputs  []reflect.Type
	Outputs []reflect.Type
	// Optional is set when every output is an Optional; Outputs then holds the
	// wrapped types.
	Optional bool
	HasError bool
}

// Analyze inspects the Process method of t.
func Analyze(t reflect.Type) (Signature, error) {
	if t == nil {
		return Signature{}, errors.WrapInvalid(errors.ErrInvalidElement, "element", "Analyze", "inspect nil type")
	}
	method, ok := t.MethodByName(MethodName)
	if !ok {
		return Signature{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s has no exported %s method", errors.ErrInvalidElement, t, MethodName),
			"element", "Analyze", "find method")
	}

	mt := method.Type
	if mt.IsVariadic() {
		return Signature{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s is variadic", errors.ErrInvalidElement, t, MethodName),
			"element", "Analyze", "read inputs")
	}

	var sig Signature
	first := 1 // input 0 is the receiver
	if t.Kind() == reflect.Interface {
		first = 0
	}
	for i := first; i < mt.NumIn(); i++ {
		sig.Inputs = append(sig.Inputs, mt.In(i))
	}

	outs := mt.NumOut()
	if outs > 0 && mt.Out(outs-1) == errorType {
		sig.HasError = true
		outs--
	}

	allOptional := outs > 0
	for i := 0; i < outs; i++ {
		if !mt.Out(i).Implements(optionalType) {
			allOptional = false
		}
	}
	for i := 0; i < outs; i++ {
		out := mt.Out(i)
		if allOptional {
			out = reflect.Zero(out).Interface().(optional).elemType()
		}
		sig.Outputs = append(sig.Outputs, out)
	}
	sig.Optional = allOptional

	return sig, nil
}

// AnalyzeValue inspects the type of e.
func AnalyzeValue(e any) (Signature, error) {
	return Analyze(reflect.TypeOf(e))
}

// InputType is the payload of the element's input port.
func (s Signature) InputType() flow.Type {
	return flow.Of(s.Inputs)
}

// OutputType is the payload of the element's single output port.
func (s Signature) OutputType() flow.Type {
	return flow.Of(s.Outputs)
}

// OutputPortTypes is one scalar payload per output, as used by multi-port nodes.
func (s Signature) OutputPortTypes() []flow.Type {
	types := make([]flow.Type, len(s.Outputs))
	for i, t := range s.Outputs {
		types[i] = flow.ScalarType(t)
	}
	return types
}

func (s Signature) String() string {
	in := make([]string, len(s.Inputs))
	for i, t := range s.Inputs {
		in[i] = t.String()
	}
	out := make([]string, 0, len(s.Outputs)+1)
	for _, t := range s.Outputs {
		if s.Optional {
			out = append(out, "optional "+t.String())
			continue
		}
		out = append(out, t.String())
	}
	if s.HasError {
		out = append(out, "error")
	}
	return fmt.Sprintf("(%s) -> (%s)", strings.Join(in, ", "), strings.Join(out, ", "))
}

// CanSource reports whether the element can back a source: no inputs, some
// plain output.
func CanSource(s Signature) bool { return len(s.Inputs) == 0 && len(s.Outputs) > 0 && !s.Optional }

// CanContinue reports whether the element can be fed by a continue signal.
func CanContinue(s Signature) bool { return len(s.Inputs) == 0 && !s.Optional }

// CanFunction accepts every element without optional results; those need a
// multifunction node to drop absent values.
func CanFunction(s Signature) bool { return !s.Optional }

// CanMultifunction requires every output to be optional.
func CanMultifunction(s Signature) bool { return len(s.Outputs) > 0 && s.Optional }

// CanJoin requires at least two inputs.
func CanJoin(s Signature) bool { return len(s.Inputs) >= 2 }

// CanSplit requires at least two plain outputs.
func CanSplit(s Signature) bool { return len(s.Outputs) >= 2 && !s.Optional }
