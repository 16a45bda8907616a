package flow

import (
	"reflect"
	"strings"
)

// Signal is the payload of a void result: it tells the successor to continue
// without carrying data.
type Signal struct{}

// Tuple is the value carried by tuple-typed ports, one entry per element type.
type Tuple []any

// Type identifies what a port carries: either a single Go type or an ordered tuple
// of Go types. Two ports can be connected only when their Types are Equal.
type Type struct {
	scalar reflect.Type
	elems  []reflect.Type
}

// SignalType is the Type of void results and zero-argument inputs.
var SignalType = TypeOf[Signal]()

// TypeOf returns the scalar Type of T.
func TypeOf[T any]() Type {
	return Type{scalar: reflect.TypeOf((*T)(nil)).Elem()}
}

// ScalarType wraps t.
func ScalarType(t reflect.Type) Type {
	return Type{scalar: t}
}

// TupleType returns the tuple of the given element types.
func TupleType(elems ...reflect.Type) Type {
	return Type{elems: append([]reflect.Type(nil), elems...)}
}

// Of returns the scalar Type for one type and the tuple Type for several; an empty
// list yields SignalType. Element inputs and outputs follow this rule.
func Of(types []reflect.Type) Type {
	switch len(types) {
	case 0:
		return SignalType
	case 1:
		return ScalarType(types[0])
	}
	return TupleType(types...)
}

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool {
	return t.scalar == nil && t.elems == nil
}

// IsTuple reports whether t is a tuple.
func (t Type) IsTuple() bool {
	return t.elems != nil
}

// Arity is the number of tuple elements, 1 for a scalar and 0 for the zero Type.
func (t Type) Arity() int {
	switch {
	case t.elems != nil:
		return len(t.elems)
	case t.scalar != nil:
		return 1
	}
	return 0
}

// Elem returns the i-th element type of a tuple, or the scalar type for i == 0.
func (t Type) Elem(i int) reflect.Type {
	if t.elems == nil {
		if i == 0 {
			return t.scalar
		}
		return nil
	}
	if i < 0 || i >= len(t.elems) {
		return nil
	}
	return t.elems[i]
}

// Equal compares structurally.
func (t Type) Equal(other Type) bool {
	if t.IsTuple() != other.IsTuple() {
		return false
	}
	if !t.IsTuple() {
		return t.scalar == other.scalar
	}
	if len(t.elems) != len(other.elems) {
		return false
	}
	for i := range t.elems {
		if t.elems[i] != other.elems[i] {
			return false
		}
	}
	return true
}

// Accepts reports whether v is a value of type t.
func (t Type) Accepts(v any) bool {
	if !t.IsTuple() {
		return assignable(v, t.scalar)
	}
	tuple, ok := v.(Tuple)
	if !ok || len(tuple) != len(t.elems) {
		return false
	}
	for i, elem := range tuple {
		if !assignable(elem, t.elems[i]) {
			return false
		}
	}
	return true
}

func (t Type) String() string {
	if t.IsZero() {
		return "<none>"
	}
	if !t.IsTuple() {
		if t.scalar == reflect.TypeOf((*Signal)(nil)).Elem() {
			return "signal"
		}
		return t.scalar.String()
	}
	names := make([]string, len(t.elems))
	for i, e := range t.elems {
		names[i] = e.String()
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func assignable(v any, to reflect.Type) bool {
	if to == nil {
		return false
	}
	if v == nil {
		switch to.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return true
		}
		return false
	}
	return reflect.TypeOf(v).AssignableTo(to)
}
