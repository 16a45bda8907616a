package element

import "reflect"

// Stopper is implemented by elements that decide when a source ends. IsStopped is
// consulted after each value the source produced has been delivered.
type Stopper interface {
	IsStopped() bool
}

// Describer is implemented by elements that document themselves for the info tool.
type Describer interface {
	Describe() []string
}

// Optional is the result type of multifunction elements: each present result is
// forwarded on its own port, absent results are dropped.
type Optional[T any] struct {
	v  T
	ok bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{v: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.v, o.ok
}

// IsPresent reports whether a value is set.
func (o Optional[T]) IsPresent() bool {
	return o.ok
}

func (o Optional[T]) unwrap() (any, bool) {
	return o.v, o.ok
}

func (Optional[T]) elemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type optional interface {
	unwrap() (any, bool)
	elemType() reflect.Type
}

var optionalType = reflect.TypeOf((*optional)(nil)).Elem()

// Unwrap returns the content of an Optional. Any other value is returned as present.
func Unwrap(v any) (any, bool) {
	if o, ok := v.(optional); ok {
		return o.unwrap()
	}
	return v, true
}

// Func adapts a single-input function to an element.
type Func[In, Out any] func(In) (Out, error)

// Process calls f.
func (f Func[In, Out]) Process(v In) (Out, error) {
	return f(v)
}
