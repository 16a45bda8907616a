package element

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
)

type counter struct {
	n, limit int
}

func (c *counter) Process() int {
	c.n++
	return c.n
}

func (c *counter) IsStopped() bool { return c.n >= c.limit }

type adder struct{}

func (adder) Process(a int, b float64) (float64, error) { return float64(a) + b, nil }

type splitter struct{}

func (splitter) Process(v int) (int, string) { return v, "x" }

type router struct{}

func (router) Process(v int) (Optional[int], Optional[string]) {
	if v%2 == 0 {
		return Some(v), None[string]()
	}
	return None[int](), Some("odd")
}

type maybeSource struct{}

func (maybeSource) Process() Optional[int] { return Some(1) }

type sink struct{ got []int }

func (s *sink) Process(v int) { s.got = append(s.got, v) }

type failing struct{}

func (failing) Process(v int) (int, error) {
	if v < 0 {
		return 0, stderrors.New("negative")
	}
	if v == 0 {
		panic("zero")
	}
	return v, nil
}

type variadic struct{}

func (variadic) Process(v ...int) int { return len(v) }

type described struct{ sink }

func (described) Describe() []string { return []string{"collects ints"} }

func TestAnalyze(t *testing.T) {
	intT := reflect.TypeOf((*int)(nil)).Elem()
	floatT := reflect.TypeOf((*float64)(nil)).Elem()
	stringT := reflect.TypeOf((*string)(nil)).Elem()

	tests := []struct {
		name     string
		elem     any
		inputs   []reflect.Type
		outputs  []reflect.Type
		optional bool
		hasError bool
	}{
		{"source", &counter{}, nil, []reflect.Type{intT}, false, false},
		{"join", adder{}, []reflect.Type{intT, floatT}, []reflect.Type{floatT}, false, true},
		{"split", splitter{}, []reflect.Type{intT}, []reflect.Type{intT, stringT}, false, false},
		{"multi", router{}, []reflect.Type{intT}, []reflect.Type{intT, stringT}, true, false},
		{"sink", &sink{}, []reflect.Type{intT}, nil, false, false},
		{"func", Func[int, string](func(int) (string, error) { return "", nil }), []reflect.Type{intT}, []reflect.Type{stringT}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := AnalyzeValue(tt.elem)
			require.NoError(t, err)
			assert.Equal(t, tt.inputs, sig.Inputs)
			assert.Equal(t, tt.outputs, sig.Outputs)
			assert.Equal(t, tt.optional, sig.Optional)
			assert.Equal(t, tt.hasError, sig.HasError)
		})
	}
}

func TestAnalyze_Invalid(t *testing.T) {
	_, err := AnalyzeValue(struct{}{})
	assert.ErrorIs(t, err, errors.ErrInvalidElement)

	// pointer receiver methods are not in the value's method set
	_, err = AnalyzeValue(counter{})
	assert.ErrorIs(t, err, errors.ErrInvalidElement)

	_, err = AnalyzeValue(variadic{})
	assert.ErrorIs(t, err, errors.ErrInvalidElement)

	_, err = Analyze(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidElement)
}

func TestSignature_Tokens(t *testing.T) {
	sig, err := AnalyzeValue(adder{})
	require.NoError(t, err)
	assert.True(t, sig.InputType().IsTuple())
	assert.Equal(t, "(int, float64)", sig.InputType().String())
	assert.True(t, sig.OutputType().Equal(flow.TypeOf[float64]()))
	assert.Equal(t, "(int, float64) -> (float64, error)", sig.String())

	sig, err = AnalyzeValue(&counter{})
	require.NoError(t, err)
	assert.True(t, sig.InputType().Equal(flow.SignalType))

	sig, err = AnalyzeValue(&sink{})
	require.NoError(t, err)
	assert.True(t, sig.OutputType().Equal(flow.SignalType))

	sig, err = AnalyzeValue(router{})
	require.NoError(t, err)
	ports := sig.OutputPortTypes()
	require.Len(t, ports, 2)
	assert.True(t, ports[1].Equal(flow.TypeOf[string]()))
	assert.Equal(t, "(int) -> (optional int, optional string)", sig.String())
}

func TestPredicates(t *testing.T) {
	sigOf := func(e any) Signature {
		sig, err := AnalyzeValue(e)
		require.NoError(t, err)
		return sig
	}
	src, join, split, multi, snk := sigOf(&counter{}), sigOf(adder{}), sigOf(splitter{}), sigOf(router{}), sigOf(&sink{})

	assert.True(t, CanSource(src))
	assert.False(t, CanSource(snk))
	assert.True(t, CanContinue(src))
	assert.False(t, CanContinue(join))
	assert.True(t, CanFunction(snk))
	assert.False(t, CanFunction(multi))
	assert.False(t, CanSource(sigOf(maybeSource{})))
	assert.False(t, CanContinue(sigOf(maybeSource{})))
	assert.True(t, CanMultifunction(multi))
	assert.False(t, CanMultifunction(split))
	assert.True(t, CanJoin(join))
	assert.False(t, CanJoin(split))
	assert.True(t, CanSplit(split))
	assert.False(t, CanSplit(multi))
	assert.False(t, CanSplit(join))
}

func TestBound_Invoke(t *testing.T) {
	b, err := Bind(adder{})
	require.NoError(t, err)

	outs, err := b.Invoke([]any{10, 0.1})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.InDelta(t, 10.1, outs[0], 1e-9)

	v, err := b.Process(flow.Tuple{1, 2.5})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v, 1e-9)

	_, err = b.Invoke([]any{1})
	assert.ErrorIs(t, err, errors.ErrInvalidElement)

	_, err = b.Invoke([]any{1.0, 2.0})
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)

	_, err = b.Process(3)
	assert.ErrorIs(t, err, errors.ErrTypeMismatch)
	assert.Equal(t, int64(2), b.Calls())
}

func TestBound_ErrorsAndPanics(t *testing.T) {
	b, err := Bind(failing{})
	require.NoError(t, err)

	_, err = b.Process(-1)
	assert.EqualError(t, err, "negative")

	_, err = b.Process(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recovered panic: zero")

	v, err := b.Process(5)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestBound_VoidAndOptional(t *testing.T) {
	s := &sink{}
	b, err := Bind(s)
	require.NoError(t, err)
	v, err := b.Process(4)
	require.NoError(t, err)
	assert.Equal(t, flow.Signal{}, v)
	assert.Equal(t, []int{4}, s.got)

	r, err := Bind(router{})
	require.NoError(t, err)
	outs, err := r.Invoke([]any{3})
	require.NoError(t, err)
	require.Len(t, outs, 2)
	_, present := Unwrap(outs[0])
	assert.False(t, present)
	val, present := Unwrap(outs[1])
	assert.True(t, present)
	assert.Equal(t, "odd", val)

	plain, present := Unwrap(7)
	assert.True(t, present)
	assert.Equal(t, 7, plain)
}

func TestBound_Stopped(t *testing.T) {
	c := &counter{limit: 2}
	b, err := Bind(c)
	require.NoError(t, err)
	assert.False(t, b.Stopped())
	_, _ = b.Process(flow.Signal{})
	assert.False(t, b.Stopped())
	_, _ = b.Process(flow.Signal{})
	assert.True(t, b.Stopped())

	// no IsStopped: one call only
	f, err := Bind(Func[int, int](func(v int) (int, error) { return v, nil }))
	require.NoError(t, err)
	assert.False(t, f.Stopped())
	_, _ = f.Process(1)
	assert.True(t, f.Stopped())
}

func TestOptional(t *testing.T) {
	v, ok := Some(3).Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = None[int]().Get()
	assert.False(t, ok)
	assert.False(t, None[string]().IsPresent())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, []string{"collects ints"}, Describe(described{}))
	assert.Nil(t, Describe(adder{}))
}
