package basic

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/flow"
	"github.com/c360/flowpipe/view"
)

type mockCloser struct {
	mock.Mock
}

func (m *mockCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestJSONLines_Next(t *testing.T) {
	in := strings.NewReader("[1, 2.5, \"a\", true]\n[null, 3, \"b\", false]\n")
	h, err := NewJSONLines(in, &bytes.Buffer{}, nil, []string{"int", "float64", "string", "bool"})
	require.NoError(t, err)

	closer := &mockCloser{}
	closer.On("Close").Return(nil).Once()
	h.closers = []io.Closer{closer}

	ctx := context.Background()
	values, done, err := h.Next(ctx)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []any{1, 2.5, "a", true}, values)

	values, done, err = h.Next(ctx)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []any{nil, 3.0, "b", false}, values)

	_, done, err = h.Next(ctx)
	require.NoError(t, err)
	assert.True(t, done)
	closer.AssertExpectations(t)
}

func TestJSONLines_NextErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not json", "{oops\n", errors.ErrParsingFailed},
		{"too few values", "[1]\n", errors.ErrTypeMismatch},
		{"wrong value type", "[\"1\", 2]\n", errors.ErrTypeMismatch},
		{"fraction for int", "[1.5, 2]\n", errors.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewJSONLines(strings.NewReader(tt.input), &bytes.Buffer{}, nil, []string{"int", "float64"})
			require.NoError(t, err)
			_, _, err = h.Next(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestJSONLines_Handle(t *testing.T) {
	var out bytes.Buffer
	h, err := NewJSONLines(strings.NewReader(""), &out, []string{"float64", "string"}, nil)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), view.Frame{Values: [][]any{{0.5, 1.5}, nil}}))
	assert.Equal(t, "[[0.5,1.5],[]]\n", out.String())
	assert.Equal(t, []flow.Type{flow.TypeOf[float64](), flow.TypeOf[string]()}, h.InputTypes())
	assert.Empty(t, h.OutputTypes())
}

func TestJSONLines_UnsupportedType(t *testing.T) {
	_, err := NewJSONLines(strings.NewReader(""), &bytes.Buffer{}, []string{"complex128"}, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestNewJSONLinesView(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "in.jsonl")
	sink := filepath.Join(dir, "out.jsonl")
	require.NoError(t, os.WriteFile(source, []byte("[4]\n"), 0o644))

	g := flow.NewGraph()
	t.Cleanup(func() { _ = g.Close() })

	v, err := NewJSONLinesView(config.Tree{
		"source":       source,
		"sink":         sink,
		"input_types":  []any{"float64"},
		"output_types": []any{"int"},
	}, g)
	require.NoError(t, err)
	assert.Equal(t, []flow.Type{flow.TypeOf[float64]()}, v.Inputs())
	assert.Equal(t, []flow.Type{flow.TypeOf[int]()}, v.Outputs())

	_, err = NewJSONLinesView(config.Tree{"source": filepath.Join(dir, "absent.jsonl")}, g)
	assert.True(t, errors.IsInvalid(err))
}
