package basic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowpipe/config"
	"github.com/c360/flowpipe/element"
	"github.com/c360/flowpipe/errors"
)

func TestCounter(t *testing.T) {
	c, err := NewCounter(config.Tree{"start": 5, "step": 5, "count": 3})
	require.NoError(t, err)

	var got []int
	for !c.IsStopped() {
		got = append(got, c.Process())
	}
	assert.Equal(t, []int{5, 10, 15}, got)

	sig, err := element.AnalyzeValue(c)
	require.NoError(t, err)
	assert.True(t, element.CanSource(sig))
}

func TestCounter_Defaults(t *testing.T) {
	c, err := NewCounter(nil)
	require.NoError(t, err)

	calls := 0
	for !c.IsStopped() {
		assert.Equal(t, calls, c.Process())
		calls++
	}
	assert.Equal(t, 10, calls)
}

func TestCounter_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Tree
	}{
		{"zero count", config.Tree{"count": 0}},
		{"negative count", config.Tree{"count": -2}},
		{"wrong type", config.Tree{"start": "ten"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCounter(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestDivide(t *testing.T) {
	d, err := NewDivide(config.Tree{"divisor": 100})
	require.NoError(t, err)
	assert.Equal(t, 0.1, d.Process(10))

	_, err = NewDivide(config.Tree{"divisor": 0})
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestScaleAndAdd(t *testing.T) {
	s, err := NewScale(config.Tree{"factor": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.Process(2))
	assert.Equal(t, 4.5, Add{}.Process(2, 2.5))
	assert.Equal(t, 10.1, Sum{}.Process(10, 0.1))
}

func TestParity(t *testing.T) {
	even, odd := Parity{}.Process(4)
	v, ok := even.Get()
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	assert.False(t, odd.IsPresent())

	even, odd = Parity{}.Process(7)
	assert.False(t, even.IsPresent())
	assert.True(t, odd.IsPresent())

	sig, err := element.AnalyzeValue(Parity{})
	require.NoError(t, err)
	assert.True(t, element.CanMultifunction(sig))
}

func TestFork_Signature(t *testing.T) {
	sig, err := element.AnalyzeValue(Fork{})
	require.NoError(t, err)
	assert.True(t, element.CanSplit(sig))
	assert.Len(t, sig.OutputPortTypes(), 2)
}

func TestFormat(t *testing.T) {
	f, err := NewFormat(config.Tree{"format": "%.2f"})
	require.NoError(t, err)
	assert.Equal(t, "10.10", f.Process(10.1))

	f, err = NewFormat(nil)
	require.NoError(t, err)
	assert.Equal(t, "10.1", f.Process(10.1))
}

func TestPrinter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	p, err := NewPrinter[float64](config.Tree{"path": path, "prefix": "E: "})
	require.NoError(t, err)

	require.NoError(t, p.Process(10.1))
	require.NoError(t, p.Process(2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "E: 10.1\nE: 2\n", string(data))

	sig, err := element.AnalyzeValue(p)
	require.NoError(t, err)
	assert.True(t, sig.HasError)
	assert.Empty(t, sig.Outputs)
}

func TestPrinter_BadPath(t *testing.T) {
	_, err := NewPrinter[int](config.Tree{"path": filepath.Join(t.TempDir(), "missing", "out.txt")})
	assert.True(t, errors.IsInvalid(err))
}

func TestBeat(t *testing.T) {
	b, err := NewBeat(nil)
	require.NoError(t, err)
	b.Process()
	b.Process()
	assert.Equal(t, int64(2), b.Beats())

	sig, err := element.AnalyzeValue(b)
	require.NoError(t, err)
	assert.True(t, element.CanContinue(sig))
	assert.False(t, element.CanSource(sig))
}

func TestDescriptions(t *testing.T) {
	assert.Contains(t, element.Describe(&Counter{})[0], "Emits count integers")
	assert.Equal(t, "Writes each string value on its own line.", element.Describe(&Printer[string]{})[0])
}
