package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/flowpipe/errors"
)

func TestTree_Accessors(t *testing.T) {
	tree := Tree{
		"name":     "A",
		"count":    float64(3),
		"negative": float64(-1),
		"ratio":    0.5,
		"enabled":  true,
		"timeout":  "1500ms",
		"ttl":      "2d",
		"seconds":  float64(3),
		"tags":     []any{"x", "y"},
		"mixed":    []any{"x", 1.0},
		"fraction": 1.5,
	}

	assert.Equal(t, "A", tree.String("name", "default"))
	assert.Equal(t, "default", tree.String("missing", "default"))
	assert.Equal(t, "default", tree.String("count", "default"))

	assert.Equal(t, 3, tree.Int("count", 0))
	assert.Equal(t, -1, tree.Int("negative", 0))
	assert.Equal(t, 7, tree.Int("fraction", 7))

	assert.Equal(t, uint(3), tree.Uint("count", 0))
	assert.Equal(t, uint(9), tree.Uint("negative", 9))

	assert.InDelta(t, 0.5, tree.Float64("ratio", 0), 1e-9)
	assert.InDelta(t, 3.0, tree.Float64("count", 0), 1e-9)

	assert.True(t, tree.Bool("enabled", false))
	assert.True(t, tree.Bool("missing", true))

	assert.Equal(t, 1500*time.Millisecond, tree.Duration("timeout", 0))
	assert.Equal(t, 48*time.Hour, tree.Duration("ttl", 0))
	assert.Equal(t, 3*time.Second, tree.Duration("seconds", 0))
	assert.Equal(t, time.Minute, tree.Duration("name", time.Minute))

	assert.Equal(t, []string{"x", "y"}, tree.StringSlice("tags", nil))
	assert.Nil(t, tree.StringSlice("mixed", nil))

	assert.True(t, tree.Has("name"))
	assert.False(t, tree.Has("missing"))
}

func TestTree_Require(t *testing.T) {
	tree := Tree{"name": "A", "empty": "", "count": float64(2), "bad": "x", "neg": float64(-2)}

	name, err := tree.RequireString("name")
	require.NoError(t, err)
	assert.Equal(t, "A", name)

	_, err = tree.RequireString("empty")
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.True(t, errors.IsInvalid(err))

	_, err = tree.RequireString("missing")
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.Contains(t, err.Error(), `"missing"`)

	n, err := tree.RequireUint("count")
	require.NoError(t, err)
	assert.Equal(t, uint(2), n)

	_, err = tree.RequireUint("missing")
	assert.ErrorIs(t, err, errors.ErrMissingConfig)

	_, err = tree.RequireUint("bad")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = tree.RequireUint("neg")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	n, err = tree.UintOr("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), n)

	n, err = tree.UintOr("count", 7)
	require.NoError(t, err)
	assert.Equal(t, uint(2), n)

	_, err = tree.UintOr("neg", 7)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	assert.Equal(t, uint(0), tree.Uint("neg", 0), "lenient accessor still falls back")
}

func TestTree_Children(t *testing.T) {
	tree := Tree{
		"graph":  map[string]any{"type": "serial"},
		"nodes":  []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}},
		"broken": []any{"A"},
		"scalar": "x",
	}

	graph, ok := tree.Child("graph")
	require.True(t, ok)
	assert.Equal(t, "serial", graph.String("type", ""))

	_, ok = tree.Child("nodes")
	assert.False(t, ok)

	nodes, err := tree.Children("nodes")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "B", nodes[1].String("name", ""))

	single, err := tree.Children("graph")
	require.NoError(t, err)
	assert.Len(t, single, 1)

	missing, err := tree.Children("missing")
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = tree.Children("broken")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = tree.Children("scalar")
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestTree_LookupAndDecode(t *testing.T) {
	tree := Tree{
		"graph": map[string]any{"type": "serial", "workers": float64(2)},
	}

	val, ok := tree.Lookup("graph.workers")
	require.True(t, ok)
	assert.Equal(t, float64(2), val)

	_, ok = tree.Lookup("graph.missing")
	assert.False(t, ok)
	_, ok = tree.Lookup("graph.type.deeper")
	assert.False(t, ok)

	var decoded struct {
		Graph struct {
			Type    string `json:"type"`
			Workers int    `json:"workers"`
		} `json:"graph"`
	}
	require.NoError(t, tree.Decode(&decoded))
	assert.Equal(t, "serial", decoded.Graph.Type)
	assert.Equal(t, 2, decoded.Graph.Workers)

	var wrong struct {
		Graph string `json:"graph"`
	}
	assert.ErrorIs(t, tree.Decode(&wrong), errors.ErrInvalidConfig)
}
