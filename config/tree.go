package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/c360/flowpipe/errors"
)

// Tree is a format-agnostic configuration subtree. Every loader produces the same
// shape: maps are Tree-compatible map[string]any, lists are []any and numbers are float64.
//
// Accessors never panic. A missing key or a value of the wrong type yields the default.
type Tree map[string]any

// String returns the string at key or def.
func (t Tree) String(key string, def string) string {
	if val, ok := t[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return def
}

// Int returns the integer at key or def.
func (t Tree) Int(key string, def int) int {
	if n, ok := toInt64(t[key]); ok {
		return int(n)
	}
	return def
}

// Uint returns the non-negative integer at key or def.
func (t Tree) Uint(key string, def uint) uint {
	if n, ok := toInt64(t[key]); ok && n >= 0 {
		return uint(n)
	}
	return def
}

// Float64 returns the number at key or def.
func (t Tree) Float64(key string, def float64) float64 {
	switch v := t[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return def
}

// Bool returns the boolean at key or def.
func (t Tree) Bool(key string, def bool) bool {
	if v, ok := t[key].(bool); ok {
		return v
	}
	return def
}

// Duration returns the duration at key or def. Strings use time.ParseDuration syntax
// plus a "d" suffix for days; bare numbers are seconds.
func (t Tree) Duration(key string, def time.Duration) time.Duration {
	switch v := t[key].(type) {
	case string:
		if d, err := parseDurationWithDays(v); err == nil {
			return d
		}
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	}
	return def
}

// StringSlice returns the list of strings at key or def. A list holding anything
// other than strings is treated as absent.
func (t Tree) StringSlice(key string, def []string) []string {
	switch v := t[key].(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return def
			}
			result = append(result, str)
		}
		return result
	}
	return def
}

// Has reports whether key is present.
func (t Tree) Has(key string) bool {
	_, ok := t[key]
	return ok
}

// RequireString returns the non-empty string at key.
func (t Tree) RequireString(key string) (string, error) {
	str, ok := t[key].(string)
	if !ok || str == "" {
		return "", errors.WrapInvalid(errors.ErrMissingConfig, "Tree", "RequireString", fmt.Sprintf("read %q", key))
	}
	return str, nil
}

// RequireUint returns the non-negative integer at key.
func (t Tree) RequireUint(key string) (uint, error) {
	val, present := t[key]
	if !present {
		return 0, errors.WrapInvalid(errors.ErrMissingConfig, "Tree", "RequireUint", fmt.Sprintf("read %q", key))
	}
	n, ok := toInt64(val)
	if !ok || n < 0 {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: %q is %v, want unsigned integer", errors.ErrInvalidConfig, key, val),
			"Tree", "RequireUint", fmt.Sprintf("read %q", key))
	}
	return uint(n), nil
}

// UintOr is RequireUint with a default for an absent key. A present value that
// is not an unsigned integer is an error rather than def.
func (t Tree) UintOr(key string, def uint) (uint, error) {
	if _, present := t[key]; !present {
		return def, nil
	}
	return t.RequireUint(key)
}

// Child returns the subtree at key.
func (t Tree) Child(key string) (Tree, bool) {
	return asTree(t[key])
}

// Children returns the list of subtrees at key. A single map is a list of one;
// a missing key is an empty list.
func (t Tree) Children(key string) ([]Tree, error) {
	val, ok := t[key]
	if !ok || val == nil {
		return nil, nil
	}
	if child, ok := asTree(val); ok {
		return []Tree{child}, nil
	}

	items, ok := val.([]any)
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q is %T, want list", errors.ErrInvalidConfig, key, val),
			"Tree", "Children", fmt.Sprintf("read %q", key))
	}
	result := make([]Tree, 0, len(items))
	for i, item := range items {
		child, ok := asTree(item)
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s[%d] is %T, want map", errors.ErrInvalidConfig, key, i, item),
				"Tree", "Children", fmt.Sprintf("read %q", key))
		}
		result = append(result, child)
	}
	return result, nil
}

// Lookup walks a dotted path such as "graph.workers".
func (t Tree) Lookup(path string) (any, bool) {
	current := t
	keys := strings.Split(path, ".")
	for i, key := range keys {
		val, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return val, true
		}
		if current, ok = asTree(val); !ok {
			return nil, false
		}
	}
	return nil, false
}

// Decode copies the tree into v through its JSON tags.
func (t Tree) Decode(v any) error {
	data, err := json.Marshal(t)
	if err != nil {
		return errors.WrapInvalid(err, "Tree", "Decode", "marshal tree")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Tree", "Decode", "unmarshal tree")
	}
	return nil
}

func asTree(val any) (Tree, bool) {
	switch v := val.(type) {
	case Tree:
		return v, true
	case map[string]any:
		return Tree(v), true
	}
	return nil, false
}

func toInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func parseDurationWithDays(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
