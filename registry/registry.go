// Package registry provides a keyed factory of constructors.
//
// Entries are keyed by the Go type of the constructor and a string key, so the
// same key can name an element constructor, a node constructor and a kind tag
// at the same time without collisions:
//
//	f := registry.New()
//	registry.Register[GraphConstructor](f, "default", newDefaultGraph)
//	ctor, ok := registry.Lookup[GraphConstructor](f, "default")
//
// The first registration of a (type, key) pair wins. Later ones are ignored and
// logged, never fatal.
//
// A Factory is safe for concurrent use, although pipelines only register during
// module loading and only look up during assembly.
package registry

import (
	"log/slog"
	"reflect"
	"sort"
	"sync"
)

type entryKey struct {
	typ reflect.Type
	key string
}

// Factory maps (constructor type, key) to a constructor value.
type Factory struct {
	mu      sync.RWMutex
	entries map[entryKey]any
	logger  *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used to report ignored registrations.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates an empty factory.
func New(opts ...Option) *Factory {
	f := &Factory{
		entries: make(map[entryKey]any),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "registry")
	return f
}

func keyOf[F any](key string) entryKey {
	return entryKey{typ: reflect.TypeOf((*F)(nil)).Elem(), key: key}
}

// Register stores ctor under key for the type F. It returns false, keeping the
// existing entry, when the pair is already present or key is empty.
func Register[F any](f *Factory, key string, ctor F) bool {
	typ := reflect.TypeOf((*F)(nil)).Elem()
	if key == "" {
		f.logger.Warn("registration with empty key ignored", "type", typ.String())
		return false
	}

	k := keyOf[F](key)
	f.mu.Lock()
	if _, exists := f.entries[k]; exists {
		f.mu.Unlock()
		f.logger.Warn("duplicate registration ignored", "type", typ.String(), "key", key)
		return false
	}
	f.entries[k] = ctor
	f.mu.Unlock()

	f.logger.Debug("registered", "type", typ.String(), "key", key)
	return true
}

// Lookup returns the entry stored under key for the type F.
func Lookup[F any](f *Factory, key string) (F, bool) {
	f.mu.RLock()
	v, ok := f.entries[keyOf[F](key)]
	f.mu.RUnlock()

	if !ok {
		var zero F
		return zero, false
	}
	return v.(F), true
}

// Has reports whether an entry of type F exists under key.
func Has[F any](f *Factory, key string) bool {
	_, ok := Lookup[F](f, key)
	return ok
}

// Keys returns the sorted keys registered for the type F.
func Keys[F any](f *Factory) []string {
	typ := reflect.TypeOf((*F)(nil)).Elem()

	f.mu.RLock()
	var keys []string
	for k := range f.entries {
		if k.typ == typ {
			keys = append(keys, k.key)
		}
	}
	f.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of entries of all types.
func (f *Factory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Logger returns the factory's logger.
func (f *Factory) Logger() *slog.Logger {
	return f.logger
}
