package buffer

import (
	"github.com/c360/flowpipe/metric"
)

// Option configures a buffer.
type Option[T any] func(*bufferOptions[T])

type bufferOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]
	metricsReg     *metric.MetricsRegistry
	metricsName    string
}

// WithOverflowPolicy picks what a full buffer does on Write. The default is DropOldest.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(o *bufferOptions[T]) { o.overflowPolicy = policy }
}

// WithMetrics exports the buffer under the label buffer=name. A nil registry
// or an empty name leaves the buffer unobserved. The name must be unique per
// registry.
func WithMetrics[T any](registry *metric.MetricsRegistry, name string) Option[T] {
	return func(o *bufferOptions[T]) {
		if registry == nil || name == "" {
			return
		}
		o.metricsReg, o.metricsName = registry, name
	}
}

// WithDropCallback sees every item lost to overflow or Clear.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(o *bufferOptions[T]) { o.dropCallback = callback }
}

func applyOptions[T any](options ...Option[T]) *bufferOptions[T] {
	o := &bufferOptions[T]{overflowPolicy: DropOldest}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
