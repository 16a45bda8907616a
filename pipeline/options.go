package pipeline

import (
	"log/slog"

	"github.com/c360/flowpipe/metric"
)

// Option configures assembly.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	metrics  *metric.MetricsRegistry
	validate bool
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default(), validate: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger of the pipeline and its graph.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics reports pipeline, graph and node metrics to registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		o.metrics = registry
	}
}

// WithoutValidation skips the schema check of the pipeline section.
func WithoutValidation() Option {
	return func(o *options) {
		o.validate = false
	}
}
