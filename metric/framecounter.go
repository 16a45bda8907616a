package metric

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// FrameCounter counts frames passing a point of a pipeline. A frame is opened with
// NewFrame and closed with FrameProcessed; counters sharing a name share their series.
type FrameCounter interface {
	NewFrame()
	FrameProcessed()
}

// Counter is the default FrameCounter. It keeps local totals and, when created with a
// registry, mirrors them into the core frame metrics.
type Counter struct {
	name      string
	started   atomic.Int64
	processed atomic.Int64

	newFrames  prometheus.Counter
	doneFrames prometheus.Counter
	inFlight   prometheus.Gauge
}

// NewFrameCounter creates a counter named name. registry may be nil.
func NewFrameCounter(registry *MetricsRegistry, name string) *Counter {
	c := &Counter{name: name}
	if core := registry.CoreMetrics(); core != nil {
		c.newFrames = core.Frames.WithLabelValues(name, "new")
		c.doneFrames = core.Frames.WithLabelValues(name, "processed")
		c.inFlight = core.FramesInFlight.WithLabelValues(name)
	}
	return c
}

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// NewFrame records the start of a frame.
func (c *Counter) NewFrame() {
	c.started.Add(1)
	if c.newFrames != nil {
		c.newFrames.Inc()
		c.inFlight.Inc()
	}
}

// FrameProcessed records the end of a frame.
func (c *Counter) FrameProcessed() {
	c.processed.Add(1)
	if c.doneFrames != nil {
		c.doneFrames.Inc()
		c.inFlight.Dec()
	}
}

// Started returns the number of frames opened.
func (c *Counter) Started() int64 { return c.started.Load() }

// Processed returns the number of frames closed.
func (c *Counter) Processed() int64 { return c.processed.Load() }
