package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the engine-level metrics shared by every pipeline
type Metrics struct {
	PipelineStatus     *prometheus.GaugeVec
	NodeInvocations    *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	TasksInFlight      *prometheus.GaugeVec
	Frames             *prometheus.CounterVec
	FramesInFlight     *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PipelineStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "pipeline",
				Name:      "status",
				Help:      "Pipeline state (0=unconfigured, 1=graph created, 2=nodes created, 3=connected, 4=ready, 5=running, 6=failed)",
			},
			[]string{"pipeline"},
		),

		NodeInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "node",
				Name:      "invocations_total",
				Help:      "Total number of element invocations",
			},
			[]string{"node", "status"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "node",
				Name:      "processing_duration_seconds",
				Help:      "Element processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"node", "type"},
		),

		TasksInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "graph",
				Name:      "tasks_in_flight",
				Help:      "Tasks scheduled on a graph and not yet finished",
			},
			[]string{"graph"},
		),

		Frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "frames",
				Name:      "total",
				Help:      "Frames counted by node counters",
			},
			[]string{"counter", "event"},
		),

		FramesInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "frames",
				Name:      "in_flight",
				Help:      "Frames started and not yet processed, per counter",
			},
			[]string{"counter"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.PipelineStatus,
		c.NodeInvocations,
		c.ProcessingDuration,
		c.ErrorsTotal,
		c.TasksInFlight,
		c.Frames,
		c.FramesInFlight,
	}
}

// RecordPipelineStatus updates pipeline state metric
func (c *Metrics) RecordPipelineStatus(pipeline string, status int) {
	c.PipelineStatus.WithLabelValues(pipeline).Set(float64(status))
}

// RecordInvocation counts one element call and its duration
func (c *Metrics) RecordInvocation(node string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.NodeInvocations.WithLabelValues(node, status).Inc()
	c.ProcessingDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordError increments error counter
func (c *Metrics) RecordError(node, errorType string) {
	c.ErrorsTotal.WithLabelValues(node, errorType).Inc()
}

// RecordTasksInFlight sets the pending task gauge of a graph
func (c *Metrics) RecordTasksInFlight(graph string, n int64) {
	c.TasksInFlight.WithLabelValues(graph).Set(float64(n))
}
