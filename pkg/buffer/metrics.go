package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/flowpipe/metric"
)

// bufferMetrics exports buffer activity as flowpipe_buffer_* series labelled
// with buffer=<name>.
type bufferMetrics struct {
	ops  *prometheus.CounterVec
	size prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, name string) (*bufferMetrics, error) {
	labels := prometheus.Labels{"buffer": name}
	m := &bufferMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        "operations_total",
			Help:        "Buffer operations by kind (write, read, drop)",
			ConstLabels: labels,
		}, []string{"op"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        "size",
			Help:        "Items held",
			ConstLabels: labels,
		}),
	}

	err := registry.RegisterAll("buffer/"+name, map[string]prometheus.Collector{
		"operations": m.ops,
		"size":       m.size,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *bufferMetrics) recordWrite(size int) {
	m.ops.WithLabelValues("write").Inc()
	m.size.Set(float64(size))
}

func (m *bufferMetrics) recordRead(size int) {
	m.ops.WithLabelValues("read").Inc()
	m.size.Set(float64(size))
}

func (m *bufferMetrics) recordDrop() {
	m.ops.WithLabelValues("drop").Inc()
}

func (m *bufferMetrics) updateSize(size int) {
	m.size.Set(float64(size))
}
