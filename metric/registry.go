package metric

import (
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/flowpipe/errors"
)

// Namespace prefixes every metric exported by flowpipe.
const Namespace = "flowpipe"

// MetricsRegistry owns a private Prometheus registry: the Go and process
// collectors, the core engine metrics and collectors added by pools and buffers.
// Added collectors are tracked by owner and name so they can be removed again.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics

	mu    sync.Mutex
	owned map[string]prometheus.Collector
}

// NewMetricsRegistry creates a registry holding the core engine metrics.
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
		owned:              make(map[string]prometheus.Collector),
	}
	r.prometheusRegistry.MustRegister(r.Metrics.collectors()...)
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core engine metrics; nil for a nil registry.
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	if r == nil {
		return nil
	}
	return r.Metrics
}

func ownedKey(owner, name string) string { return owner + "/" + name }

// Register adds c under owner and name. A pair that is already taken, or a
// collector Prometheus refuses as a duplicate, is an Invalid error.
func (r *MetricsRegistry) Register(owner, name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ownedKey(owner, name)
	if _, taken := r.owned[key]; taken {
		return errors.WrapInvalid(fmt.Errorf("metric %s of %s already registered", name, owner),
			"MetricsRegistry", "Register", "reserve name")
	}

	if err := r.prometheusRegistry.Register(c); err != nil {
		var dup prometheus.AlreadyRegisteredError
		if stderrors.As(err, &dup) {
			return errors.WrapInvalid(err, "MetricsRegistry", "Register", fmt.Sprintf("add %s of %s", name, owner))
		}
		return errors.WrapFatal(err, "MetricsRegistry", "Register", "add collector")
	}
	r.owned[key] = c
	return nil
}

// RegisterAll adds every named collector of owner. On failure the collectors
// added so far are removed again.
func (r *MetricsRegistry) RegisterAll(owner string, named map[string]prometheus.Collector) error {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if err := r.Register(owner, name, named[name]); err != nil {
			for _, done := range names[:i] {
				r.Unregister(owner, done)
			}
			return err
		}
	}
	return nil
}

// Unregister removes the collector of owner named name.
func (r *MetricsRegistry) Unregister(owner, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ownedKey(owner, name)
	c, ok := r.owned[key]
	if !ok || !r.prometheusRegistry.Unregister(c) {
		return false
	}
	delete(r.owned, key)
	return true
}

// Registered returns the owner/name keys of the added collectors, sorted.
func (r *MetricsRegistry) Registered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.owned))
	for key := range r.owned {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
