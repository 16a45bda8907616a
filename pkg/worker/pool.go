// Package worker provides a generic worker pool with priority lanes
package worker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/flowpipe/metric"
	"github.com/c360/flowpipe/pkg/buffer"
)

// Pool represents a generic worker pool that can process any work type T.
// Work is queued in one FIFO lane per priority; workers always serve the
// highest non-empty lane first.
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error

	// queue state, guarded by queueMu
	queueMu    sync.Mutex
	lanes      map[uint]buffer.Buffer[T]
	priorities []uint // descending
	depth      int

	wake    chan struct{}
	quit    chan struct{}
	metrics *Metrics
	wg      *sync.WaitGroup

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted int64
	processed int64
	failed    int64
	dropped   int64

	metricsRegistry *metric.MetricsRegistry
	metricsPrefix   string
}

// Metrics holds Prometheus metrics for worker pool monitoring
type Metrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option represents a configuration option for the worker pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry configures the pool to register metrics with the framework's registry
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, prefix string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsPrefix = prefix
	}
}

// NewPool creates a new worker pool. A queueSize of zero or less means the queue is
// unbounded; otherwise Submit refuses work beyond queueSize pending items.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 10
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	pool := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		lanes:     make(map[uint]buffer.Buffer[T]),
		wake:      make(chan struct{}, workers),
		quit:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(pool)
	}

	if pool.metricsRegistry != nil && pool.metricsPrefix != "" {
		pool.initializeMetrics()
	}

	return pool
}

// initializeMetrics exports the pool as flowpipe_worker_* series labelled
// with pool=prefix. The pool runs unobserved if registration fails.
func (p *Pool[T]) initializeMetrics() {
	labels := prometheus.Labels{"pool": p.metricsPrefix}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: "queue_depth",
			Help: "Tasks waiting in the lanes", ConstLabels: labels,
		}),
		submitted: counter("submitted_total", "Tasks submitted"),
		processed: counter("processed_total", "Tasks run"),
		failed:    counter("failed_total", "Tasks that returned an error"),
		dropped:   counter("dropped_total", "Tasks refused because the queue was full"),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: "task_duration_seconds",
			Help: "Task run time", ConstLabels: labels,
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"status"}),
	}

	err := p.metricsRegistry.RegisterAll("worker/"+p.metricsPrefix, map[string]prometheus.Collector{
		"queue_depth":   m.queueDepth,
		"submitted":     m.submitted,
		"processed":     m.processed,
		"failed":        m.failed,
		"dropped":       m.dropped,
		"task_duration": m.processingTime,
	})
	if err != nil {
		return
	}
	p.metrics = m
}

// Submit queues work at priority 0.
func (p *Pool[T]) Submit(work T) error {
	return p.SubmitPriority(work, 0)
}

// SubmitPriority queues work in the lane for priority. Higher priorities run first;
// work within a lane runs in submission order. It never blocks.
func (p *Pool[T]) SubmitPriority(work T, priority uint) error {
	p.lifecycleMu.Lock()
	started, stopped := p.started, p.stopped
	p.lifecycleMu.Unlock()

	if !started {
		return ErrPoolNotStarted
	}
	if stopped {
		return ErrPoolStopped
	}

	p.queueMu.Lock()
	if p.queueSize > 0 && p.depth >= p.queueSize {
		p.queueMu.Unlock()
		atomic.AddInt64(&p.dropped, 1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
	lane, ok := p.lanes[priority]
	if !ok {
		lane = buffer.NewQueue[T]()
		p.lanes[priority] = lane
		p.priorities = append(p.priorities, priority)
		sort.Slice(p.priorities, func(i, j int) bool { return p.priorities[i] > p.priorities[j] })
	}
	_ = lane.Write(work)
	p.depth++
	depth := p.depth
	p.queueMu.Unlock()

	atomic.AddInt64(&p.submitted, 1)
	if p.metrics != nil {
		p.metrics.submitted.Inc()
		p.metrics.queueDepth.Set(float64(depth))
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// next pops the oldest item of the highest non-empty lane.
func (p *Pool[T]) next() (T, bool) {
	p.queueMu.Lock()
	defer p.queueMu.Unlock()

	for _, priority := range p.priorities {
		if work, ok := p.lanes[priority].Read(); ok {
			p.depth--
			return work, true
		}
	}
	var zero T
	return zero, false
}

// Start starts the worker pool
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	p.wg = &sync.WaitGroup{}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.started = true
	return nil
}

// Stop refuses new work, lets workers drain the queue and waits for them.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if !p.started || p.stopped {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.quit)
	wg := p.wg
	p.lifecycleMu.Unlock()

	// workers may still call Submit from inside a processor, so wait unlocked
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	p.queueMu.Lock()
	depth := p.depth
	p.queueMu.Unlock()

	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: depth,
		Submitted:  atomic.LoadInt64(&p.submitted),
		Processed:  atomic.LoadInt64(&p.processed),
		Failed:     atomic.LoadInt64(&p.failed),
		Dropped:    atomic.LoadInt64(&p.dropped),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

// worker drains the lanes, then sleeps until woken, stopped or cancelled.
func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		if work, ok := p.next(); ok {
			p.process(ctx, work)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			if p.Stats().QueueDepth == 0 {
				return
			}
		case <-p.wake:
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, work T) {
	start := time.Now()
	err := p.processor(ctx, work)
	duration := time.Since(start)

	atomic.AddInt64(&p.processed, 1)
	if err != nil {
		atomic.AddInt64(&p.failed, 1)
	}

	if p.metrics != nil {
		p.metrics.processed.Inc()
		status := "success"
		if err != nil {
			p.metrics.failed.Inc()
			status = "error"
		}
		p.metrics.processingTime.WithLabelValues(status).Observe(duration.Seconds())
		p.metrics.queueDepth.Set(float64(p.Stats().QueueDepth))
	}
}
