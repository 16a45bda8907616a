package flow

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/flowpipe/errors"
	"github.com/c360/flowpipe/metric"
	"github.com/c360/flowpipe/pkg/worker"
)

const stopTimeout = 5 * time.Second

type task struct {
	name string
	fn   func() error
	skip func()
}

// Graph schedules node tasks on a worker pool and tracks how many are pending.
// The first failing task puts the graph in a failed state: queued and newly
// spawned tasks are skipped until WaitForAll or Wait reports the error.
type Graph struct {
	id      string
	workers int
	pool    *worker.Pool[task]
	cancel  context.CancelFunc
	logger  *slog.Logger
	metrics *metric.MetricsRegistry

	mu      sync.Mutex
	pending int64
	idle    chan struct{} // closed while pending == 0
	errs    []error
	failed  bool
	closed  bool

	frozen atomic.Bool
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithWorkers sets the pool size. Zero keeps the default of GOMAXPROCS.
func WithWorkers(n int) GraphOption {
	return func(g *Graph) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics attaches a metrics registry used by the graph and its nodes.
func WithMetrics(registry *metric.MetricsRegistry) GraphOption {
	return func(g *Graph) {
		g.metrics = registry
	}
}

// NewGraph creates a graph with a started worker pool.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		id:      uuid.NewString(),
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
		idle:    make(chan struct{}),
	}
	close(g.idle)

	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "graph", "graph_id", g.id)

	var poolOpts []worker.Option[task]
	if g.metrics != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[task](g.metrics, "graph-"+shortID(g.id)))
	}
	g.pool = worker.NewPool(g.workers, 0, func(_ context.Context, t task) error {
		return g.run(t)
	}, poolOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	// a fresh pool cannot fail to start
	_ = g.pool.Start(ctx)

	return g
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

// ID returns the graph identifier.
func (g *Graph) ID() string { return g.id }

// Workers returns the pool size.
func (g *Graph) Workers() int { return g.workers }

// Logger returns the graph logger.
func (g *Graph) Logger() *slog.Logger { return g.logger }

// Metrics returns the metrics registry, which may be nil.
func (g *Graph) Metrics() *metric.MetricsRegistry { return g.metrics }

// Freeze marks the end of assembly.
func (g *Graph) Freeze() { g.frozen.Store(true) }

// Frozen reports whether assembly is over and connections are rejected.
func (g *Graph) Frozen() bool { return g.frozen.Load() }

// Spawn schedules fn at the given priority and reports whether it was scheduled.
// Higher priorities run first. Nothing is scheduled while the graph is failed or
// closed.
func (g *Graph) Spawn(priority uint, name string, fn func() error) bool {
	return g.SpawnWithSkip(priority, name, fn, nil)
}

// SpawnWithSkip is Spawn for tasks holding state that must be undone when the
// graph fails before they start: skip runs in place of fn in that case.
func (g *Graph) SpawnWithSkip(priority uint, name string, fn func() error, skip func()) bool {
	g.mu.Lock()
	if g.failed || g.closed {
		g.mu.Unlock()
		return false
	}
	g.pending++
	if g.pending == 1 {
		g.idle = make(chan struct{})
	}
	pending := g.pending
	g.mu.Unlock()

	g.recordPending(pending)

	if err := g.pool.SubmitPriority(task{name: name, fn: fn, skip: skip}, priority); err != nil {
		g.finish(name, errors.WrapFatal(err, "Graph", "Spawn", fmt.Sprintf("submit task %s", name)))
		return false
	}
	return true
}

func (g *Graph) run(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapFatal(fmt.Errorf("recovered panic: %v", r), "Graph", "run", fmt.Sprintf("task %s", t.name))
		}
		g.finish(t.name, err)
	}()

	if g.Failed() {
		if t.skip != nil {
			t.skip()
		}
		return nil
	}
	return t.fn()
}

func (g *Graph) finish(name string, err error) {
	g.mu.Lock()
	if err != nil {
		g.errs = append(g.errs, err)
		g.failed = true
	}
	if g.pending > 0 {
		g.pending--
		if g.pending == 0 {
			close(g.idle)
		}
	}
	pending := g.pending
	g.mu.Unlock()

	if err != nil {
		g.logger.Error("Task failed", "task", name, "error", err)
		if node, ok := errors.NodeName(err); ok {
			if core := g.metrics.CoreMetrics(); core != nil {
				core.RecordError(node, errors.Classify(err).String())
			}
		}
	}
	g.recordPending(pending)
}

func (g *Graph) recordPending(n int64) {
	if core := g.metrics.CoreMetrics(); core != nil {
		core.RecordTasksInFlight(g.id, n)
	}
}

// Failed reports whether a task failed since the last WaitForAll.
func (g *Graph) Failed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failed
}

// Pending returns the number of scheduled or running tasks.
func (g *Graph) Pending() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// WaitForAll blocks until no task is pending and returns the errors collected
// since the previous call, joined. The graph is usable again afterwards.
func (g *Graph) WaitForAll() error {
	g.mu.Lock()
	idle := g.idle
	g.mu.Unlock()

	<-idle
	return g.takeErrors()
}

// Wait is WaitForAll bounded by ctx. On cancellation it returns ctx.Err() and
// keeps collected errors for the next call.
func (g *Graph) Wait(ctx context.Context) error {
	g.mu.Lock()
	idle := g.idle
	g.mu.Unlock()

	select {
	case <-idle:
		return g.takeErrors()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Graph) takeErrors() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	errs := g.errs
	g.errs = nil
	g.failed = false
	return stderrors.Join(errs...)
}

// Close stops the worker pool. Tasks still queued are dropped.
func (g *Graph) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	g.cancel()
	err := g.pool.Stop(stopTimeout)

	// release waiters of tasks that will never run
	g.mu.Lock()
	if g.pending > 0 {
		g.pending = 0
		close(g.idle)
	}
	g.mu.Unlock()

	if err != nil {
		return errors.WrapTransient(err, "Graph", "Close", "stop worker pool")
	}
	return nil
}
