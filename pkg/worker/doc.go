// Package worker provides a generic, thread-safe worker pool with priority lanes.
//
// # Overview
//
// A Pool runs a fixed number of goroutines that take work from per-priority FIFO lanes.
// It is the scheduling substrate behind flow.Graph: every node task is submitted here,
// with the node's configured priority.
//
//	pool := worker.NewPool[Task](
//	    runtime.GOMAXPROCS(0), // workers
//	    0,                     // unbounded queue
//	    func(ctx context.Context, task Task) error {
//	        return task.Run(ctx)
//	    },
//	)
//	_ = pool.Start(ctx)
//	_ = pool.SubmitPriority(task, 2)
//
// # Submission
//
// Submit and SubmitPriority never block. With a bounded queue (queueSize > 0) they return
// ErrQueueFull once queueSize items are pending; with queueSize <= 0 the lanes grow without
// limit. Higher priorities are always served first; items within one priority keep their
// submission order.
//
// # Lifecycle
//
// Start launches the workers. Stop refuses new work, lets workers drain what is already
// queued and waits up to the given timeout (ErrStopTimeout otherwise). Cancelling the Start
// context makes idle workers exit without draining.
//
// # Observability
//
// Stats() is always available. WithMetricsRegistry additionally exports queue depth,
// throughput and processing time through a metric.MetricsRegistry.
package worker
