// Package metric provides Prometheus metrics for the flowpipe engine.
//
// # Overview
//
// MetricsRegistry wraps a private prometheus.Registry (no global state) holding the Go
// and process collectors, the core engine metrics and any component metrics registered
// through Register and RegisterAll. Registering the same owner/name pair twice
// returns an Invalid error instead of panicking.
//
// # Core Metrics
//
//	flowpipe_pipeline_status{pipeline}
//	flowpipe_node_invocations_total{node,status}
//	flowpipe_node_processing_duration_seconds{node}
//	flowpipe_errors_total{node,type}
//	flowpipe_graph_tasks_in_flight{graph}
//	flowpipe_frames_total{counter,event}
//	flowpipe_frames_in_flight{counter}
//
// # Frame Counters
//
// Nodes configured with node_counters open and close frames on a FrameCounter around
// each element call:
//
//	c := metric.NewFrameCounter(registry, "decoder")
//	c.NewFrame()
//	// ... element runs ...
//	c.FrameProcessed()
//
// # Scraping
//
// Server serves the registry over HTTP until its context is cancelled:
//
//	srv := metric.NewServer(9090, "/metrics", registry)
//	go srv.Run(ctx)
package metric
