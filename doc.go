// Package flowpipe provides a configurable dataflow execution engine: pipelines
// of typed nodes, assembled from configuration and run on a shared worker pool.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│   CLI (cmd/flowpipe)                │  Config file, flags,
//	│   config, module manager            │  module selection
//	└─────────────────────────────────────┘
//	           ↓ registers types into
//	┌─────────────────────────────────────┐
//	│   registry.Factory                  │  Elements, node kinds,
//	│   (keyed by constructor type)       │  graph, pipeline, view types
//	└─────────────────────────────────────┘
//	           ↓ consulted by
//	┌─────────────────────────────────────┐
//	│   pipeline.Make / MakeView          │  Nodes, connections,
//	│   (all or nothing assembly)         │  frozen graph
//	└─────────────────────────────────────┘
//	           ↓ runs on
//	┌─────────────────────────────────────┐
//	│   flow.Graph + pkg/worker.Pool      │  Prioritized tasks,
//	│   node.* invoking elements          │  error collection
//	└─────────────────────────────────────┘
//
// # Elements and nodes
//
// An element is any Go value with a Process method. Its parameters are its
// inputs and its results its outputs, optionally followed by an error:
//
//	type Scale struct{ Factor float64 }
//
//	func (s *Scale) Process(v float64) float64 { return v * s.Factor }
//
// A node wraps an element, or only its payload types, and gives it typed ports.
// Functional nodes (source, function, continue, multifunction) run the element;
// service nodes (join, split, broadcast, buffer, overwrite, queue) move values
// between functional nodes. Ports connect only when their payload types match.
//
// # Fan-out and join
//
//	                ┌─────────────┐
//	                │  Source A   │
//	                └──────┬──────┘
//	                       │
//	                 Broadcast (Bc)
//	              ┌────────┴────────┐
//	              ↓                 ↓
//	        ┌──────────┐      ┌──────────┐
//	        │ Identity │      │ Divide   │
//	        │    B     │      │    C     │
//	        └────┬─────┘      └────┬─────┘
//	             └──────┬──────────┘
//	                    ↓
//	               Join J (int, float64)
//	                    ↓
//	               Sum D → Print E
//
// A queueing join keeps a FIFO per input and emits a tuple once every input
// holds a value. A reserving join stores nothing and pulls one value from each
// reservable predecessor at once.
//
// # Packages
//
//   - element: element signatures, binding and eligibility
//   - flow: payload types, ports and the execution graph
//   - node: the node kinds
//   - registry: the typed constructor registry
//   - pipeline: assembly and execution
//   - view: driving a graph from outside
//   - module: loading element modules
//   - config: configuration trees, loaders and schema validation
//   - metric: Prometheus metrics and frame counters
//   - flowgraph: topology analysis of an assembled pipeline
//   - elements/basic: built in elements and the JSONLines view
package flowpipe
