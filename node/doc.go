// Package node implements the vertices of a pipeline graph.
//
// Functional nodes run an element instance:
//
//   - Source produces from a zero-input element until it reports stopped
//   - Function and Multifunction run an element per input
//   - Continue runs a zero-input element once every predecessor signalled
//
// Service nodes only move values: Broadcast, Buffer, Queue, Overwrite, Split
// and Join. Join pairs its inputs with either the Queueing or the Reserving
// policy.
//
// Values travel by push. A node delivers to its successors while it holds its
// own lock and never calls back into a predecessor synchronously; the reserving
// join pulls from predecessors in a task of its own.
//
// All work runs as tasks of a flow.Graph. Nodes are connected with Connect
// before the graph is frozen; afterwards the topology is fixed.
package node
