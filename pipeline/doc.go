// Package pipeline assembles graphs of nodes from configuration and runs them.
//
// A pipeline section names a pipeline type, an optional graph section, the
// nodes and the connections between them:
//
//	type: Default
//	autostart: true
//	graph: {type: default, workers: 4}
//	nodes:
//	  - {name: A, element: Counter, node: source}
//	  - {name: B, element: Scale, node: function, concurrency: 2}
//	connections:
//	  - {from: A, to: B}
//
// Every name in the section is resolved through a registry.Factory: element
// keys to NodeConstructor values registered by RegisterElement, node kind keys
// to node.Kind tags and constructors, graph types to GraphConstructor values
// and pipeline types to Constructor values. RegisterDefaults installs the
// built in kinds, graph types and pipeline types.
//
// Assembly is all or nothing. Every connection is resolved before any is
// made, and on failure the graph is closed and an error matching
// errors.ErrBuildPipeline is returned.
//
// A View pipeline additionally wires a view.View whose handler feeds frames
// into the graph and collects what comes back.
package pipeline
