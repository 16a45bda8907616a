// Package basic provides the built in elements and the JSONLines view.
//
// The package registers itself as the "basic" module when imported:
//
//	import _ "github.com/c360/flowpipe/elements/basic"
//
// # Elements
//
//   - Counter: source of ints (start, step, count)
//   - Identity: int to int
//   - Divide: int to float64 (divisor)
//   - Scale: float64 to float64 (factor)
//   - Sum: (int, float64) to float64, the usual join element
//   - Add: (float64, float64) to float64
//   - Parity: int to optional even and odd ports, for multifunction nodes
//   - Fork: int to (int, int), for split nodes
//   - Format: float64 to string (format)
//   - PrintInt, PrintFloat, PrintString: sinks writing one line per value (path, prefix)
//   - Beat: continue element counting signals
//
// Element fields are read from the node entry, next to name, element and node:
//
//	- {name: C, element: Divide, node: function, divisor: 100}
//
// # JSONLines view
//
// The JSONLines view reads one JSON array per line from source, one value per
// output slot, and writes one JSON array per frame to sink, holding the values
// collected from each input slot:
//
//	view:
//	  type: JSONLines
//	  source: frames.jsonl    # "-" reads stdin
//	  sink: "-"               # stdout
//	  output_types: [int]
//	  input_types: [float64]
//	  outputs: [{to: C, input: 0, output: 0}]
//	  inputs: [{from: C, output: 0, input: 0}]
package basic
