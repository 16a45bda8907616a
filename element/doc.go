// Package element defines what a processing element is and how nodes call it.
//
// An element is any value with an exported Process method. The parameters are the
// element inputs in order; the results are its outputs, optionally followed by an
// error:
//
//	type Scale struct{ Factor float64 }
//
//	func (s *Scale) Process(v float64) (float64, error) { return v * s.Factor, nil }
//
// Elements with zero inputs can back sources, elements with several inputs are fed
// tuples by a join, and elements whose results are all Optional can only back
// a multifunction node. Analyze derives a Signature from the method; Bind prepares an
// instance for invocation through reflection.
package element
