// Package errors provides standardized error handling patterns for flowpipe.
//
// # Overview
//
// The package implements a three-class error classification: Transient (may succeed
// later), Invalid (bad configuration, wiring or input, do not retry) and Fatal
// (unrecoverable, stop the graph). Assembly and registry failures are Invalid; an
// element that fails while the graph runs is Fatal and carries the name of its node.
//
// # Error Wrapping Pattern
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Three wrappers set the class while keeping the chain intact for errors.Is/As:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// Element failures are wrapped by the owning node:
//
//	return errors.WrapNode(err, "D")
//
//	name, ok := errors.NodeName(err) // "D", true
//	errors.Is(err, errors.ErrElementFailed) // true
//
// # Standard Error Variables
//
//   - Configuration: ErrInvalidConfig, ErrMissingConfig, ErrConfigNotFound, ErrParsingFailed
//   - Registry: ErrNotRegistered, ErrIncompatibleKind, ErrInvalidElement, ErrIncompatibleModule
//   - Assembly: ErrBuildPipeline, ErrNodeNotFound, ErrSenderNotFound, ErrConnect,
//     ErrTypeMismatch, ErrDuplicateNode, ErrGraphFrozen
//   - Execution: ErrElementFailed, ErrResourceExhausted
//
// Compare with errors.Is rather than matching messages:
//
//	if errors.Is(err, errors.ErrNodeNotFound) {
//	    // fix the connection list
//	}
//
// # Thread Safety
//
// Error variables are immutable and classified errors are safe to share across
// goroutines after creation.
package errors
