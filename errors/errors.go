// Package errors provides standardized error handling patterns for flowpipe packages.
// It includes error classification, standard error variables, and helper functions
// for consistent error wrapping and classification across the engine.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may succeed on a later attempt
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input, configuration or wiring
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")
	ErrAlreadyStopped = errors.New("already stopped")

	// Configuration errors
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrConfigNotFound = errors.New("configuration not found")
	ErrParsingFailed  = errors.New("parsing failed")

	// Registry errors
	ErrNotRegistered      = errors.New("no constructor registered")
	ErrIncompatibleKind   = errors.New("element cannot back node kind")
	ErrInvalidElement     = errors.New("invalid element")
	ErrIncompatibleModule = errors.New("incompatible module version")

	// Assembly and wiring errors
	ErrBuildPipeline  = errors.New("cannot build pipeline")
	ErrNodeNotFound   = errors.New("node not found")
	ErrSenderNotFound = errors.New("sender not found")
	ErrConnect        = errors.New("cannot connect ports")
	ErrTypeMismatch   = errors.New("payload type mismatch")
	ErrDuplicateNode  = errors.New("duplicate node name")
	ErrGraphFrozen    = errors.New("graph is frozen")

	// Execution errors
	ErrElementFailed     = errors.New("element processing failed")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// NodeError carries the name of the node whose element failed.
type NodeError struct {
	Node string
	Err  error
}

// Error implements the error interface
func (ne *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", ne.Node, ne.Err)
}

// Unwrap returns the underlying error
func (ne *NodeError) Unwrap() error {
	return ne.Err
}

// WrapNode attaches the node name to an element failure and classifies it as fatal.
// The result matches ErrElementFailed with errors.Is.
func WrapNode(err error, node string) error {
	if err == nil {
		return nil
	}
	ne := &NodeError{Node: node, Err: fmt.Errorf("%w: %w", ErrElementFailed, err)}
	return newClassified(ErrorFatal, ne, "Node", "Process", ne.Error())
}

// NodeName returns the name of the failing node if err carries one.
func NodeName(err error) (string, bool) {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Node, true
	}
	return "", false
}

var (
	transientWords = []string{"timeout", "temporary", "unavailable", "busy"}
	fatalWords     = []string{"fatal", "panic", "out of memory"}

	invalidSentinels = []error{
		ErrInvalidConfig, ErrMissingConfig, ErrParsingFailed,
		ErrNotRegistered, ErrIncompatibleKind, ErrInvalidElement,
		ErrBuildPipeline, ErrNodeNotFound, ErrSenderNotFound,
		ErrConnect, ErrTypeMismatch, ErrDuplicateNode,
	}
)

// classOf reports the explicit class of err, if it carries one.
func classOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

func mentions(err error, words []string) bool {
	msg := strings.ToLower(err.Error())
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err may succeed on a later attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorTransient
	}
	return isAny(err, context.DeadlineExceeded, context.Canceled) || mentions(err, transientWords)
}

// IsFatal reports whether err should stop the graph.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorFatal
	}
	return isAny(err, ErrElementFailed, ErrResourceExhausted) || mentions(err, fatalWords)
}

// IsInvalid reports whether err stems from bad input, configuration or wiring.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorInvalid
	}
	return isAny(err, invalidSentinels...)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}

	if IsTransient(err) {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}

	return ErrorTransient
}

// newClassified creates a new classified error.
// Use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return newClassified(class, wrapped, component, method, wrapped.Error())
}

// WrapTransient wraps err with context and marks it transient.
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps err with context and marks it fatal.
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps err with context and marks it invalid.
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(ErrorInvalid, err, component, method, action)
}
