// Package ferrors provides classified error handling shared by every
// flowmesh package: an error class (transient/invalid/fatal), a wrapper
// that attaches component/operation context, and the runtime's named
// error kinds (unknown_name, strategy_incomplete, and so on).
package ferrors

import (
	"errors"
	"fmt"
	"strings"
)

// Class classifies an error for retry/escalation purposes.
type Class int

const (
	// Transient represents temporary errors that may be retried.
	Transient Class = iota
	// Invalid represents errors due to invalid input or configuration.
	Invalid
	// Fatal represents unrecoverable errors that should stop processing.
	Fatal
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Invalid:
		return "invalid"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Named sentinel errors for the runtime's error kinds.
var (
	ErrUnknownName        = errors.New("unknown_name")
	ErrNoSuchCallback     = errors.New("no_such_callback")
	ErrStrategyIncomplete = errors.New("strategy_incomplete")
	ErrNotDistributed     = errors.New("not_distributed")
)

// ClassifiedError wraps an error with its classification and the
// component/operation that produced it.
type ClassifiedError struct {
	Class     Class
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

func newClassified(class Class, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context: "component.operation: action failed: %w".
func Wrap(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, operation, action, err)
}

// WrapTransient wraps an error as transient with context.
func WrapTransient(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, operation, action)
	return newClassified(Transient, wrapped, component, operation, wrapped.Error())
}

// WrapFatal wraps an error as fatal with context.
func WrapFatal(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, operation, action)
	return newClassified(Fatal, wrapped, component, operation, wrapped.Error())
}

// WrapInvalid wraps an error as invalid with context.
func WrapInvalid(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, operation, action)
	return newClassified(Invalid, wrapped, component, operation, wrapped.Error())
}

// IsTransient reports whether err is classified transient.
func IsTransient(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Transient
	}
	return false
}

// IsFatal reports whether err is classified fatal.
func IsFatal(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Fatal
	}
	return false
}

// IsInvalid reports whether err is classified invalid.
func IsInvalid(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == Invalid
	}
	return false
}

// Problem is a single positioned validation failure, used to accumulate
// every error found during a validation pass instead of stopping at the
// first one.
type Problem struct {
	Path    string
	Message string
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return fmt.Sprintf("%s: %s", p.Path, p.Message)
}

// DefinitionError is the runtime's definition_error: an invalid component or
// workflow description, reported with position information so a caller
// sees every problem at once rather than only the first.
type DefinitionError struct {
	Problems []Problem
}

func (e *DefinitionError) Error() string {
	if len(e.Problems) == 0 {
		return "definition_error"
	}
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "definition_error: " + strings.Join(parts, "; ")
}

// NewDefinitionError builds a DefinitionError from a single (path, message) pair.
func NewDefinitionError(path, message string) *DefinitionError {
	return &DefinitionError{Problems: []Problem{{Path: path, Message: message}}}
}

// NodeID is the minimal identity flowmesh error kinds need to name a node
// without importing the membership package (which itself depends on
// ferrors), avoiding an import cycle.
type NodeID struct {
	Name string
	Host string
}

func (n NodeID) String() string {
	return n.Name + "@" + n.Host
}

// NotConnectedError is the runtime's not_connected(node).
type NotConnectedError struct{ Node NodeID }

func (e *NotConnectedError) Error() string { return "not_connected: " + e.Node.String() }

// NotConnected constructs a NotConnectedError.
func NotConnected(node NodeID) error { return &NotConnectedError{Node: node} }

// AlreadyConnectedError is the runtime's already_connected(node).
type AlreadyConnectedError struct{ Node NodeID }

func (e *AlreadyConnectedError) Error() string { return "already_connected: " + e.Node.String() }

// AlreadyConnected constructs an AlreadyConnectedError.
func AlreadyConnected(node NodeID) error { return &AlreadyConnectedError{Node: node} }

// NoValidWorkerError is the runtime's no_valid_worker(node): the remote node
// answered the beacon handshake but is not a worker, or answered with the
// wrong role.
type NoValidWorkerError struct{ Node NodeID }

func (e *NoValidWorkerError) Error() string { return "no_valid_worker: " + e.Node.String() }

// NoValidWorker constructs a NoValidWorkerError.
func NoValidWorker(node NodeID) error { return &NoValidWorkerError{Node: node} }

// WrongCookieError is the runtime's wrong_cookie(node).
type WrongCookieError struct{ Node NodeID }

func (e *WrongCookieError) Error() string { return "wrong_cookie: " + e.Node.String() }

// WrongCookie constructs a WrongCookieError.
func WrongCookie(node NodeID) error { return &WrongCookieError{Node: node} }

// TimeoutError is the runtime's timeout(node).
type TimeoutError struct{ Node NodeID }

func (e *TimeoutError) Error() string { return "timeout: " + e.Node.String() }

// Timeout constructs a TimeoutError.
func Timeout(node NodeID) error { return &TimeoutError{Node: node} }

// WorkerCrashError is the runtime's worker_crash(worker_ref, reason).
type WorkerCrashError struct {
	Ref    string
	Reason error
}

func (e *WorkerCrashError) Error() string {
	return fmt.Sprintf("worker_crash: %s: %v", e.Ref, e.Reason)
}

func (e *WorkerCrashError) Unwrap() error { return e.Reason }

// WorkerCrash constructs a WorkerCrashError.
func WorkerCrash(ref string, reason error) error {
	return &WorkerCrashError{Ref: ref, Reason: reason}
}

// DeploymentPartialError is the runtime's deployment_partial(successes, failures).
type DeploymentPartialError struct {
	Successes []string
	Failures  map[string]error
}

func (e *DeploymentPartialError) Error() string {
	return fmt.Sprintf("deployment_partial: %d succeeded, %d failed", len(e.Successes), len(e.Failures))
}

// DeploymentPartial constructs a DeploymentPartialError.
func DeploymentPartial(successes []string, failures map[string]error) error {
	return &DeploymentPartialError{Successes: successes, Failures: failures}
}

// IsDeploymentPartial reports whether err is a DeploymentPartialError.
func IsDeploymentPartial(err error) bool {
	var pe *DeploymentPartialError
	return errors.As(err, &pe)
}
