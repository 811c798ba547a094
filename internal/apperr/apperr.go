package apperr

import (
	"errors"
	"fmt"
)

// Kind partitions failures so callers can decide whether a retry makes sense.
type Kind string

const (
	// KindNotFound: the referenced entity, transaction, or issue is absent.
	KindNotFound Kind = "not_found"
	// KindConflict: a precondition failed (duplicate id, already resolved,
	// second open transaction). Never retryable as-is.
	KindConflict Kind = "conflict"
	// KindExecution: a store operation failed while executing a step.
	KindExecution Kind = "execution"
	// KindInvalid: malformed input, e.g. an unrecognized step type.
	KindInvalid Kind = "invalid"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context identifies where an error originated.
type Context struct {
	Component string
	Operation string
	Metadata  map[string]any
}

// Error is the single structured error kind crossing component boundaries.
type Error struct {
	Message  string
	Kind     Kind
	Context  Context
	Severity Severity
	Cause    error
}

func (e *Error) Error() string {
	if e.Context.Component != "" {
		return fmt.Sprintf("%s.%s: %s", e.Context.Component, e.Context.Operation, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind so sentinel-style checks work through wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New builds an error with the given kind and component/operation context.
func New(kind Kind, component, operation, message string) *Error {
	return &Error{
		Message:  message,
		Kind:     kind,
		Context:  Context{Component: component, Operation: operation},
		Severity: SeverityError,
	}
}

// Newf is New with a formatted message.
func Newf(kind Kind, component, operation, format string, args ...any) *Error {
	return New(kind, component, operation, fmt.Sprintf(format, args...))
}

// Wrap attaches context to an underlying cause, preserving it for errors.Is/As.
func Wrap(cause error, kind Kind, component, operation, message string) *Error {
	return &Error{
		Message:  message,
		Kind:     kind,
		Context:  Context{Component: component, Operation: operation},
		Severity: SeverityError,
		Cause:    cause,
	}
}

// WithMeta attaches metadata for logging; returns the same error.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Context.Metadata == nil {
		e.Context.Metadata = make(map[string]any)
	}
	e.Context.Metadata[key] = value
	return e
}

// WithSeverity overrides the default severity; returns the same error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsNotFound(err error) bool { k, ok := kindOf(err); return ok && k == KindNotFound }
func IsConflict(err error) bool { k, ok := kindOf(err); return ok && k == KindConflict }
func IsExecution(err error) bool { k, ok := kindOf(err); return ok && k == KindExecution }
