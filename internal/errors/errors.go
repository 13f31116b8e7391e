// Package errors classifies every failure the server can hit into four
// categories; none of them is ever surfaced to the editor as an LSP
// protocol error.
package errors

import (
	"fmt"
	"time"
)

// Kind classifies a failure.
type Kind string

const (
	// KindMalformedInput covers AST JSON missing required sections, span
	// strings that don't parse, and URIs that don't convert to file paths.
	KindMalformedInput Kind = "malformed_input"
	// KindIoFailure covers a source file being unreadable or unwritable.
	KindIoFailure Kind = "io_failure"
	// KindCompilerFailure covers the compiler driver child process
	// returning an error.
	KindCompilerFailure Kind = "compiler_failure"
	// KindOutOfRange covers a position past end-of-content.
	KindOutOfRange Kind = "out_of_range"
)

// CoreError is the error type span, compiler, refgraph and orchestrator
// return. internal/config returns plain wrapped errors instead.
type CoreError struct {
	Kind        Kind
	Op          string
	Path        string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// New builds a CoreError for op, wrapping err under kind. Recoverable
// defaults to true: the surface behavior for all four kinds is an empty
// result, never a protocol fault.
func New(kind Kind, op string, err error) *CoreError {
	return &CoreError{
		Kind:        kind,
		Op:          op,
		Underlying:  err,
		Timestamp:   time.Now(),
		Recoverable: true,
	}
}

// WithPath attaches the file the failure occurred on.
func (e *CoreError) WithPath(path string) *CoreError {
	e.Path = path
	return e
}

// WithRecoverable overrides the default. The one non-recoverable case is
// a server-side rename write failure, which aborts the whole rename.
func (e *CoreError) WithRecoverable(recoverable bool) *CoreError {
	e.Recoverable = recoverable
	return e
}

func (e *CoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Underlying)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is matches on Kind so callers can write errors.Is(err, errors.New(KindIoFailure, "", nil)).
func (e *CoreError) Is(target error) bool {
	other, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// MalformedInput builds a KindMalformedInput error.
func MalformedInput(op string, err error) *CoreError { return New(KindMalformedInput, op, err) }

// IoFailure builds a KindIoFailure error.
func IoFailure(op string, err error) *CoreError { return New(KindIoFailure, op, err) }

// CompilerFailure builds a KindCompilerFailure error.
func CompilerFailure(op string, err error) *CoreError { return New(KindCompilerFailure, op, err) }

// OutOfRange builds a KindOutOfRange error.
func OutOfRange(op string, err error) *CoreError { return New(KindOutOfRange, op, err) }
