package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure
type Kind string

const (
	// KindFormat marks upstream schema drift (e.g. unparsable dotted keys).
	// Retrying does not help.
	KindFormat Kind = "format"

	// KindGenerationFormat marks a generator reply that could not be decoded.
	// The generator is non-deterministic, so these are retried.
	KindGenerationFormat Kind = "generation_format"

	// KindValidation marks an assembled document that failed schema checks
	KindValidation Kind = "validation"

	// KindExternal marks an index, queue or generation call failure
	KindExternal Kind = "external"
)

// Error is the typed error returned by the dossier pipeline
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "extract.group_by_category"
	Msg  string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap implements the unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// Format creates a schema-drift error
func Format(op, format string, args ...any) *Error {
	return &Error{Kind: KindFormat, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// GenerationFormat creates an undecodable-generator-output error
func GenerationFormat(op, msg string, err error) *Error {
	return &Error{Kind: KindGenerationFormat, Op: op, Msg: msg, Err: err}
}

// Validation creates a validation error
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// External wraps a failure of an external collaborator
func External(op, msg string, err error) *Error {
	return &Error{Kind: KindExternal, Op: op, Msg: msg, Err: err}
}

// Is reports whether any error in err's chain is an *Error of the given kind
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the worker should try the task again
func Retryable(err error) bool {
	return Is(err, KindExternal) || Is(err, KindGenerationFormat)
}
