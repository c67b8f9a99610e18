// Package diag defines the error taxonomy shared by both tools and the
// reporter that prefixes every diagnostic with the invoking tool's name.
package diag

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	// ParseFailure indicates malformed assembly text.
	ParseFailure Kind = "PARSE_FAILURE"

	// VerifyFailure indicates a well-formed but invalid module.
	VerifyFailure Kind = "VERIFY_FAILURE"

	// PassConstructionFailure indicates a selected pass could not be
	// instantiated. It is never fatal; the pass is skipped.
	PassConstructionFailure Kind = "PASS_CONSTRUCTION_FAILURE"

	// OutputConflict indicates the output file exists and force is off.
	OutputConflict Kind = "OUTPUT_CONFLICT"

	// UnsafeDestination indicates binary output would go to a terminal.
	UnsafeDestination Kind = "UNSAFE_DESTINATION"

	// IOFailure indicates a stream open, read or write failure.
	IOFailure Kind = "IO_FAILURE"

	// UnknownFailure covers anything uncategorized, including recovered panics.
	UnknownFailure Kind = "UNKNOWN_FAILURE"
)

// Error is a categorized failure.
type Error struct {
	// Kind identifies the failure category.
	Kind Kind

	// Message is the human-readable description printed after the tool prefix.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a kind and message. Wrap returns nil if err is nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// UnknownFailure if there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return UnknownFailure
}

// Is reports whether err carries the given kind.
// Uses errors.As to handle wrapped errors.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
