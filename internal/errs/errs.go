// Package errs defines the error taxonomy shared by the verification harness.
//
// Three kinds of failure are surfaced to callers, none of which is retried:
//
//   - Config: the environment is not set up (missing install root, missing executable).
//   - FileAccess: an input file is missing or unreadable.
//   - Lookup: a referenced key (region, subtest, analytic case) has no entry.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes harness errors.
type Kind string

const (
	// KindConfig indicates a user-facing setup error.
	KindConfig Kind = "CONFIG"

	// KindFileAccess indicates a file that could not be opened or read.
	KindFileAccess Kind = "FILE_ACCESS"

	// KindLookup indicates a reference to a key that does not exist.
	KindLookup Kind = "LOOKUP"
)

// Error is a categorized harness error.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op names the operation that failed (e.g. "resolve executable").
	Op string

	// Path is the file, directory, or key involved, if any.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config returns a configuration error.
func Config(op, path string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Path: path, Err: err}
}

// FileAccess returns a file-access error.
func FileAccess(op, path string, err error) *Error {
	return &Error{Kind: KindFileAccess, Op: op, Path: path, Err: err}
}

// Lookup returns a lookup error for a missing key.
func Lookup(op, key string) *Error {
	return &Error{Kind: KindLookup, Op: op, Path: key}
}

// IsConfig reports whether err is (or wraps) a configuration error.
func IsConfig(err error) bool {
	return isKind(err, KindConfig)
}

// IsFileAccess reports whether err is (or wraps) a file-access error.
func IsFileAccess(err error) bool {
	return isKind(err, KindFileAccess)
}

// IsLookup reports whether err is (or wraps) a lookup error.
func IsLookup(err error) bool {
	return isKind(err, KindLookup)
}

func isKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
