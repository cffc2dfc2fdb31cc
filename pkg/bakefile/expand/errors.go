package expand

import (
	"errors"
	"fmt"
)

// ErrNoCodeFunc indicates Expand was called on an Expander constructed
// without a code callback.
var ErrNoCodeFunc = errors.New("no code callback configured")

// RunKind identifies which kind of run a callback was processing.
type RunKind int

const (
	// TextRun is a literal run outside $(...) markers.
	TextRun RunKind = iota

	// CodeRun is the text between matched "$(" and ")" delimiters.
	CodeRun
)

// String returns "text" or "code".
func (k RunKind) String() string {
	if k == CodeRun {
		return "code"
	}
	return "text"
}

// MalformedExpressionError indicates a template whose "$(" marker is never
// closed: bracket nesting fails to return to zero before end of input,
// either directly or because a quoted region swallowed the rest of the
// template.
type MalformedExpressionError struct {
	// Template is the full offending template.
	Template string

	// Offset is the byte offset of the unmatched "$(" marker.
	Offset int
}

// Error implements the error interface.
func (e *MalformedExpressionError) Error() string {
	return fmt.Sprintf("unmatched brackets in '%s'", e.Template)
}

// CallbackError wraps a failure reported by one of the supplied
// callbacks. Expansion is abandoned immediately; no partial output is
// produced.
type CallbackError struct {
	// Run is the kind of run being processed when the callback failed.
	Run RunKind

	// Input is the run text passed to the callback.
	Input string

	// Err is the callback's error.
	Err error
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("evaluating %s run '%s': %v", e.Run, e.Input, e.Err)
}

// Unwrap returns the callback's error for errors.Is/As support.
func (e *CallbackError) Unwrap() error {
	return e.Err
}
