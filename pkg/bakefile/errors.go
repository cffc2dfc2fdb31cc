// Package bakefile models a native build description: variables,
// options, conditional variables, and targets, evaluated through the
// $(...) expression expander into concrete makefile content.
package bakefile

import (
	"errors"
	"fmt"
)

// Sentinel errors for makefile evaluation.
var (
	// ErrNoFormat indicates generation was requested without an output
	// format.
	ErrNoFormat = errors.New("output format not set")
)

// UndefinedVariableError indicates a $(...) code run referenced a
// variable not defined in any scope layer.
type UndefinedVariableError struct {
	// Name is the unresolved variable name.
	Name string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable: %s", e.Name)
}

// VariableError wraps a failure to set a variable, typically because
// evaluating its value failed.
type VariableError struct {
	// Name is the variable being set.
	Name string
	// Value is the raw, unevaluated value.
	Value string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *VariableError) Error() string {
	return fmt.Sprintf("failed to set variable '%s' with value '%s': %v", e.Name, e.Value, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *VariableError) Unwrap() error {
	return e.Err
}

// ExpressionError wraps a code run that is neither a known variable nor
// an evaluable condition expression.
type ExpressionError struct {
	// Code is the code-run text.
	Code string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	return fmt.Sprintf("cannot evaluate expression '%s': %v", e.Code, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// CycleError indicates final evaluation failed to reach a fixpoint,
// which means variables reference each other in a growing cycle.
type CycleError struct {
	// Name is a variable still containing markers when the pass limit
	// was reached.
	Name string
	// Passes is the number of evaluation passes performed.
	Passes int
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("variable '%s' not stable after %d evaluation passes, reference cycle suspected", e.Name, e.Passes)
}
