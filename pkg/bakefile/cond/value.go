package cond

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vslavik/bakefile/pkg/bakefile/scope"
)

// Value is a resolved operand. Bakefile variables are strings at heart;
// numeric comparisons convert on demand.
type Value struct {
	s string
}

// String returns the operand's string form.
func (v Value) String() string {
	return v.s
}

// Float converts the operand for numeric comparison, returning 0 for
// values that do not parse.
func (v Value) Float() float64 {
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Truthy reports whether the operand counts as true: anything but the
// empty string and "0".
func (v Value) Truthy() bool {
	return v.s != "" && v.s != "0"
}

// UndefinedVariableError indicates a condition operand referenced a
// variable not defined in any scope layer.
type UndefinedVariableError struct {
	// Name is the unresolved identifier.
	Name string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable: %s", e.Name)
}

// Resolve resolves one operand: a quoted string or numeric literal
// resolves to itself, a bare identifier resolves through vars.
func Resolve(s string, vars scope.Chain) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, nil
	}

	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') ||
			(s[0] == '"' && s[len(s)-1] == '"') {
			return Value{s: s[1 : len(s)-1]}, nil
		}
	}

	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return Value{s: s}, nil
	}

	if v, ok := vars.Lookup(s); ok {
		return Value{s: v}, nil
	}
	return Value{}, &UndefinedVariableError{Name: s}
}

// Literal wraps a raw string as a Value, bypassing resolution. Custom
// operators use it to build comparison values in tests.
func Literal(s string) Value {
	return Value{s: s}
}
