// Package cond evaluates bakefile condition expressions.
//
// Conditions guard conditional variables and target sections:
//
//	PLATFORM=='unix' and SHARED=='1'
//	not DEBUG
//	TOOLSET=='gnu' or TOOLSET=='mingw'
//
// Operands resolve against a scope chain: quoted strings and numbers are
// literals, bare identifiers are variable references. The supported
// operators are ==, !=, <, >, <=, >=, the connectives and/or, and the
// prefixes not and !.
package cond

import (
	"sort"
	"strings"

	"github.com/vslavik/bakefile/pkg/bakefile/scope"
)

// BinaryOp compares two resolved operand values.
type BinaryOp func(left, right Value) bool

// Evaluator evaluates condition expressions, optionally extended with
// custom operators.
type Evaluator struct {
	customOps map[string]BinaryOp
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithOperator registers a custom binary operator. The name must not
// collide with a built-in operator; custom operators are matched
// surrounded by spaces, e.g. "PLATFORM matches 'win*'".
func WithOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval evaluates cond against vars using a default Evaluator.
func Eval(cond string, vars scope.Chain) (bool, error) {
	return New().Evaluate(cond, vars)
}

// Evaluate evaluates a condition expression against the provided scope.
func (e *Evaluator) Evaluate(cond string, vars scope.Chain) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false, nil
	}

	if inner, ok := strings.CutPrefix(cond, "not "); ok {
		result, err := e.Evaluate(inner, vars)
		if err != nil {
			return false, err
		}
		return !result, nil
	}
	if inner, ok := strings.CutPrefix(cond, "!"); ok {
		result, err := e.Evaluate(inner, vars)
		if err != nil {
			return false, err
		}
		return !result, nil
	}

	// Connectives bind loosest; split on the first occurrence so that
	// "a and b and c" evaluates left to right.
	if left, right, ok := strings.Cut(cond, " and "); ok {
		return e.connective(left, right, vars, func(l, r bool) bool { return l && r })
	}
	if left, right, ok := strings.Cut(cond, " or "); ok {
		return e.connective(left, right, vars, func(l, r bool) bool { return l || r })
	}

	// Comparison operators, longest first so "==" is not split at "=".
	builtinOps := []struct {
		op      string
		compare BinaryOp
	}{
		{"==", func(l, r Value) bool { return l.String() == r.String() }},
		{"!=", func(l, r Value) bool { return l.String() != r.String() }},
		{">=", func(l, r Value) bool { return l.Float() >= r.Float() }},
		{"<=", func(l, r Value) bool { return l.Float() <= r.Float() }},
		{">", func(l, r Value) bool { return l.Float() > r.Float() }},
		{"<", func(l, r Value) bool { return l.Float() < r.Float() }},
	}
	for _, op := range builtinOps {
		if left, right, ok := strings.Cut(cond, op.op); ok {
			l, err := Resolve(strings.TrimSpace(left), vars)
			if err != nil {
				return false, err
			}
			r, err := Resolve(strings.TrimSpace(right), vars)
			if err != nil {
				return false, err
			}
			return op.compare(l, r), nil
		}
	}

	// Sorted so that the winner is stable when several registered
	// operators could match the same condition.
	for _, name := range sortedOpNames(e.customOps) {
		fn := e.customOps[name]
		if left, right, ok := strings.Cut(cond, " "+name+" "); ok {
			l, err := Resolve(strings.TrimSpace(left), vars)
			if err != nil {
				return false, err
			}
			r, err := Resolve(strings.TrimSpace(right), vars)
			if err != nil {
				return false, err
			}
			return fn(l, r), nil
		}
	}

	// Bare operand: truthiness of its resolved value.
	val, err := Resolve(cond, vars)
	if err != nil {
		return false, err
	}
	return val.Truthy(), nil
}

func sortedOpNames(ops map[string]BinaryOp) []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Evaluator) connective(left, right string, vars scope.Chain, combine func(l, r bool) bool) (bool, error) {
	l, err := e.Evaluate(left, vars)
	if err != nil {
		return false, err
	}
	r, err := e.Evaluate(right, vars)
	if err != nil {
		return false, err
	}
	return combine(l, r), nil
}
