package bakefile

import (
	"context"
	"errors"
	"time"

	"github.com/vslavik/bakefile/pkg/bakefile/cond"
	"github.com/vslavik/bakefile/pkg/bakefile/expand"
	"github.com/vslavik/bakefile/pkg/bakefile/observability"
	"github.com/vslavik/bakefile/pkg/bakefile/scope"
)

// UsageTracker counts which kinds of stores variable lookups hit while
// evaluating expressions. The finalize pass uses it to recognize
// variables that depend only on options and conditional variables,
// which are not worth re-evaluating.
type UsageTracker struct {
	// Vars counts hits on ordinary variables, target variables
	// included.
	Vars int

	// OptionsAndCondVars counts hits on options and conditional
	// variables.
	OptionsAndCondVars int

	// MakeVars counts hits on make variables.
	MakeVars int

	// Exprs counts code runs that fell through to condition-expression
	// evaluation.
	Exprs int

	// Coverage records every option, conditional variable, and make
	// variable that was referenced.
	Coverage map[string]bool
}

// NewUsageTracker creates a tracker with empty coverage.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{Coverage: make(map[string]bool)}
}

// Reset zeroes the counters; coverage is cleared only when
// resetCoverage is set.
func (t *UsageTracker) Reset(resetCoverage bool) {
	t.Vars = 0
	t.OptionsAndCondVars = 0
	t.MakeVars = 0
	t.Exprs = 0
	if resetCoverage {
		t.Coverage = make(map[string]bool)
	}
}

// OnlyOptions reports whether every recorded lookup hit options,
// conditional variables, or make variables.
func (t *UsageTracker) OnlyOptions() bool {
	return t.Vars == 0 && t.Exprs == 0
}

// EvalOption configures one EvalExpr or EvalCondition call.
type EvalOption func(*evalConfig)

type evalConfig struct {
	target     *Target
	addVars    scope.MapStore
	useOptions bool
}

// OnTarget evaluates with the target's variables shadowing globals.
func OnTarget(t *Target) EvalOption {
	return func(c *evalConfig) {
		c.target = t
	}
}

// WithAddVars pushes an extra innermost lookup layer for this
// evaluation only.
func WithAddVars(vars map[string]string) EvalOption {
	return func(c *evalConfig) {
		c.addVars = vars
	}
}

// WithoutOptions disables option and conditional-variable lookups, the
// mode condition evaluation itself runs in.
func WithoutOptions() EvalOption {
	return func(c *evalConfig) {
		c.useOptions = false
	}
}

// WithOptions enables option and conditional-variable lookups where
// they default off, as in EvalCondition.
func WithOptions() EvalOption {
	return func(c *evalConfig) {
		c.useOptions = true
	}
}

// optionStore resolves option defaults and conditional variables. It is
// the least specific scope layer, consulted only when option lookups
// are enabled.
func (m *Makefile) optionStore() scope.Store {
	return scope.FuncStore(func(name string) (string, bool) {
		if o, ok := m.Options[name]; ok {
			return o.Default, true
		}
		if cv, ok := m.CondVars[name]; ok {
			return m.resolveCondVar(cv)
		}
		return "", false
	})
}

// resolveCondVar picks the first alternative whose condition holds.
// Conditions see globals and option defaults but not conditional
// variables, which keeps resolution from recursing into itself.
func (m *Makefile) resolveCondVar(cv *CondVar) (string, bool) {
	chain := scope.NewChain(m.Vars, scope.FuncStore(func(name string) (string, bool) {
		o, ok := m.Options[name]
		if !ok {
			return "", false
		}
		return o.Default, true
	}))

	for _, alt := range cv.Values {
		ok, err := m.condEval.Evaluate(alt.Cond, chain)
		if err != nil {
			continue
		}
		if ok {
			return alt.Value, true
		}
	}
	return "", false
}

// lookupChain builds the scope chain for one evaluation, most specific
// first: per-call additions, target variables, globals, then option
// values when enabled.
func (m *Makefile) lookupChain(cfg *evalConfig) scope.Chain {
	stores := make([]scope.Store, 0, 4)
	if cfg.addVars != nil {
		stores = append(stores, cfg.addVars)
	}
	if cfg.target != nil {
		stores = append(stores, cfg.target.Vars)
	}
	stores = append(stores, m.Vars)
	if cfg.useOptions {
		stores = append(stores, m.optionStore())
	}
	return scope.NewChain(stores...)
}

// isIdentifier reports whether code looks like a plain variable name.
func isIdentifier(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// evalCode is the expander's code callback: a code run resolves either
// as a variable reference through the scope chain or, failing that, as
// a condition expression yielding "1" or "0".
func (m *Makefile) evalCode(cfg *evalConfig) expand.CodeFunc {
	chain := m.lookupChain(cfg)
	return func(_ *expand.Context, code string) (string, error) {
		if val, ok := chain.Lookup(code); ok {
			m.trackHit(code)
			return val, nil
		}

		if isIdentifier(code) {
			return "", &UndefinedVariableError{Name: code}
		}

		if m.tracker != nil {
			m.tracker.Exprs++
		}
		ok, err := m.condEval.Evaluate(code, chain)
		if err != nil {
			return "", &ExpressionError{Code: code, Err: err}
		}
		if ok {
			return "1", nil
		}
		return "0", nil
	}
}

// trackHit records which store satisfied a lookup.
func (m *Makefile) trackHit(name string) {
	t := m.tracker
	if t == nil {
		return
	}
	switch {
	case m.isOptionOrCondVar(name):
		t.OptionsAndCondVars++
		t.Coverage[name] = true
	case m.isMakeVar(name):
		t.MakeVars++
		t.Coverage[name] = true
	default:
		t.Vars++
	}
}

func (m *Makefile) isOptionOrCondVar(name string) bool {
	if _, ok := m.Options[name]; ok {
		// A shadowing plain variable hides the option.
		_, shadowed := m.Vars[name]
		return !shadowed
	}
	if _, ok := m.CondVars[name]; ok {
		_, shadowed := m.Vars[name]
		return !shadowed
	}
	return false
}

func (m *Makefile) isMakeVar(name string) bool {
	_, ok := m.MakeVars[name]
	return ok
}

// EvalExpr expands every $(...) expression in expr one level deep:
// variable references resolve through the scope chain and other
// expressions evaluate as conditions. Substituted values are not
// re-scanned; Finalize drives evaluation to a fixpoint.
func (m *Makefile) EvalExpr(expr string, opts ...EvalOption) (string, error) {
	cfg := &evalConfig{useOptions: true}
	for _, opt := range opts {
		opt(cfg)
	}

	start := time.Now()
	result, err := expand.New(m.evalCode(cfg)).Expand(nil, expr)
	if m.metrics != nil {
		m.metrics.RecordExpansion(context.Background(), time.Since(start), err)
		var merr *expand.MalformedExpressionError
		if errors.As(err, &merr) {
			m.metrics.RecordMalformed(context.Background())
		}
	}
	if err != nil {
		observability.LogExpandError(m.logger, expr, err)
		return "", err
	}
	return result, nil
}

// EvalCondition evaluates a condition expression such as
// "PLATFORM=='unix' and SHARED=='1'". Option lookups are disabled by
// default, matching how conditions guard option-dependent content.
func (m *Makefile) EvalCondition(expr string, opts ...EvalOption) (bool, error) {
	cfg := &evalConfig{useOptions: false}
	for _, opt := range opts {
		opt(cfg)
	}

	result, err := m.EvalExpr("$("+expr+")", func(c *evalConfig) { *c = *cfg })
	if err != nil {
		return false, err
	}
	return result != "0" && result != "", nil
}

// Get returns a global variable's current value.
func (m *Makefile) Get(name string) (string, bool) {
	return m.Vars.Lookup(name)
}

// IsErrUndefined reports whether err stems from an undefined variable,
// in either the model or the condition evaluator.
func IsErrUndefined(err error) bool {
	var modelErr *UndefinedVariableError
	if errors.As(err, &modelErr) {
		return true
	}
	var condErr *cond.UndefinedVariableError
	return errors.As(err, &condErr)
}
