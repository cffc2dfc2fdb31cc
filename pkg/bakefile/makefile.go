package bakefile

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/vslavik/bakefile/pkg/bakefile/cond"
	"github.com/vslavik/bakefile/pkg/bakefile/observability"
	"github.com/vslavik/bakefile/pkg/bakefile/scope"
)

// Option is a user-configurable build option. Its value is decided at
// make time, so references to it survive into the generated output
// unless a concrete default is substituted.
type Option struct {
	// Name is the option identifier.
	Name string

	// Default is the value used when the user picks none.
	Default string

	// Values are the allowed values, empty for free-form options.
	Values []string
}

// CondValue is one conditional alternative of a CondVar.
type CondValue struct {
	// Cond is the condition expression guarding the value.
	Cond string

	// Value is used when Cond evaluates true.
	Value string
}

// CondVar is a variable whose value depends on option conditions.
type CondVar struct {
	// Name is the variable identifier.
	Name string

	// Values are the alternatives, tried in order; the first whose
	// condition holds wins.
	Values []CondValue
}

// Target is one buildable entity of the makefile: an executable,
// library, or phony rule. Target variables shadow global variables
// while the target is being evaluated.
type Target struct {
	// ID is the unique target identifier.
	ID string

	// Type is the target kind ("exe", "lib", "dll", "phony", ...).
	Type string

	// Vars are the target's own variables.
	Vars scope.MapStore
}

// NewTarget creates a target with an empty variable map.
func NewTarget(id, typ string) *Target {
	return &Target{ID: id, Type: typ, Vars: make(scope.MapStore)}
}

// Makefile is the in-memory model of one build description: everything
// read from a bakefile, progressively evaluated until it can be written
// out in a concrete output format.
type Makefile struct {
	// RunID uniquely identifies this processing run in logs and traces.
	RunID string

	// Vars are the global variables.
	Vars scope.MapStore

	// MakeVars holds the raw values of variables promoted to make
	// variables; the corresponding Vars entry is a $(NAME) reference.
	MakeVars scope.MapStore

	// Options are the user-configurable options by name.
	Options map[string]*Option

	// CondVars are the conditional variables by name.
	CondVars map[string]*CondVar

	// Targets are the build targets by ID.
	Targets map[string]*Target

	// Deps are files this makefile was built from, beyond the bakefile
	// itself, e.g. included fragments. Recorded in the deps store after
	// generation.
	Deps []string

	// overrides are variables fixed from the command line; SetVar
	// silently refuses to change them.
	overrides map[string]bool

	// tracker observes variable lookups during evaluation; may be nil.
	tracker *UsageTracker

	condEval *cond.Evaluator
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
}

// MakefileOption configures a new Makefile.
type MakefileOption func(*Makefile)

// WithLogger attaches a structured logger used for debug-level variable
// tracing.
func WithLogger(logger *slog.Logger) MakefileOption {
	return func(m *Makefile) {
		m.logger = logger
	}
}

// WithUsageTracker attaches a tracker that observes which stores
// variable lookups hit during evaluation.
func WithUsageTracker(t *UsageTracker) MakefileOption {
	return func(m *Makefile) {
		m.tracker = t
	}
}

// WithConditionEvaluator replaces the default condition evaluator, e.g.
// to add custom operators.
func WithConditionEvaluator(e *cond.Evaluator) MakefileOption {
	return func(m *Makefile) {
		m.condEval = e
	}
}

// WithMetrics records per-expansion counters and latency through mr.
func WithMetrics(mr observability.MetricsRecorder) MakefileOption {
	return func(m *Makefile) {
		m.metrics = mr
	}
}

// WithSpans traces each variable evaluated during Finalize as a child
// span of the surrounding generation span.
func WithSpans(sm observability.SpanManager) MakefileOption {
	return func(m *Makefile) {
		m.spans = sm
	}
}

// New creates an empty Makefile with a fresh run ID.
func New(opts ...MakefileOption) *Makefile {
	m := &Makefile{
		RunID:     uuid.NewString(),
		Vars:      make(scope.MapStore),
		MakeVars:  make(scope.MapStore),
		Options:   make(map[string]*Option),
		CondVars:  make(map[string]*CondVar),
		Targets:   make(map[string]*Target),
		overrides: make(map[string]bool),
		condEval:  cond.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddTarget registers a target.
func (m *Makefile) AddTarget(t *Target) {
	m.Targets[t.ID] = t
}

// AddDependency records an extra input file, skipping duplicates.
func (m *Makefile) AddDependency(path string) {
	for _, d := range m.Deps {
		if d == path {
			return
		}
	}
	m.Deps = append(m.Deps, path)
}

// AddOption registers a user option. Its default value becomes
// resolvable wherever option lookups are enabled.
func (m *Makefile) AddOption(o *Option) {
	m.Options[o.Name] = o
}

// AddCondVar registers a conditional variable.
func (m *Makefile) AddCondVar(cv *CondVar) {
	m.CondVars[cv.Name] = cv
}

// AddMakeVar promotes name to a make variable: the raw value is
// remembered for output and every reference to name resolves to the
// symbolic $(NAME) form, deferring the substitution to make itself.
func (m *Makefile) AddMakeVar(name, value string) {
	m.MakeVars[name] = value
	m.Vars[name] = "$(" + name + ")"
}

// Override fixes name to value; subsequent SetVar calls on the global
// store cannot change it. Used for -D command-line definitions.
func (m *Makefile) Override(name, value string) {
	m.Vars[name] = value
	m.overrides[name] = true
}

// UnsetVar removes name from the globals or conditional variables.
// Returns true if something was removed.
func (m *Makefile) UnsetVar(name string) bool {
	if _, ok := m.Vars[name]; ok {
		delete(m.Vars, name)
		return true
	}
	if _, ok := m.CondVars[name]; ok {
		delete(m.CondVars, name)
		return true
	}
	return false
}

// delOption removes an option being overwritten by a plain variable.
func (m *Makefile) delOption(name string) {
	delete(m.Options, name)
}

// delCondVar removes a conditional variable being overwritten by a
// plain variable.
func (m *Makefile) delCondVar(name string) {
	delete(m.CondVars, name)
}
