package bakefile

import (
	"context"
	"sort"

	"github.com/vslavik/bakefile/pkg/bakefile/expand"
	"github.com/vslavik/bakefile/pkg/bakefile/scope"
)

// DefaultMaxPasses bounds the finalize fixpoint iteration. Legitimate
// bakefiles converge in a handful of passes; hitting the bound means a
// variable reference cycle keeps producing new text.
const DefaultMaxPasses = 50

// FinalizeOption configures a Finalize call.
type FinalizeOption func(*finalizeConfig)

type finalizeConfig struct {
	maxPasses int
}

// WithMaxPasses overrides the fixpoint pass limit.
func WithMaxPasses(n int) FinalizeOption {
	return func(c *finalizeConfig) {
		if n > 0 {
			c.maxPasses = n
		}
	}
}

// finalizeItem is one pending variable on the finalize worklist.
type finalizeItem struct {
	name   string
	store  scope.MapStore
	target *Target
}

// Finalize drives variable evaluation to a fixpoint: every global and
// target variable still containing $(...) markers is re-evaluated until
// no value changes. Each evaluation substitutes one level of
// references, so chains like A -> B -> C settle in as many passes as
// the chain is deep.
//
// Variables are kept on a worklist and dropped once settled. When a
// usage tracker is attached, a value whose residual markers reference
// only options, conditional variables, or make variables counts as
// settled too: those stay symbolic on purpose and re-evaluating them
// can never change the result. A cycle that keeps growing values trips
// the pass limit and returns a CycleError.
func (m *Makefile) Finalize(ctx context.Context, opts ...FinalizeOption) error {
	cfg := &finalizeConfig{maxPasses: DefaultMaxPasses}
	for _, opt := range opts {
		opt(cfg)
	}

	work := m.buildWorklist()

	var unstable string
	for pass := 0; pass < cfg.maxPasses; pass++ {
		if len(work) == 0 {
			return nil
		}
		remaining, changed, name, err := m.finalizePass(ctx, work)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		work = remaining
		unstable = name
	}
	return &CycleError{Name: unstable, Passes: cfg.maxPasses}
}

// buildWorklist collects every variable that still contains markers,
// in deterministic order: globals, target variables, make-variable
// values.
func (m *Makefile) buildWorklist() []finalizeItem {
	var work []finalizeItem

	for _, name := range sortedKeys(m.Vars) {
		if expand.HasMarkers(m.Vars[name]) {
			work = append(work, finalizeItem{name: name, store: m.Vars})
		}
	}
	for _, id := range sortedTargetIDs(m.Targets) {
		t := m.Targets[id]
		for _, name := range sortedKeys(t.Vars) {
			if expand.HasMarkers(t.Vars[name]) {
				work = append(work, finalizeItem{name: name, store: t.Vars, target: t})
			}
		}
	}
	for _, name := range sortedKeys(m.MakeVars) {
		if expand.HasMarkers(m.MakeVars[name]) {
			work = append(work, finalizeItem{name: name, store: m.MakeVars})
		}
	}
	return work
}

// finalizePass evaluates every pending variable once. Settled items are
// dropped; the survivors come back for the next pass. Returns whether
// anything changed and the name of the last variable that did.
func (m *Makefile) finalizePass(ctx context.Context, work []finalizeItem) ([]finalizeItem, bool, string, error) {
	remaining := work[:0]
	changed := false
	last := ""

	for _, item := range work {
		value := item.store[item.name]

		evaluated, err := m.finalizeEval(ctx, item, value)
		if err != nil {
			return nil, false, "", &VariableError{Name: item.name, Value: value, Err: err}
		}

		if evaluated != value {
			item.store[item.name] = evaluated
			changed = true
			last = item.name
			if expand.HasMarkers(evaluated) {
				remaining = append(remaining, item)
			}
			continue
		}

		// Unchanged with markers left: settled only if the residual
		// references hit nothing but option, condvar, and make-variable
		// stores, whose symbolic forms never resolve further.
		if expand.HasMarkers(value) && !(m.tracker != nil && m.tracker.OnlyOptions()) {
			remaining = append(remaining, item)
		}
	}
	return remaining, changed, last, nil
}

// finalizeEval evaluates one worklist item, bracketed by an expand span
// when tracing is attached. The tracker is reset per variable so its
// counters describe exactly this value's residual lookups.
func (m *Makefile) finalizeEval(ctx context.Context, item finalizeItem, value string) (string, error) {
	if m.tracker != nil {
		m.tracker.Reset(false)
	}

	var opts []EvalOption
	if item.target != nil {
		opts = append(opts, OnTarget(item.target))
	}

	if m.spans == nil {
		return m.EvalExpr(value, opts...)
	}
	_, span := m.spans.StartExpandSpan(ctx, item.name)
	evaluated, err := m.EvalExpr(value, opts...)
	m.spans.EndSpanWithError(span, err)
	return evaluated, err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedTargetIDs(m map[string]*Target) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
