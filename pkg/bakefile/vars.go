package bakefile

import (
	"github.com/vslavik/bakefile/pkg/bakefile/observability"
	"github.com/vslavik/bakefile/pkg/bakefile/scope"
)

// SetOption configures one SetVar call.
type SetOption func(*setConfig)

type setConfig struct {
	target      *Target
	addVars     scope.MapStore
	appendTo    bool
	prepend     bool
	noOverwrite bool
	raw         bool
	asMakeVar   bool
}

// SetOnTarget stores the variable on the target instead of the globals.
// The target's existing variables also shadow globals while the value
// is evaluated.
func SetOnTarget(t *Target) SetOption {
	return func(c *setConfig) {
		c.target = t
	}
}

// SetWithVars pushes extra variables onto the scope chain for the value
// evaluation only; they are not stored anywhere.
func SetWithVars(vars map[string]string) SetOption {
	return func(c *setConfig) {
		c.addVars = vars
	}
}

// Append joins the evaluated value to the variable's current value with
// a single space. A previously unset variable is simply set.
func Append() SetOption {
	return func(c *setConfig) {
		c.appendTo = true
	}
}

// Prepend joins the evaluated value in front of the variable's current
// value with a single space.
func Prepend() SetOption {
	return func(c *setConfig) {
		c.prepend = true
	}
}

// NoOverwrite makes the call a no-op when the variable, an option, or a
// conditional variable of the same name already exists.
func NoOverwrite() SetOption {
	return func(c *setConfig) {
		c.noOverwrite = true
	}
}

// Raw stores the value verbatim, without evaluating $(...) expressions
// in it. Finalize evaluates such values later.
func Raw() SetOption {
	return func(c *setConfig) {
		c.raw = true
	}
}

// AsMakeVar promotes the variable to a make variable after evaluation,
// so references to it keep the symbolic $(NAME) form in the output.
func AsMakeVar() SetOption {
	return func(c *setConfig) {
		c.asMakeVar = true
	}
}

// SetVar sets a variable, evaluating $(...) expressions in value
// against the current scopes unless Raw is given. Values are evaluated
// at set time; a variable captures the referenced values as they are
// now, not as they end up later.
//
// Setting a plain variable displaces an option or conditional variable
// of the same name. Variables fixed with Override are silently left
// unchanged.
func (m *Makefile) SetVar(name, value string, opts ...SetOption) error {
	cfg := &setConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	store := m.Vars
	if cfg.target != nil {
		store = cfg.target.Vars
	}

	if cfg.target == nil && m.overrides[name] {
		return nil
	}
	if cfg.noOverwrite {
		if cfg.target != nil {
			if _, ok := store[name]; ok {
				return nil
			}
		} else if m.varExists(name, store) {
			return nil
		}
	}

	stored := value
	if !cfg.raw {
		evalOpts := []EvalOption{}
		if cfg.target != nil {
			evalOpts = append(evalOpts, OnTarget(cfg.target))
		}
		if cfg.addVars != nil {
			evalOpts = append(evalOpts, WithAddVars(cfg.addVars))
		}
		evaluated, err := m.EvalExpr(value, evalOpts...)
		if err != nil {
			return &VariableError{Name: name, Value: value, Err: err}
		}
		stored = evaluated
	}

	if cfg.appendTo || cfg.prepend {
		if old, ok := store[name]; ok && old != "" {
			if cfg.appendTo {
				stored = old + " " + stored
			} else {
				stored = stored + " " + old
			}
		}
	}

	if cfg.asMakeVar && cfg.target == nil {
		m.AddMakeVar(name, stored)
		observability.LogVariableSet(m.logger, name, stored, "make")
		return nil
	}

	if cfg.target == nil {
		m.delOption(name)
		m.delCondVar(name)
	}
	store[name] = stored

	kind := "global"
	if cfg.target != nil {
		kind = "target"
	}
	observability.LogVariableSet(m.logger, name, stored, kind)
	return nil
}

// varExists reports whether name is already defined in store or, when
// store is the global one, as an option or conditional variable.
func (m *Makefile) varExists(name string, store scope.MapStore) bool {
	if _, ok := store[name]; ok {
		return true
	}
	if _, ok := m.Options[name]; ok {
		return true
	}
	if _, ok := m.CondVars[name]; ok {
		return true
	}
	return false
}
