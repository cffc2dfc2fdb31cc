package bakefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// buildFile is the YAML shape of a bakefile. Variable sections are kept
// as raw nodes because declaration order matters: values are evaluated
// as they are set, so a variable may only reference what precedes it.
type buildFile struct {
	Variables yaml.Node      `yaml:"variables"`
	MakeVars  yaml.Node      `yaml:"make_vars"`
	Options   []buildOption  `yaml:"options"`
	CondVars  []buildCondVar `yaml:"cond_vars"`
	Targets   []buildTarget  `yaml:"targets"`
}

type buildOption struct {
	Name    string   `yaml:"name"`
	Default string   `yaml:"default"`
	Values  []string `yaml:"values"`
}

type buildCondVar struct {
	Name   string `yaml:"name"`
	Values []struct {
		Cond  string `yaml:"cond"`
		Value string `yaml:"value"`
	} `yaml:"values"`
}

type buildTarget struct {
	ID        string    `yaml:"id"`
	Type      string    `yaml:"type"`
	Variables yaml.Node `yaml:"variables"`
}

// LoadBuildFile reads a bakefile from path and populates m with its
// options, conditional variables, variables, make variables, and
// targets, in that order. Options and conditional variables are
// registered first so variable values can reference them.
func (m *Makefile) LoadBuildFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read bakefile: %w", err)
	}
	if err := m.loadBuildData(data); err != nil {
		return fmt.Errorf("failed to load bakefile %s: %w", path, err)
	}
	return nil
}

// loadBuildData parses and applies one bakefile document.
func (m *Makefile) loadBuildData(data []byte) error {
	var bf buildFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	for _, o := range bf.Options {
		if o.Name == "" {
			return fmt.Errorf("option without a name")
		}
		m.AddOption(&Option{Name: o.Name, Default: o.Default, Values: o.Values})
	}

	for _, cv := range bf.CondVars {
		if cv.Name == "" {
			return fmt.Errorf("conditional variable without a name")
		}
		values := make([]CondValue, 0, len(cv.Values))
		for _, v := range cv.Values {
			values = append(values, CondValue{Cond: v.Cond, Value: v.Value})
		}
		m.AddCondVar(&CondVar{Name: cv.Name, Values: values})
	}

	if err := m.applyVarNode(&bf.Variables, nil, nil); err != nil {
		return err
	}

	if err := m.applyVarNode(&bf.MakeVars, nil, []SetOption{AsMakeVar()}); err != nil {
		return err
	}

	for _, bt := range bf.Targets {
		if bt.ID == "" {
			return fmt.Errorf("target without an id")
		}
		t := NewTarget(bt.ID, bt.Type)
		m.AddTarget(t)
		if err := m.applyVarNode(&bt.Variables, t, nil); err != nil {
			return err
		}
	}

	return nil
}

// applyVarNode sets variables from a YAML mapping node in document
// order.
func (m *Makefile) applyVarNode(node *yaml.Node, target *Target, extra []SetOption) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("variables must be a mapping")
	}

	opts := extra
	if target != nil {
		opts = append([]SetOption{SetOnTarget(target)}, extra...)
	}

	// Mapping content alternates key and value nodes.
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		val := node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("variable %s: value must be a scalar", key.Value)
		}
		if err := m.SetVar(key.Value, val.Value, opts...); err != nil {
			return err
		}
	}
	return nil
}
