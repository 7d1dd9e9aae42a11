package constitution

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a constitution YAML document into a RuleSet.
// Top-level keys are action names; values are ordered rule lists.
// Unreadable or malformed documents return a *LoadError.
func LoadFromFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return rs, nil
}

// Parse unmarshals a constitution document, applies rule defaults, and
// validates each rule.
func Parse(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse constitution: %w", err)
	}

	for name, rules := range rs {
		for i := range rules {
			rules[i].applyDefaults()
			if err := rules[i].Validate(); err != nil {
				return nil, fmt.Errorf("constitution: %s: rule[%d]: %w", name, i, err)
			}
		}
	}
	return rs, nil
}
