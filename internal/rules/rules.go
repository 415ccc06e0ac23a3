// Package rules implements the deterministic first tier of the
// categorisation cascade: an ordered list of regex and amount conditions
// loaded from a YAML file, first match wins.
package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Condition restricts when a rule matches. Every declared field must match.
type Condition struct {
	Payee     string `yaml:"payee,omitempty"`
	Narration string `yaml:"narration,omitempty"`
	AmountMin string `yaml:"amount_min,omitempty"`
	AmountMax string `yaml:"amount_max,omitempty"`
}

// Rule maps a condition to a target account.
type Rule struct {
	Name          string    `yaml:"name"`
	Condition     Condition `yaml:"condition"`
	TargetAccount string    `yaml:"target_account"`
	Confidence    float64   `yaml:"confidence,omitempty"`
}

// DefaultConfidence applies when a rule declares none.
const DefaultConfidence = 0.9

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads the rules file. A missing file or an empty rules key is a
// valid empty ruleset.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return f.Rules, nil
}

// AppendRule appends a rule to the rules file and rewrites it atomically.
// A rule whose payee pattern is already present is skipped.
func AppendRule(path string, rule Rule) (bool, error) {
	existing, err := LoadFile(path)
	if err != nil {
		return false, err
	}
	for _, r := range existing {
		if r.Condition.Payee != "" && r.Condition.Payee == rule.Condition.Payee {
			return false, nil
		}
	}

	f := rulesFile{Rules: append(existing, rule)}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return false, fmt.Errorf("marshaling rules: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing rules file: %w", err)
	}
	return true, nil
}
