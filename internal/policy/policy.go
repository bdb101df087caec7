// Package policy defines the declarative scan policy: which rules
// carry what weight, which rule ids block outright, and which findings
// are suppressed. It loads policies from YAML with single-parent
// inheritance and evaluates finding lists against them.
package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skillgate/skillgate/internal/finding"
)

// Thresholds split the score range into allow / quarantine / block
// bands. Invariant: 0 <= Block <= Warn <= 100.
type Thresholds struct {
	Block int `yaml:"-" json:"block"`
	Warn  int `yaml:"-" json:"warn"`

	// set-ness is tracked so inheritance merges field-by-field.
	blockSet bool
	warnSet  bool
}

// UnmarshalYAML records which threshold fields the document actually
// set, so a child policy can override just one of them.
func (t *Thresholds) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Block *int `yaml:"block"`
		Warn  *int `yaml:"warn"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Block != nil {
		t.Block = *raw.Block
		t.blockSet = true
	}
	if raw.Warn != nil {
		t.Warn = *raw.Warn
		t.warnSet = true
	}
	return nil
}

// MarshalYAML round-trips the resolved values.
func (t Thresholds) MarshalYAML() (any, error) {
	return map[string]int{"block": t.Block, "warn": t.Warn}, nil
}

func mergeThresholds(parent, child Thresholds) Thresholds {
	out := parent
	if child.blockSet {
		out.Block = child.Block
		out.blockSet = true
	}
	if child.warnSet {
		out.Warn = child.Warn
		out.warnSet = true
	}
	return out
}

// Rule overrides severity, weight, and message for one rule id.
// Weight is signed and typically negative. A disabled rule drops its
// findings entirely.
type Rule struct {
	Severity finding.Severity `yaml:"severity" json:"severity"`
	Weight   int              `yaml:"weight" json:"weight"`
	Message  string           `yaml:"message" json:"message"`
	Enabled  *bool            `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports the rule's enabled state (default true).
func (r Rule) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

// Exception suppresses specific rule ids for paths matching a glob.
type Exception struct {
	Pattern string   `yaml:"pattern" json:"pattern"`
	Ignore  []string `yaml:"ignore" json:"ignore"`
	Reason  string   `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Policy is the complete declarative scan policy.
type Policy struct {
	Version       string          `yaml:"version" json:"version"`
	Name          string          `yaml:"name" json:"name"`
	Description   string          `yaml:"description,omitempty" json:"description,omitempty"`
	Extends       string          `yaml:"extends,omitempty" json:"extends,omitempty"`
	Thresholds    Thresholds      `yaml:"thresholds" json:"thresholds"`
	CriticalBlock []string        `yaml:"critical_block,omitempty" json:"critical_block,omitempty"`
	Rules         map[string]Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
	Exceptions    []Exception     `yaml:"exceptions,omitempty" json:"exceptions,omitempty"`
}

var versionShape = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// Validate checks structural invariants, returning every violation as
// a "path.to.field: reason" message.
func (p *Policy) Validate() error {
	var problems []string
	add := func(field, reason string) {
		problems = append(problems, fmt.Sprintf("%s: %s", field, reason))
	}

	if !versionShape.MatchString(p.Version) {
		add("version", fmt.Sprintf("%q does not match MAJOR.MINOR[.PATCH]", p.Version))
	}
	if len(p.Name) < 1 || len(p.Name) > 50 {
		add("name", "must be 1-50 characters")
	}
	if p.Thresholds.Block < 0 || p.Thresholds.Warn > 100 || p.Thresholds.Block > p.Thresholds.Warn {
		add("thresholds", fmt.Sprintf("require 0 <= block (%d) <= warn (%d) <= 100",
			p.Thresholds.Block, p.Thresholds.Warn))
	}
	for id, rule := range p.Rules {
		if !rule.Severity.Valid() {
			add("rules."+id+".severity", fmt.Sprintf("unknown severity %q", rule.Severity))
		}
		if rule.Message == "" {
			add("rules."+id+".message", "must be non-empty")
		}
	}
	for i, ex := range p.Exceptions {
		field := fmt.Sprintf("exceptions[%d]", i)
		if ex.Pattern == "" {
			add(field+".pattern", "must be non-empty")
		}
		if len(ex.Ignore) == 0 {
			add(field+".ignore", "must list at least one rule id")
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return &ValidationError{Problems: problems}
}

// ValidationError aggregates schema violations found at load time.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid policy: %s", strings.Join(e.Problems, "; "))
}

// merge produces the child policy layered over its parent: child
// scalars win, thresholds merge field-by-field, critical_block unions,
// rules union with child overriding, exceptions concatenate parent
// first.
func merge(parent, child *Policy) *Policy {
	out := *parent
	out.Extends = ""

	if child.Version != "" {
		out.Version = child.Version
	}
	if child.Name != "" {
		out.Name = child.Name
	}
	if child.Description != "" {
		out.Description = child.Description
	}
	out.Thresholds = mergeThresholds(parent.Thresholds, child.Thresholds)

	out.CriticalBlock = unionStrings(parent.CriticalBlock, child.CriticalBlock)

	out.Rules = make(map[string]Rule, len(parent.Rules)+len(child.Rules))
	for id, r := range parent.Rules {
		out.Rules[id] = r
	}
	for id, r := range child.Rules {
		out.Rules[id] = r
	}

	out.Exceptions = nil
	out.Exceptions = append(out.Exceptions, parent.Exceptions...)
	out.Exceptions = append(out.Exceptions, child.Exceptions...)
	return &out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
