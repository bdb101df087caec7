package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writePolicy(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const basePolicy = `version: "1.0"
name: base
thresholds:
  block: 40
  warn: 70
critical_block:
  - secret_aws_access_key
rules:
  static_eval_usage:
    severity: high
    weight: -20
    message: eval usage
exceptions:
  - pattern: "docs/**"
    ignore: [skill_sudo]
`

func TestLoad_Valid(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "p.yaml", basePolicy)

	p, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "base", p.Name)
	assert.Equal(t, 40, p.Thresholds.Block)
	assert.Equal(t, 70, p.Thresholds.Warn)
	assert.True(t, p.Rules["static_eval_usage"].IsEnabled())
}

func TestLoad_NotFound(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestLoad_SyntaxError(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "bad.yaml", "name: [unclosed")
	_, err := NewLoader().Load(path)
	assert.ErrorIs(t, err, ErrPolicySyntax)
}

func TestLoad_UnknownTopLevelField(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "bad.yaml", `version: "1.0"
name: x
thresholds: {block: 10, warn: 20}
surprise: true
`)
	_, err := NewLoader().Load(path)
	assert.ErrorIs(t, err, ErrPolicySyntax)
}

func TestLoad_SchemaViolations(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "bad.yaml", `version: "nope"
name: ""
thresholds:
  block: 80
  warn: 20
rules:
  broken_rule:
    severity: enormous
    weight: -5
    message: ""
exceptions:
  - pattern: ""
    ignore: []
`)
	_, err := NewLoader().Load(path)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	joined := verr.Error()
	assert.Contains(t, joined, "version")
	assert.Contains(t, joined, "name")
	assert.Contains(t, joined, "thresholds")
	assert.Contains(t, joined, "rules.broken_rule.severity")
	assert.Contains(t, joined, "exceptions[0].pattern")
}

func TestLoad_Extends(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "base.yaml", basePolicy)
	child := writePolicy(t, dir, "child.yaml", `version: "1.1"
name: strict
extends: base.yaml
thresholds:
  block: 60
critical_block:
  - skill_rm_rf_root
rules:
  static_eval_usage:
    severity: critical
    weight: -50
    message: eval is forbidden here
  skill_sudo:
    severity: medium
    weight: -8
    message: sudo in docs
exceptions:
  - pattern: "test/**"
    ignore: [static_eval_usage]
`)

	p, err := NewLoader().Load(child)
	require.NoError(t, err)

	assert.Equal(t, "strict", p.Name)
	assert.Equal(t, "1.1", p.Version)
	// Child block overrides, parent warn survives.
	assert.Equal(t, 60, p.Thresholds.Block)
	assert.Equal(t, 70, p.Thresholds.Warn)
	// Set union.
	assert.ElementsMatch(t, []string{"secret_aws_access_key", "skill_rm_rf_root"}, p.CriticalBlock)
	// Child rule overrides parent entry.
	assert.Equal(t, -50, p.Rules["static_eval_usage"].Weight)
	assert.Equal(t, -8, p.Rules["skill_sudo"].Weight)
	// Parent exceptions first, then child's.
	require.Len(t, p.Exceptions, 2)
	assert.Equal(t, "docs/**", p.Exceptions[0].Pattern)
	assert.Equal(t, "test/**", p.Exceptions[1].Pattern)
	// Extends is consumed during resolution.
	assert.Empty(t, p.Extends)
}

func TestLoad_ExtendsCycle(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "a.yaml", `version: "1.0"
name: a
extends: b.yaml
thresholds: {block: 10, warn: 20}
`)
	b := writePolicy(t, dir, "b.yaml", `version: "1.0"
name: b
extends: a.yaml
thresholds: {block: 10, warn: 20}
`)

	_, err := NewLoader().Load(b)
	assert.ErrorIs(t, err, ErrExtendsCycle)
}

func TestLoad_CachesByAbsolutePath(t *testing.T) {
	path := writePolicy(t, t.TempDir(), "p.yaml", basePolicy)

	loader := NewLoader()
	first, err := loader.Load(path)
	require.NoError(t, err)
	second, err := loader.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestPolicy_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writePolicy(t, dir, "p.yaml", basePolicy)
	p, err := NewLoader().Load(path)
	require.NoError(t, err)

	data, err := yaml.Marshal(p)
	require.NoError(t, err)
	reloaded := writePolicy(t, dir, "p2.yaml", string(data))
	p2, err := NewLoader().Load(reloaded)
	require.NoError(t, err)

	assert.Equal(t, p.Name, p2.Name)
	assert.Equal(t, p.Thresholds.Block, p2.Thresholds.Block)
	assert.Equal(t, p.Thresholds.Warn, p2.Thresholds.Warn)
	assert.Equal(t, p.Rules, p2.Rules)
	assert.Equal(t, p.Exceptions, p2.Exceptions)
	assert.Equal(t, p.CriticalBlock, p2.CriticalBlock)
}
