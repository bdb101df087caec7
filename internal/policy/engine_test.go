package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/finding"
)

func testPolicy() *Policy {
	return &Policy{
		Version:    "1.0",
		Name:       "test",
		Thresholds: Thresholds{Block: 40, Warn: 70},
	}
}

func mkFinding(rule string, sev finding.Severity, file string) finding.Finding {
	return finding.Finding{
		Analyzer: finding.KindStatic,
		Severity: sev,
		RuleID:   rule,
		Message:  rule,
		Location: finding.Location{File: file, Line: 1},
	}
}

func TestEvaluate_Empty(t *testing.T) {
	eval := Evaluate(testPolicy(), nil)
	assert.Equal(t, 100, eval.Score)
	assert.Empty(t, eval.Triggered)
	assert.False(t, eval.HasCriticalBlock)
}

func TestEvaluate_DefaultWeights(t *testing.T) {
	findings := []finding.Finding{
		mkFinding("a_critical", finding.SeverityCritical, "f1"),
		mkFinding("b_high", finding.SeverityHigh, "f2"),
		mkFinding("c_medium", finding.SeverityMedium, "f3"),
		mkFinding("d_low", finding.SeverityLow, "f4"),
		mkFinding("e_info", finding.SeverityInfo, "f5"),
	}
	eval := Evaluate(testPolicy(), findings)
	// 100 - 50 - 20 - 10 - 5 - 0 = 15
	assert.Equal(t, 15, eval.Score)
	assert.Len(t, eval.Triggered, 5)
}

func TestEvaluate_DedupByRuleID(t *testing.T) {
	findings := []finding.Finding{
		mkFinding("secret_aws_access_key", finding.SeverityCritical, "a.ts"),
		mkFinding("secret_aws_access_key", finding.SeverityCritical, "b.ts"),
		mkFinding("secret_aws_access_key", finding.SeverityCritical, "c.ts"),
	}
	eval := Evaluate(testPolicy(), findings)

	assert.Equal(t, 50, eval.Score, "weight applies exactly once")
	require.Len(t, eval.Triggered, 1)
	tr := eval.Triggered[0]
	assert.Equal(t, 3, tr.Count)
	assert.Len(t, tr.Findings, 3)
	assert.Equal(t, "a.ts", tr.Findings[0].Location.File)
}

func TestEvaluate_PolicyRuleOverride(t *testing.T) {
	p := testPolicy()
	p.Rules = map[string]Rule{
		"static_eval_usage": {Severity: finding.SeverityLow, Weight: -3, Message: "downgraded"},
	}
	eval := Evaluate(p, []finding.Finding{
		mkFinding("static_eval_usage", finding.SeverityHigh, "x.ts"),
	})

	assert.Equal(t, 97, eval.Score)
	require.Len(t, eval.Triggered, 1)
	assert.Equal(t, finding.SeverityLow, eval.Triggered[0].Severity)
	assert.Equal(t, "downgraded", eval.Triggered[0].Message)
}

func TestEvaluate_DisabledRuleDropped(t *testing.T) {
	off := false
	p := testPolicy()
	p.Rules = map[string]Rule{
		"static_eval_usage": {Severity: finding.SeverityHigh, Weight: -20, Message: "x", Enabled: &off},
	}
	eval := Evaluate(p, []finding.Finding{
		mkFinding("static_eval_usage", finding.SeverityHigh, "x.ts"),
	})

	assert.Equal(t, 100, eval.Score)
	assert.Empty(t, eval.Triggered)
	assert.Empty(t, eval.Suppressed, "disabled is dropped, not suppressed")
}

func TestEvaluate_Suppression(t *testing.T) {
	p := testPolicy()
	p.Exceptions = []Exception{
		{Pattern: "test/**", Ignore: []string{"static_eval_usage"}},
	}
	eval := Evaluate(p, []finding.Finding{
		mkFinding("static_eval_usage", finding.SeverityHigh, "test/foo.ts"),
		mkFinding("static_eval_usage", finding.SeverityHigh, "src/app.ts"),
	})

	require.Len(t, eval.Suppressed, 1)
	assert.Equal(t, "test/foo.ts", eval.Suppressed[0].Location.File)
	require.Len(t, eval.Scored, 1)
	assert.Equal(t, "src/app.ts", eval.Scored[0].Location.File)
	// Only the unsuppressed occurrence scores.
	assert.Equal(t, 80, eval.Score)
	require.Len(t, eval.Triggered, 1)
	assert.Equal(t, 1, eval.Triggered[0].Count)
}

func TestEvaluate_SuppressionRequiresRuleMatch(t *testing.T) {
	p := testPolicy()
	p.Exceptions = []Exception{
		{Pattern: "test/**", Ignore: []string{"some_other_rule"}},
	}
	eval := Evaluate(p, []finding.Finding{
		mkFinding("static_eval_usage", finding.SeverityHigh, "test/foo.ts"),
	})
	assert.Empty(t, eval.Suppressed)
	assert.Equal(t, 80, eval.Score)
}

func TestEvaluate_CriticalBlock(t *testing.T) {
	p := testPolicy()
	p.CriticalBlock = []string{"secret_aws_access_key"}
	eval := Evaluate(p, []finding.Finding{
		mkFinding("secret_aws_access_key", finding.SeverityCritical, "a.ts"),
		mkFinding("secret_aws_access_key", finding.SeverityCritical, "b.ts"),
	})

	assert.True(t, eval.HasCriticalBlock)
	assert.Equal(t, []string{"secret_aws_access_key"}, eval.CriticalBlockHit, "deduplicated")
}

func TestEvaluate_CriticalBlockWithoutRuleDefinition(t *testing.T) {
	p := testPolicy()
	p.CriticalBlock = []string{"mystery_rule"}
	eval := Evaluate(p, []finding.Finding{
		mkFinding("mystery_rule", finding.SeverityCritical, "a.ts"),
	})

	assert.True(t, eval.HasCriticalBlock)
	assert.Equal(t, 50, eval.Score, "default weight synthesized from severity")
}

func TestEvaluate_ScoreClamped(t *testing.T) {
	var findings []finding.Finding
	for i := 0; i < 10; i++ {
		findings = append(findings, mkFinding(
			"rule_"+string(rune('a'+i)), finding.SeverityCritical, "f"))
	}
	eval := Evaluate(testPolicy(), findings)
	assert.Equal(t, 0, eval.Score)
}

func TestEvaluate_Deterministic(t *testing.T) {
	findings := []finding.Finding{
		mkFinding("b_rule", finding.SeverityHigh, "b"),
		mkFinding("a_rule", finding.SeverityLow, "a"),
		mkFinding("b_rule", finding.SeverityHigh, "b2"),
	}
	first := Evaluate(testPolicy(), findings)
	second := Evaluate(testPolicy(), findings)
	assert.Equal(t, first.Score, second.Score)
	require.Equal(t, len(first.Triggered), len(second.Triggered))
	// Triggered order follows first occurrence in input order.
	assert.Equal(t, "b_rule", first.Triggered[0].RuleID)
	assert.Equal(t, "a_rule", first.Triggered[1].RuleID)
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"test/**", "test/foo.ts", true},
		{"test/**", "test/a/b/c.ts", true},
		{"test/**", "src/foo.ts", false},
		{"*.md", "README.md", true},
		{"*.md", "docs/README.md", false},
		{"**/*.md", "docs/deep/README.md", true},
		{"**/*.md", "README.md", true},
		{"**/*", "anything/at/all.txt", true},
		{"**/*", "top.txt", true},
		{"docs/*.md", "docs/a.md", true},
		{"docs/*.md", "docs/sub/a.md", false},
		{"a?c.txt", "abc.txt", true},
		{"a?c.txt", "ac.txt", false},
		{"Test/**", "test/foo.ts", false}, // case-sensitive
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, globMatch(tc.pattern, tc.path),
			"pattern %q path %q", tc.pattern, tc.path)
	}
}
