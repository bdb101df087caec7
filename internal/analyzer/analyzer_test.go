package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/finding"
)

// buildInput writes files into a temp dir and returns the scan input,
// mirroring what the ingestor hands the orchestrator.
func buildInput(t *testing.T, files map[string]string) Input {
	t.Helper()
	dir := t.TempDir()
	in := Input{RootDir: dir}

	var rels []string
	for rel := range files {
		rels = append(rels, rel)
	}
	// Walker order is sorted.
	for i := 0; i < len(rels); i++ {
		for j := i + 1; j < len(rels); j++ {
			if rels[j] < rels[i] {
				rels[i], rels[j] = rels[j], rels[i]
			}
		}
	}
	for _, rel := range rels {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(files[rel]), 0o644))
		in.Files = append(in.Files, abs)
	}
	return in
}

func findByRule(findings []finding.Finding, ruleID string) []finding.Finding {
	var out []finding.Finding
	for _, f := range findings {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}

// --- Orchestrator ---

type stubAnalyzer struct {
	kind     finding.Kind
	findings []finding.Finding
	err      error
	panics   bool
}

func (s *stubAnalyzer) Kind() finding.Kind { return s.kind }
func (s *stubAnalyzer) Name() string       { return string(s.kind) }
func (s *stubAnalyzer) Scan(context.Context, Input) ([]finding.Finding, error) {
	if s.panics {
		panic("boom")
	}
	return s.findings, s.err
}

func TestOrchestrator_RegistrationOrder(t *testing.T) {
	a := &stubAnalyzer{kind: finding.KindSecret, findings: []finding.Finding{{RuleID: "a"}}}
	b := &stubAnalyzer{kind: finding.KindStatic, findings: []finding.Finding{{RuleID: "b"}}}
	c := &stubAnalyzer{kind: finding.KindSkill, findings: []finding.Finding{{RuleID: "c"}}}

	results := NewOrchestrator(a, b, c).Scan(context.Background(), Input{})
	require.Len(t, results, 3)
	assert.Equal(t, finding.KindSecret, results[0].Kind)
	assert.Equal(t, finding.KindStatic, results[1].Kind)
	assert.Equal(t, finding.KindSkill, results[2].Kind)

	flat := Findings(results)
	require.Len(t, flat, 3)
	assert.Equal(t, "a", flat[0].RuleID)
	assert.Equal(t, "b", flat[1].RuleID)
	assert.Equal(t, "c", flat[2].RuleID)
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	ok := &stubAnalyzer{kind: finding.KindSecret, findings: []finding.Finding{{RuleID: "ok"}}}
	bad := &stubAnalyzer{kind: finding.KindStatic, err: errors.New("exploded")}

	results := NewOrchestrator(ok, bad).Scan(context.Background(), Input{})
	require.Len(t, results, 2)

	assert.Empty(t, results[0].Err)
	assert.Len(t, results[0].Findings, 1)

	assert.Equal(t, "exploded", results[1].Err)
	assert.Empty(t, results[1].Findings)

	errs := Errors(results)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "static")
}

func TestOrchestrator_PanicIsolation(t *testing.T) {
	ok := &stubAnalyzer{kind: finding.KindSecret}
	panicky := &stubAnalyzer{kind: finding.KindSkill, panics: true}

	results := NewOrchestrator(panicky, ok).Scan(context.Background(), Input{})
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Err, "panic")
	assert.Empty(t, results[0].Findings)
	assert.Empty(t, results[1].Err)
}

func TestDefault_SixAnalyzersInOrder(t *testing.T) {
	results := Default(nil).Scan(context.Background(), Input{})
	require.Len(t, results, 6)
	kinds := []finding.Kind{
		finding.KindSecret, finding.KindStatic, finding.KindSkill,
		finding.KindEntrypoint, finding.KindDependency, finding.KindCIRisk,
	}
	for i, k := range kinds {
		assert.Equal(t, k, results[i].Kind)
	}
}

func TestLineAt(t *testing.T) {
	content := "first\nsecond\nthird"
	assert.Equal(t, 1, lineAt(content, 0))
	assert.Equal(t, 2, lineAt(content, 6))
	assert.Equal(t, 3, lineAt(content, 13))
}
