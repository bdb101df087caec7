package analyzer

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/skillgate/skillgate/internal/finding"
	"github.com/skillgate/skillgate/internal/masking"
	"github.com/skillgate/skillgate/internal/safefile"
)

// maxEvidenceLen bounds the matched text attached to a finding.
const maxEvidenceLen = 100

// categoryCredential marks rules whose evidence must be masked before
// the finding leaves the producing analyzer.
const categoryCredential = "credential"

// patternRule is one regex-backed detection rule. Rules are evaluated
// in declaration order; match position breaks ties within a rule.
type patternRule struct {
	id       string
	severity finding.Severity
	message  string
	re       *regexp.Regexp
	category string
}

// matchRules runs every rule against content and maps matches to
// findings with 1-based line numbers.
func matchRules(kind finding.Kind, relPath, content string, rules []patternRule) []finding.Finding {
	var out []finding.Finding
	for _, r := range rules {
		for _, loc := range r.re.FindAllStringIndex(content, -1) {
			out = append(out, newFinding(kind, r, relPath, content, loc[0], loc[1]))
		}
	}
	return out
}

func newFinding(kind finding.Kind, r patternRule, relPath, content string, start, end int) finding.Finding {
	evidence := truncateEvidence(content[start:end])
	if r.category == categoryCredential {
		evidence = masking.Mask(evidence)
	}
	f := finding.Finding{
		Analyzer: kind,
		Severity: r.severity,
		RuleID:   r.id,
		Message:  r.message,
		Location: finding.Location{File: relPath, Line: lineAt(content, start)},
		Evidence: evidence,
	}
	if r.category != "" {
		f.Metadata = map[string]string{"category": r.category}
	}
	return f
}

// lineAt returns the 1-based line number of byte offset idx.
func lineAt(content string, idx int) int {
	return 1 + strings.Count(content[:idx], "\n")
}

func truncateEvidence(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxEvidenceLen {
		return s
	}
	return s[:maxEvidenceLen]
}

// relPath converts an absolute file path back to its root-relative,
// slash-separated form.
func relPath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// fileReadConcurrency bounds parallel reads within one analyzer.
const fileReadConcurrency = 8

// scanFiles reads every file concurrently (honoring maxSize; 0 means
// no analyzer-specific cap beyond the walker's) and applies scanOne.
// Results keep walker order regardless of read completion order.
// Unreadable files yield no findings.
func scanFiles(ctx context.Context, in Input, maxSize int64, match func(path string) bool, scanOne func(rel, content string) []finding.Finding) []finding.Finding {
	type slot struct{ findings []finding.Finding }
	slots := make([]slot, len(in.Files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fileReadConcurrency)
	for i, abs := range in.Files {
		if match != nil && !match(abs) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return nil
			}
			limit := maxSize
			if limit <= 0 {
				limit = 50 * 1024 * 1024
			}
			data, err := safefile.ReadFileMax(abs, limit)
			if err != nil {
				return nil
			}
			slots[i].findings = scanOne(relPath(in.RootDir, abs), string(data))
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-file errors are swallowed

	var out []finding.Finding
	for _, s := range slots {
		out = append(out, s.findings...)
	}
	return out
}

// hasExt reports whether path's extension (without dot, lowercased) is
// in the given set.
func hasExt(path string, exts map[string]bool) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return exts[ext]
}
