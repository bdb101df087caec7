package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skillgate/skillgate/internal/finding"
)

const categoryCI = "ci-config"

var (
	ciSecretEcho   = regexp.MustCompile(`echo[^\n]*\$\{\{\s*secrets\.`)
	ciPipeShell    = regexp.MustCompile(`(?:curl|wget)\s+[^\n|]*\|\s*(?:bash|sh)\b`)
	ciSHAPin       = regexp.MustCompile(`@[0-9a-f]{40}$`)
	ciSecretVarKey = regexp.MustCompile(`(?i)password|secret|token|key|api_key|apikey`)
)

// CIRiskAnalyzer inspects GitHub Actions workflows and GitLab CI
// configuration for risky settings: secret exposure, pipe-to-shell
// steps, unpinned third-party actions, plaintext secrets.
type CIRiskAnalyzer struct{}

func NewCIRiskAnalyzer() *CIRiskAnalyzer { return &CIRiskAnalyzer{} }

func (c *CIRiskAnalyzer) Kind() finding.Kind { return finding.KindCIRisk }
func (c *CIRiskAnalyzer) Name() string       { return "CI Risk Analyzer" }

func (c *CIRiskAnalyzer) Scan(ctx context.Context, in Input) ([]finding.Finding, error) {
	var out []finding.Finding
	for _, abs := range in.Files {
		rel := relPath(in.RootDir, abs)
		switch {
		case isWorkflowFile(rel):
			out = append(out, c.scanFile(abs, rel, c.scanWorkflow)...)
		case filepath.Base(rel) == ".gitlab-ci.yml":
			out = append(out, c.scanFile(abs, rel, c.scanGitLab)...)
		}
	}
	return out, nil
}

func isWorkflowFile(rel string) bool {
	if !strings.HasPrefix(rel, ".github/workflows/") {
		return false
	}
	return strings.HasSuffix(rel, ".yml") || strings.HasSuffix(rel, ".yaml")
}

func (c *CIRiskAnalyzer) scanFile(abs, rel string, scan func(rel string, doc map[string]any) []finding.Finding) []finding.Finding {
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []finding.Finding{{
			Analyzer: finding.KindCIRisk,
			Severity: finding.SeverityInfo,
			RuleID:   "ci_parse_error",
			Message:  fmt.Sprintf("Could not parse CI file: %v", err),
			Location: finding.Location{File: rel, Line: 1},
			Metadata: map[string]string{"category": categoryCI},
		}}
	}
	return scan(rel, doc)
}

func ciFinding(rel, ruleID, message string, severity finding.Severity, evidence string) finding.Finding {
	return finding.Finding{
		Analyzer: finding.KindCIRisk,
		Severity: severity,
		RuleID:   ruleID,
		Message:  message,
		Location: finding.Location{File: rel, Line: 1},
		Evidence: truncateEvidence(evidence),
		Metadata: map[string]string{"category": categoryCI},
	}
}

// --- GitHub Actions workflows ---

func (c *CIRiskAnalyzer) scanWorkflow(rel string, doc map[string]any) []finding.Finding {
	var out []finding.Finding

	if perms, ok := doc["permissions"].(string); ok && perms == "write-all" {
		out = append(out, ciFinding(rel, "ci_permissions_write_all",
			"Workflow grants write-all permissions", finding.SeverityHigh, "permissions: write-all"))
	}

	if on, ok := doc["on"]; ok && hasTriggerKey(on, "pull_request_target") {
		out = append(out, ciFinding(rel, "ci_pull_request_target",
			"Workflow runs on pull_request_target with access to secrets",
			finding.SeverityHigh, "on: pull_request_target"))
	}

	for _, step := range workflowSteps(doc) {
		out = append(out, scanWorkflowStep(rel, step)...)
	}
	return out
}

func hasTriggerKey(on any, trigger string) bool {
	switch v := on.(type) {
	case string:
		return v == trigger
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == trigger {
				return true
			}
		}
	case map[string]any:
		_, ok := v[trigger]
		return ok
	}
	return false
}

// workflowSteps flattens every job's steps.
func workflowSteps(doc map[string]any) []map[string]any {
	jobs, ok := doc["jobs"].(map[string]any)
	if !ok {
		return nil
	}
	var steps []map[string]any
	for _, job := range jobs {
		jm, ok := job.(map[string]any)
		if !ok {
			continue
		}
		list, ok := jm["steps"].([]any)
		if !ok {
			continue
		}
		for _, s := range list {
			if sm, ok := s.(map[string]any); ok {
				steps = append(steps, sm)
			}
		}
	}
	return steps
}

func scanWorkflowStep(rel string, step map[string]any) []finding.Finding {
	var out []finding.Finding

	if run, ok := step["run"].(string); ok {
		if ciSecretEcho.MatchString(run) {
			out = append(out, ciFinding(rel, "ci_secret_exposure",
				"Workflow step echoes a secret into the log", finding.SeverityCritical, run))
		}
		if ciPipeShell.MatchString(run) {
			out = append(out, ciFinding(rel, "ci_curl_pipe_shell",
				"Workflow step pipes a download into a shell", finding.SeverityHigh, run))
		}
	}

	if uses, ok := step["uses"].(string); ok {
		out = append(out, scanUsesRef(rel, uses)...)
	}
	return out
}

func scanUsesRef(rel, uses string) []finding.Finding {
	var out []finding.Finding
	unpinned := !strings.Contains(uses, "@") ||
		strings.HasSuffix(uses, "@main") || strings.HasSuffix(uses, "@master")
	if unpinned {
		out = append(out, ciFinding(rel, "ci_unpinned_action",
			"Action reference is not pinned to an immutable revision", finding.SeverityMedium, uses))
	}
	if !strings.HasPrefix(uses, "actions/") && !ciSHAPin.MatchString(uses) {
		out = append(out, ciFinding(rel, "ci_third_party_action",
			"Third-party action is not pinned to a commit SHA", finding.SeverityMedium, uses))
	}
	return out
}

// --- GitLab CI ---

func (c *CIRiskAnalyzer) scanGitLab(rel string, doc map[string]any) []finding.Finding {
	var out []finding.Finding

	if vars, ok := doc["variables"].(map[string]any); ok {
		for key, value := range vars {
			s, isString := value.(string)
			if !isString || s == "" {
				continue
			}
			if ciSecretVarKey.MatchString(key) {
				out = append(out, ciFinding(rel, "ci_plaintext_secret",
					fmt.Sprintf("GitLab variable %s holds a plaintext secret", key),
					finding.SeverityHigh, key))
			}
		}
	}

	for name, job := range doc {
		jm, ok := job.(map[string]any)
		if !ok {
			continue
		}
		script, ok := jm["script"].([]any)
		if !ok {
			continue
		}
		for _, entry := range script {
			line, ok := entry.(string)
			if !ok {
				continue
			}
			if ciPipeShell.MatchString(line) {
				out = append(out, ciFinding(rel, "ci_script_pipe_shell",
					fmt.Sprintf("GitLab job %s pipes a download into a shell", name),
					finding.SeverityHigh, line))
			}
		}
	}
	return out
}
