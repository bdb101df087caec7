package analyzer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/skillgate/skillgate/internal/finding"
)

const categoryInstallHook = "install-hook"

// npmLifecycleScripts that run automatically on install, with the
// severity each one carries.
var npmLifecycleScripts = []struct {
	name     string
	severity finding.Severity
}{
	{"postinstall", finding.SeverityHigh},
	{"preinstall", finding.SeverityHigh},
	{"prepare", finding.SeverityMedium},
	{"prepublish", finding.SeverityMedium},
}

var (
	setupPyCall   = regexp.MustCompile(`(?:\bsetup\s*\(|\binstall_requires\b)`)
	setupCmdclass = regexp.MustCompile(`\bcmdclass\s*=\s*{`)

	makeInstallTarget = regexp.MustCompile(`(?m)^install\s*:`)
	makeAllTarget     = regexp.MustCompile(`(?m)^all\s*:`)

	dockerRun        = regexp.MustCompile(`(?m)^RUN\s`)
	dockerEntrypoint = regexp.MustCompile(`(?m)^ENTRYPOINT\s`)
)

// universalEntrypointRules apply to every file regardless of path.
var universalEntrypointRules = []patternRule{
	{
		id:       "entrypoint_curl_pipe_shell",
		severity: finding.SeverityCritical,
		message:  "Downloads and pipes remote script into a shell",
		re:       regexp.MustCompile(`curl\s+[^\n|]*\|\s*(?:bash|sh|zsh)\b`),
		category: categoryInstallHook,
	},
	{
		id:       "entrypoint_wget_pipe_shell",
		severity: finding.SeverityCritical,
		message:  "Downloads and pipes remote script into a shell",
		re:       regexp.MustCompile(`wget\s+[^\n|]*\|\s*(?:bash|sh|zsh)\b`),
		category: categoryInstallHook,
	},
	{
		id:       "entrypoint_python_inline_exec",
		severity: finding.SeverityCritical,
		message:  "Inline Python fetch-and-exec one-liner",
		re:       regexp.MustCompile(`python3?\s+-c\s+['"][^'"]*(?:urllib|requests)[^'"]*exec[^'"]*['"]`),
		category: categoryInstallHook,
	},
}

// installScriptNames trigger on presence alone.
var installScriptNames = map[string]bool{
	"install.sh":   true,
	"setup.sh":     true,
	"bootstrap.sh": true,
}

// EntrypointAnalyzer looks for code paths that run automatically when
// a package is installed: npm lifecycle scripts, setup.py hooks,
// Makefile targets, install scripts, and Dockerfile directives.
type EntrypointAnalyzer struct{}

func NewEntrypointAnalyzer() *EntrypointAnalyzer { return &EntrypointAnalyzer{} }

func (e *EntrypointAnalyzer) Kind() finding.Kind { return finding.KindEntrypoint }
func (e *EntrypointAnalyzer) Name() string       { return "Entrypoint Analyzer" }

func (e *EntrypointAnalyzer) Scan(ctx context.Context, in Input) ([]finding.Finding, error) {
	return scanFiles(ctx, in, 0, nil, e.scanContent), nil
}

func (e *EntrypointAnalyzer) scanContent(rel, content string) []finding.Finding {
	var out []finding.Finding
	base := filepath.Base(rel)
	lower := strings.ToLower(base)

	switch {
	case base == "package.json":
		out = append(out, e.scanPackageJSON(rel, content)...)
	case base == "setup.py":
		out = append(out, e.scanSetupPy(rel, content)...)
	case lower == "makefile":
		out = append(out, e.scanMakefile(rel, content)...)
	case installScriptNames[lower]:
		if strings.TrimSpace(content) != "" {
			out = append(out, finding.Finding{
				Analyzer: finding.KindEntrypoint,
				Severity: finding.SeverityHigh,
				RuleID:   "entrypoint_install_script",
				Message:  "Installation shell script present",
				Location: finding.Location{File: rel, Line: 1},
				Metadata: map[string]string{"category": categoryInstallHook},
			})
		}
	case base == "Dockerfile":
		out = append(out, e.scanDockerfile(rel, content)...)
	}

	out = append(out, matchRules(finding.KindEntrypoint, rel, content, universalEntrypointRules)...)
	return out
}

func (e *EntrypointAnalyzer) scanPackageJSON(rel, content string) []finding.Finding {
	var manifest struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal([]byte(content), &manifest); err != nil {
		return nil
	}

	var out []finding.Finding
	for _, s := range npmLifecycleScripts {
		value, ok := manifest.Scripts[s.name]
		if !ok {
			continue
		}
		// A lifecycle rule fires at most once per script per file.
		out = append(out, finding.Finding{
			Analyzer: finding.KindEntrypoint,
			Severity: s.severity,
			RuleID:   "entrypoint_" + s.name,
			Message:  "npm " + s.name + " script runs automatically on install",
			Location: finding.Location{File: rel, Line: lineOfKey(content, s.name)},
			Evidence: truncateEvidence(value),
			Metadata: map[string]string{"category": categoryInstallHook},
		})
	}
	return out
}

// lineOfKey locates a JSON key's line for the finding location.
func lineOfKey(content, key string) int {
	idx := strings.Index(content, `"`+key+`"`)
	if idx < 0 {
		return 1
	}
	return lineAt(content, idx)
}

func (e *EntrypointAnalyzer) scanSetupPy(rel, content string) []finding.Finding {
	var out []finding.Finding
	if loc := setupPyCall.FindStringIndex(content); loc != nil {
		r := patternRule{
			id:       "entrypoint_setup_py",
			severity: finding.SeverityMedium,
			message:  "Python setup script executes on install",
			category: categoryInstallHook,
		}
		out = append(out, newFinding(finding.KindEntrypoint, r, rel, content, loc[0], loc[1]))
	}
	if loc := setupCmdclass.FindStringIndex(content); loc != nil {
		r := patternRule{
			id:       "entrypoint_setup_cmdclass",
			severity: finding.SeverityHigh,
			message:  "Custom setup command class overrides install behavior",
			category: categoryInstallHook,
		}
		out = append(out, newFinding(finding.KindEntrypoint, r, rel, content, loc[0], loc[1]))
	}
	return out
}

func (e *EntrypointAnalyzer) scanMakefile(rel, content string) []finding.Finding {
	var out []finding.Finding
	if loc := makeInstallTarget.FindStringIndex(content); loc != nil {
		r := patternRule{
			id:       "entrypoint_makefile_install",
			severity: finding.SeverityMedium,
			message:  "Makefile install target",
			category: categoryInstallHook,
		}
		out = append(out, newFinding(finding.KindEntrypoint, r, rel, content, loc[0], loc[1]))
	}
	if loc := makeAllTarget.FindStringIndex(content); loc != nil {
		r := patternRule{
			id:       "entrypoint_makefile_all",
			severity: finding.SeverityLow,
			message:  "Makefile default target",
			category: categoryInstallHook,
		}
		out = append(out, newFinding(finding.KindEntrypoint, r, rel, content, loc[0], loc[1]))
	}
	return out
}

func (e *EntrypointAnalyzer) scanDockerfile(rel, content string) []finding.Finding {
	var out []finding.Finding
	rules := []struct {
		re      *regexp.Regexp
		id      string
		message string
	}{
		{dockerRun, "entrypoint_dockerfile_run", "Dockerfile RUN directive"},
		{dockerEntrypoint, "entrypoint_dockerfile_entrypoint", "Dockerfile ENTRYPOINT directive"},
	}
	for _, dr := range rules {
		for _, loc := range dr.re.FindAllStringIndex(content, -1) {
			r := patternRule{
				id:       dr.id,
				severity: finding.SeverityMedium,
				message:  dr.message,
				category: categoryInstallHook,
			}
			out = append(out, newFinding(finding.KindEntrypoint, r, rel, content, loc[0], loc[1]))
		}
	}
	return out
}
