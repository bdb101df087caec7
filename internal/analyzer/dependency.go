package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/skillgate/skillgate/internal/finding"
	"github.com/skillgate/skillgate/internal/osv"
)

// Oracle is the vulnerability lookup the dependency analyzer consults.
// The analyzer holds it by reference and never manages its lifecycle.
type Oracle interface {
	Lookup(ctx context.Context, ecosystem, name, version string) ([]osv.Vulnerability, error)
}

const categoryDependency = "dependency"

// manifestKind describes one supported dependency manifest.
type manifestKind struct {
	name      string // base filename
	ecosystem string // OSV ecosystem label
	lockFile  string // expected sibling lock file ("" = none expected)
}

var manifestKinds = []manifestKind{
	{"package.json", "npm", "package-lock.json"},
	{"requirements.txt", "PyPI", ""},
	{"go.mod", "Go", "go.sum"},
	{"Cargo.toml", "crates.io", "Cargo.lock"},
}

// dep is one parsed {name, version} manifest entry.
type dep struct {
	name    string
	version string
}

// DependencyAnalyzer parses dependency manifests, checks for lock
// files, and probes the oracle for known vulnerabilities.
type DependencyAnalyzer struct {
	oracle Oracle
}

// NewDependencyAnalyzer builds the analyzer. A nil oracle disables the
// vulnerability probe; lock-file and parse checks still run.
func NewDependencyAnalyzer(oracle Oracle) *DependencyAnalyzer {
	return &DependencyAnalyzer{oracle: oracle}
}

func (d *DependencyAnalyzer) Kind() finding.Kind { return finding.KindDependency }
func (d *DependencyAnalyzer) Name() string       { return "Dependency Analyzer" }

func (d *DependencyAnalyzer) Scan(ctx context.Context, in Input) ([]finding.Finding, error) {
	var out []finding.Finding
	for _, abs := range in.Files {
		mk, ok := manifestFor(abs)
		if !ok {
			continue
		}
		out = append(out, d.scanManifest(ctx, in.RootDir, abs, mk)...)
	}
	return out, nil
}

func manifestFor(abs string) (manifestKind, bool) {
	base := filepath.Base(abs)
	for _, mk := range manifestKinds {
		if base == mk.name {
			return mk, true
		}
	}
	return manifestKind{}, false
}

func (d *DependencyAnalyzer) scanManifest(ctx context.Context, root, abs string, mk manifestKind) []finding.Finding {
	rel := relPath(root, abs)
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil
	}

	deps, err := parseManifest(mk, string(data))
	if err != nil {
		return []finding.Finding{{
			Analyzer: finding.KindDependency,
			Severity: finding.SeverityInfo,
			RuleID:   "dependency_parse_error",
			Message:  fmt.Sprintf("Could not parse %s: %v", mk.name, err),
			Location: finding.Location{File: rel, Line: 1},
			Metadata: map[string]string{"category": categoryDependency},
		}}
	}

	var out []finding.Finding
	if mk.lockFile != "" {
		lockPath := filepath.Join(filepath.Dir(abs), mk.lockFile)
		if _, err := os.Stat(lockPath); err != nil {
			out = append(out, finding.Finding{
				Analyzer: finding.KindDependency,
				Severity: finding.SeverityMedium,
				RuleID:   "dependency_no_lockfile",
				Message:  fmt.Sprintf("%s present without %s; dependency versions are not pinned", mk.name, mk.lockFile),
				Location: finding.Location{File: rel, Line: 1},
				Metadata: map[string]string{"category": categoryDependency},
			})
		}
	}

	if d.oracle != nil {
		out = append(out, d.probe(ctx, rel, mk, deps)...)
	}
	return out
}

// probe queries the oracle for every dependency with a concrete
// version. Oracle failures are silent: no finding, no abort.
func (d *DependencyAnalyzer) probe(ctx context.Context, rel string, mk manifestKind, deps []dep) []finding.Finding {
	var out []finding.Finding
	for _, dp := range deps {
		version, ok := concreteVersion(dp.version)
		if !ok {
			continue
		}
		vulns, err := d.oracle.Lookup(ctx, mk.ecosystem, dp.name, version)
		if err != nil {
			continue
		}
		for _, v := range vulns {
			out = append(out, finding.Finding{
				Analyzer: finding.KindDependency,
				Severity: vulnSeverity(v.CVSSScore),
				RuleID:   "dependency_vuln_" + sanitizeRuleID(v.ID),
				Message:  fmt.Sprintf("%s@%s: %s", dp.name, version, vulnSummary(v)),
				Location: finding.Location{File: rel, Line: 1},
				Metadata: map[string]string{
					"category": categoryDependency,
					"package":  dp.name,
					"version":  version,
				},
			})
		}
	}
	return out
}

func vulnSummary(v osv.Vulnerability) string {
	if v.Summary != "" {
		return v.Summary
	}
	return "known vulnerability " + v.ID
}

// vulnSeverity maps a CVSS v3 base score onto the severity scale.
func vulnSeverity(score *float64) finding.Severity {
	switch {
	case score == nil:
		return finding.SeverityInfo
	case *score >= 9.0:
		return finding.SeverityCritical
	case *score >= 7.0:
		return finding.SeverityHigh
	case *score >= 4.0:
		return finding.SeverityMedium
	default:
		return finding.SeverityLow
	}
}

var ruleIDUnsafe = regexp.MustCompile(`[^a-z0-9_]+`)

func sanitizeRuleID(id string) string {
	return strings.Trim(ruleIDUnsafe.ReplaceAllString(strings.ToLower(id), "_"), "_")
}

// concreteVersion strips a leading range operator and reports whether
// what remains is an exact version. Wildcards and bare names are
// skipped entirely.
func concreteVersion(spec string) (string, bool) {
	v := strings.TrimSpace(spec)
	for _, prefix := range []string{"^", "~", ">=", "<=", ">", "<", "==", "=", "v"} {
		if strings.HasPrefix(v, prefix) {
			v = strings.TrimSpace(strings.TrimPrefix(v, prefix))
			break
		}
	}
	if v == "" || strings.ContainsAny(v, "*x ") || strings.Contains(v, "||") {
		return "", false
	}
	return v, true
}

// --- Manifest parsers ---

func parseManifest(mk manifestKind, content string) ([]dep, error) {
	switch mk.name {
	case "package.json":
		return parsePackageJSON(content)
	case "requirements.txt":
		return parseRequirements(content), nil
	case "go.mod":
		return parseGoMod(content), nil
	case "Cargo.toml":
		return parseCargoToml(content), nil
	default:
		return nil, fmt.Errorf("unsupported manifest %s", mk.name)
	}
}

func parsePackageJSON(content string) ([]dep, error) {
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(content), &manifest); err != nil {
		return nil, err
	}
	var deps []dep
	for name, version := range manifest.Dependencies {
		deps = append(deps, dep{name, version})
	}
	for name, version := range manifest.DevDependencies {
		deps = append(deps, dep{name, version})
	}
	return deps, nil
}

var requirementLine = regexp.MustCompile(`^([A-Za-z0-9._-]+)\s*(?:(==|>=|<=|~=|>|<)\s*([^\s;#]+))?`)

func parseRequirements(content string) []dep {
	var deps []dep
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := requirementLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		version := ""
		if m[2] == "==" || m[2] == "~=" {
			version = m[3]
		} else if m[2] != "" {
			version = m[2] + m[3]
		}
		deps = append(deps, dep{m[1], version})
	}
	return deps
}

var goModRequire = regexp.MustCompile(`^\s*([\w./-]+)\s+(v[\w.+-]+)`)

func parseGoMod(content string) []dep {
	var deps []dep
	seen := make(map[string]bool)
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "require ("):
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		}

		var candidate string
		if inBlock {
			candidate = trimmed
		} else if rest, ok := strings.CutPrefix(trimmed, "require "); ok && !strings.HasPrefix(rest, "(") {
			candidate = rest
		} else {
			continue
		}

		m := goModRequire.FindStringSubmatch(candidate)
		if m == nil {
			continue
		}
		key := m[1] + "@" + m[2]
		if seen[key] {
			continue
		}
		seen[key] = true
		deps = append(deps, dep{m[1], m[2]})
	}
	return deps
}

var (
	cargoSection   = regexp.MustCompile(`^\[([^\]]+)\]`)
	cargoSimpleDep = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*=\s*"([^"]+)"`)
	cargoTableDep  = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*=\s*\{[^}]*version\s*=\s*"([^"]+)"`)
)

func parseCargoToml(content string) []dep {
	var deps []dep
	inDeps := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := cargoSection.FindStringSubmatch(trimmed); m != nil {
			inDeps = m[1] == "dependencies"
			continue
		}
		if !inDeps || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if m := cargoTableDep.FindStringSubmatch(trimmed); m != nil {
			deps = append(deps, dep{m[1], m[2]})
			continue
		}
		if m := cargoSimpleDep.FindStringSubmatch(trimmed); m != nil {
			deps = append(deps, dep{m[1], m[2]})
		}
	}
	return deps
}
