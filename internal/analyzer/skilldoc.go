package analyzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/skillgate/skillgate/internal/finding"
)

const (
	categoryShellDanger = "dangerous-shell"
	categorySuspectURL  = "suspect-url"
	categoryPermission  = "permission-signal"
)

var skillDocRules = []patternRule{
	// Dangerous shell commands in documentation.
	{
		id:       "skill_rm_rf_root",
		severity: finding.SeverityCritical,
		message:  "Recursive force-delete of root or home directory",
		re:       regexp.MustCompile(`rm\s+-[rRf]+\s+(?:/(?:\s|$)|~|\$HOME)`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_rm_recursive",
		severity: finding.SeverityHigh,
		message:  "Recursive delete command",
		re:       regexp.MustCompile(`rm\s+-[rRf]+\s+\S+`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_sudo",
		severity: finding.SeverityMedium,
		message:  "Instructs running commands as root",
		re:       regexp.MustCompile(`\bsudo\s+\S+`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_chmod_world_writable",
		severity: finding.SeverityHigh,
		message:  "World-writable permission change",
		re:       regexp.MustCompile(`chmod\s+(?:777|a\+rwx)`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_curl_pipe_shell",
		severity: finding.SeverityCritical,
		message:  "Downloads and pipes remote script into a shell",
		re:       regexp.MustCompile(`curl\s+[^\n|]*\|\s*(?:bash|sh|zsh)\b`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_wget_pipe_shell",
		severity: finding.SeverityCritical,
		message:  "Downloads and pipes remote script into a shell",
		re:       regexp.MustCompile(`wget\s+[^\n|]*\|\s*(?:bash|sh|zsh)\b`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_shell_dash_c",
		severity: finding.SeverityMedium,
		message:  "Inline shell -c invocation",
		re:       regexp.MustCompile(`\b(?:bash|sh|zsh)\s+-c\s+['"]`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_dd_command",
		severity: finding.SeverityHigh,
		message:  "Raw disk write via dd",
		re:       regexp.MustCompile(`\bdd\s+(?:if|of)=`),
		category: categoryShellDanger,
	},
	{
		id:       "skill_mkfs",
		severity: finding.SeverityCritical,
		message:  "Filesystem format command",
		re:       regexp.MustCompile(`\bmkfs(?:\.\w+)?\b`),
		category: categoryShellDanger,
	},

	// Suspect URLs.
	{
		id:       "skill_url_shortener",
		severity: finding.SeverityHigh,
		message:  "Link through URL shortener hides destination",
		re:       regexp.MustCompile(`https?://(?:bit\.ly|tinyurl\.com|t\.co|goo\.gl|is\.gd|ow\.ly|rb\.gy)/\S+`),
		category: categorySuspectURL,
	},
	{
		id:       "skill_ip_url",
		severity: finding.SeverityHigh,
		message:  "Direct IP address URL",
		re:       regexp.MustCompile(`https?://\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`),
		category: categorySuspectURL,
	},
	{
		id:       "skill_base64_host",
		severity: finding.SeverityHigh,
		message:  "URL host looks like an encoded blob",
		re:       regexp.MustCompile(`https?://[A-Za-z0-9+/=]{50,}`),
		category: categorySuspectURL,
	},

	// Permission signals.
	{
		id:       "skill_home_access",
		severity: finding.SeverityMedium,
		message:  "References home directory contents",
		re:       regexp.MustCompile(`(?:~/|\$HOME/)[.\w]+`),
		category: categoryPermission,
	},
	{
		id:       "skill_network_listen",
		severity: finding.SeverityMedium,
		message:  "Opens a network listener",
		re:       regexp.MustCompile(`(?i)\b(?:listen|bind)\b[^\n]{0,40}\bport\b|\bport\b[^\n]{0,40}\b(?:listen|bind)\b`),
		category: categoryPermission,
	},
	{
		id:       "skill_env_secret",
		severity: finding.SeverityHigh,
		message:  "Reads secret-bearing environment variables",
		re:       regexp.MustCompile(`\$(?:API_KEY|SECRET|TOKEN|PASSWORD|CREDENTIAL|AUTH)\b`),
		category: categoryPermission,
	},
	{
		id:       "skill_sensitive_path",
		severity: finding.SeverityHigh,
		message:  "References sensitive system paths",
		re:       regexp.MustCompile(`/etc/passwd|/etc/shadow|/var/log|/proc/`),
		category: categoryPermission,
	},
}

// downloadAllowlist hosts are trusted download origins; URLs elsewhere
// raise skill_unknown_download.
var downloadAllowlist = []string{
	"github.com",
	"githubusercontent.com",
	"npmjs.org",
	"pypi.org",
}

var downloadURL = regexp.MustCompile(`(?:curl|wget|download)[^\n]*?https?://([^/\s'"]+)`)

// SkillDocAnalyzer scans Markdown skill documentation for dangerous
// shell commands, suspect URLs, and permission signals.
type SkillDocAnalyzer struct {
	rules []patternRule
}

func NewSkillDocAnalyzer() *SkillDocAnalyzer {
	return &SkillDocAnalyzer{rules: skillDocRules}
}

func (s *SkillDocAnalyzer) Kind() finding.Kind { return finding.KindSkill }
func (s *SkillDocAnalyzer) Name() string       { return "Skill Document Analyzer" }

func (s *SkillDocAnalyzer) Scan(ctx context.Context, in Input) ([]finding.Finding, error) {
	match := func(path string) bool { return strings.HasSuffix(strings.ToLower(path), ".md") }
	return scanFiles(ctx, in, 0, match, s.scanContent), nil
}

func (s *SkillDocAnalyzer) scanContent(rel, content string) []finding.Finding {
	out := matchRules(finding.KindSkill, rel, content, s.rules)
	out = append(out, s.unknownDownloads(rel, content)...)
	return out
}

// unknownDownloads flags download commands whose host is not on the
// allowlist. Shortener and IP hosts are covered by their own rules.
func (s *SkillDocAnalyzer) unknownDownloads(rel, content string) []finding.Finding {
	var out []finding.Finding
	for _, m := range downloadURL.FindAllStringSubmatchIndex(content, -1) {
		host := strings.ToLower(content[m[2]:m[3]])
		if hostAllowed(host) {
			continue
		}
		r := patternRule{
			id:       "skill_unknown_download",
			severity: finding.SeverityMedium,
			message:  "Download from host outside the trusted allowlist",
			category: categorySuspectURL,
		}
		out = append(out, newFinding(finding.KindSkill, r, rel, content, m[0], m[1]))
	}
	return out
}

func hostAllowed(host string) bool {
	host = strings.TrimPrefix(host, "www.")
	for _, allowed := range downloadAllowlist {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
