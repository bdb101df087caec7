package analyzer

import (
	"context"
	"regexp"

	"github.com/skillgate/skillgate/internal/finding"
)

// staticExts are the source extensions the static analyzer inspects.
var staticExts = map[string]bool{
	"js": true, "ts": true, "jsx": true, "tsx": true,
	"py": true, "rb": true, "sh": true, "bash": true,
	"go": true, "rs": true,
}

const (
	categoryDangerousAPI = "dangerous-api"
	categoryObfuscation  = "obfuscation"
	categoryCredAccess   = "credential-access"
)

var staticRules = []patternRule{
	// Dangerous API usage.
	{
		id:       "static_eval_usage",
		severity: finding.SeverityHigh,
		message:  "Dynamic code evaluation via eval",
		re:       regexp.MustCompile(`\beval\s*\(`),
		category: categoryDangerousAPI,
	},
	{
		id:       "static_exec_usage",
		severity: finding.SeverityHigh,
		message:  "Dynamic code execution via exec",
		re:       regexp.MustCompile(`\bexec\s*\(`),
		category: categoryDangerousAPI,
	},
	{
		id:       "static_child_process",
		severity: finding.SeverityHigh,
		message:  "Child process module loaded",
		re:       regexp.MustCompile(`(?:require\s*\(\s*['"]child_process['"]|from\s+['"]child_process['"]|import\s+['"]child_process['"])`),
		category: categoryDangerousAPI,
	},
	{
		id:       "static_process_spawn",
		severity: finding.SeverityHigh,
		message:  "Subprocess spawn call",
		re:       regexp.MustCompile(`\b(?:spawn|execSync|execFileSync|spawnSync)\s*\(`),
		category: categoryDangerousAPI,
	},
	{
		id:       "static_fs_destructive",
		severity: finding.SeverityMedium,
		message:  "Destructive filesystem call",
		re:       regexp.MustCompile(`\b(?:writeFileSync|unlinkSync|rmSync|rmdirSync|truncateSync)\s*\(`),
		category: categoryDangerousAPI,
	},
	{
		id:       "static_network_fetch",
		severity: finding.SeverityLow,
		message:  "Outbound network request",
		re:       regexp.MustCompile(`\b(?:fetch|axios|http\.get|https\.get|urllib\.request|requests\.(?:get|post))\s*[(.]`),
		category: categoryDangerousAPI,
	},

	// Obfuscation signals.
	{
		id:       "static_base64_decode",
		severity: finding.SeverityMedium,
		message:  "Base64 decode primitive",
		re:       regexp.MustCompile(`\b(?:atob|base64\.b64decode|Buffer\.from)\s*\([^)]*(?:base64|\))`),
		category: categoryObfuscation,
	},
	{
		id:       "static_char_code_obfuscation",
		severity: finding.SeverityHigh,
		message:  "String built from character codes",
		re:       regexp.MustCompile(`String\.fromCharCode\s*\((?:\s*\d+\s*,){5,}`),
		category: categoryObfuscation,
	},
	{
		id:       "static_hex_escapes",
		severity: finding.SeverityMedium,
		message:  "Long run of hex escape sequences",
		re:       regexp.MustCompile(`(?:\\x[0-9a-fA-F]{2}){11,}`),
		category: categoryObfuscation,
	},
	{
		id:       "static_long_line",
		severity: finding.SeverityLow,
		message:  "Suspiciously long line (possible packed payload)",
		re:       regexp.MustCompile(`(?m)^.{500,}$`),
		category: categoryObfuscation,
	},

	// Credential access.
	{
		id:       "static_ssh_key_access",
		severity: finding.SeverityCritical,
		message:  "SSH key material accessed",
		re:       regexp.MustCompile(`(?:~/\.ssh|\.ssh/id_rsa|\bid_rsa\b|authorized_keys)`),
		category: categoryCredAccess,
	},
	{
		id:       "static_aws_config_access",
		severity: finding.SeverityCritical,
		message:  "AWS credential files accessed",
		re:       regexp.MustCompile(`~/\.aws|\.aws/credentials`),
		category: categoryCredAccess,
	},
	{
		id:       "static_env_file_access",
		severity: finding.SeverityHigh,
		message:  "Environment file accessed",
		re:       regexp.MustCompile(`(?:readFile[^(\n]*\(\s*['"][^'"]*\.env['"]|open\s*\(\s*['"][^'"]*\.env['"])`),
		category: categoryCredAccess,
	},
	{
		id:       "static_browser_storage",
		severity: finding.SeverityHigh,
		message:  "Browser credential storage accessed",
		re:       regexp.MustCompile(`\b(?:localStorage|sessionStorage|document\.cookie)\b`),
		category: categoryCredAccess,
	},
	{
		id:       "static_keychain_access",
		severity: finding.SeverityHigh,
		message:  "OS keychain or keyring accessed",
		re:       regexp.MustCompile(`(?i)\b(?:keychain|keyring|secretservice|wincred)\b`),
		category: categoryCredAccess,
	},
}

// StaticAnalyzer scans source files for dangerous API usage,
// obfuscation signals, and credential access patterns.
type StaticAnalyzer struct {
	rules []patternRule
}

func NewStaticAnalyzer() *StaticAnalyzer {
	return &StaticAnalyzer{rules: staticRules}
}

func (s *StaticAnalyzer) Kind() finding.Kind { return finding.KindStatic }
func (s *StaticAnalyzer) Name() string       { return "Static Code Analyzer" }

func (s *StaticAnalyzer) Scan(ctx context.Context, in Input) ([]finding.Finding, error) {
	match := func(path string) bool { return hasExt(path, staticExts) }
	return scanFiles(ctx, in, 0, match, func(rel, content string) []finding.Finding {
		return matchRules(finding.KindStatic, rel, content, s.rules)
	}), nil
}
