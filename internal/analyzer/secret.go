package analyzer

import (
	"context"
	"regexp"

	"github.com/skillgate/skillgate/internal/finding"
)

// secretMaxFileSize caps content reads for the secret analyzer.
const secretMaxFileSize = 1024 * 1024

// secretRules match known credential shapes. Every rule here is
// credential-category, so evidence is masked before the finding leaves
// the analyzer.
var secretRules = []patternRule{
	{
		id:       "secret_aws_access_key",
		severity: finding.SeverityCritical,
		message:  "AWS access key ID detected",
		re:       regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		category: categoryCredential,
	},
	{
		id:       "secret_aws_secret_key",
		severity: finding.SeverityCritical,
		message:  "Possible AWS secret access key detected",
		re:       regexp.MustCompile(`(?:^|[^A-Za-z0-9/+=])([A-Za-z0-9/+=]{40})(?:[^A-Za-z0-9/+=]|$)`),
		category: categoryCredential,
	},
	{
		id:       "secret_github_token",
		severity: finding.SeverityCritical,
		message:  "GitHub token detected",
		re:       regexp.MustCompile(`gh[posur]_[a-zA-Z0-9]{36}`),
		category: categoryCredential,
	},
	{
		id:       "secret_openai_key",
		severity: finding.SeverityCritical,
		message:  "OpenAI API key detected",
		re:       regexp.MustCompile(`sk-(?:[a-zA-Z0-9_-]{20,})`),
		category: categoryCredential,
	},
	{
		id:       "secret_anthropic_key",
		severity: finding.SeverityCritical,
		message:  "Anthropic API key detected",
		re:       regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{95}`),
		category: categoryCredential,
	},
	{
		id:       "secret_private_key",
		severity: finding.SeverityCritical,
		message:  "Private key block detected",
		re:       regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`),
		category: categoryCredential,
	},
	{
		id:       "secret_password_in_url",
		severity: finding.SeverityHigh,
		message:  "Password embedded in URL",
		re:       regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^/\s:@]+:[^/\s:@]+@`),
		category: categoryCredential,
	},
	{
		id:       "secret_generic_api_key",
		severity: finding.SeverityHigh,
		message:  "Generic API key assignment detected",
		re:       regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*['"]?[A-Za-z0-9_-]{20,}['"]?`),
		category: categoryCredential,
	},
	{
		id:       "secret_jwt",
		severity: finding.SeverityHigh,
		message:  "JSON Web Token detected",
		re:       regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		category: categoryCredential,
	},
}

// SecretAnalyzer scans every file for credential material. No
// extension filter: secrets hide in docs as readily as in code.
type SecretAnalyzer struct {
	rules []patternRule
}

func NewSecretAnalyzer() *SecretAnalyzer {
	return &SecretAnalyzer{rules: secretRules}
}

func (s *SecretAnalyzer) Kind() finding.Kind { return finding.KindSecret }
func (s *SecretAnalyzer) Name() string       { return "Secret Scanner" }

func (s *SecretAnalyzer) Scan(ctx context.Context, in Input) ([]finding.Finding, error) {
	return scanFiles(ctx, in, secretMaxFileSize, nil, func(rel, content string) []finding.Finding {
		return s.scanContent(rel, content)
	}), nil
}

func (s *SecretAnalyzer) scanContent(rel, content string) []finding.Finding {
	var out []finding.Finding
	for _, r := range s.rules {
		for _, loc := range r.re.FindAllStringIndex(content, -1) {
			start, end := loc[0], loc[1]
			if r.id == "secret_openai_key" && isAnthropicPrefix(content, start) {
				continue
			}
			out = append(out, newFinding(finding.KindSecret, r, rel, content, start, end))
		}
	}
	return out
}

// isAnthropicPrefix reports whether the sk- match at start actually
// begins an sk-ant- token, which the dedicated Anthropic rule covers.
func isAnthropicPrefix(content string, start int) bool {
	const p = "sk-ant-"
	return len(content)-start >= len(p) && content[start:start+len(p)] == p
}
