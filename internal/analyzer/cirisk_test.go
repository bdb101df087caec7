package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/finding"
)

func TestCIRisk_WriteAllPermissions(t *testing.T) {
	in := buildInput(t, map[string]string{
		".github/workflows/ci.yml": `name: ci
permissions: write-all
"on": [push]
jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
`,
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)

	hits := findByRule(findings, "ci_permissions_write_all")
	require.Len(t, hits, 1)
	assert.Equal(t, finding.SeverityHigh, hits[0].Severity)
}

func TestCIRisk_PullRequestTarget(t *testing.T) {
	in := buildInput(t, map[string]string{
		".github/workflows/pr.yml": `"on":
  pull_request_target:
    branches: [main]
jobs: {}
`,
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, findByRule(findings, "ci_pull_request_target"), 1)
}

func TestCIRisk_SecretExposure(t *testing.T) {
	in := buildInput(t, map[string]string{
		".github/workflows/leak.yml": `"on": [push]
jobs:
  leak:
    steps:
      - run: echo "${{ secrets.DEPLOY_TOKEN }}"
`,
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)

	hits := findByRule(findings, "ci_secret_exposure")
	require.Len(t, hits, 1)
	assert.Equal(t, finding.SeverityCritical, hits[0].Severity)
}

func TestCIRisk_StepPipeToShell(t *testing.T) {
	in := buildInput(t, map[string]string{
		".github/workflows/setup.yml": `"on": [push]
jobs:
  setup:
    steps:
      - run: curl -fsSL https://get.example.dev | bash
`,
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, findByRule(findings, "ci_curl_pipe_shell"), 1)
}

func TestCIRisk_ActionPinning(t *testing.T) {
	in := buildInput(t, map[string]string{
		".github/workflows/pin.yml": `"on": [push]
jobs:
  build:
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@main
      - uses: acme/deploy-action@v2
      - uses: acme/safe-action@8f4b7f84864484a7bf31766abe9204da3cbe65b3
`,
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)

	// setup-go@main is unpinned; checkout@v4 is a tag, accepted here.
	unpinned := findByRule(findings, "ci_unpinned_action")
	require.Len(t, unpinned, 1)
	assert.Equal(t, "actions/setup-go@main", unpinned[0].Evidence)

	// deploy-action@v2 is third-party without a SHA; safe-action is
	// SHA-pinned and passes.
	third := findByRule(findings, "ci_third_party_action")
	require.Len(t, third, 1)
	assert.Equal(t, "acme/deploy-action@v2", third[0].Evidence)
}

func TestCIRisk_GitLabPlaintextSecret(t *testing.T) {
	in := buildInput(t, map[string]string{
		".gitlab-ci.yml": `variables:
  DEPLOY_TOKEN: "abc123"
  REGION: us-east-1
build:
  script:
    - make build
`,
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)

	hits := findByRule(findings, "ci_plaintext_secret")
	require.Len(t, hits, 1)
	assert.Equal(t, finding.SeverityHigh, hits[0].Severity)
	assert.Contains(t, hits[0].Message, "DEPLOY_TOKEN")
}

func TestCIRisk_GitLabScriptPipeShell(t *testing.T) {
	in := buildInput(t, map[string]string{
		".gitlab-ci.yml": `deploy:
  script:
    - wget -q https://get.example.dev/install.sh | sh
    - make deploy
`,
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, findByRule(findings, "ci_script_pipe_shell"), 1)
}

func TestCIRisk_ParseError(t *testing.T) {
	in := buildInput(t, map[string]string{
		".github/workflows/bad.yml": "jobs: [unclosed\n  nope",
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)

	hits := findByRule(findings, "ci_parse_error")
	require.Len(t, hits, 1)
	assert.Equal(t, finding.SeverityInfo, hits[0].Severity)
}

func TestCIRisk_IgnoresOtherYAML(t *testing.T) {
	in := buildInput(t, map[string]string{
		"config.yml": "permissions: write-all\n",
	})

	findings, err := NewCIRiskAnalyzer().Scan(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
