// Package enforce maps a policy evaluation onto the terminal decision
// and the process exit code the CI contract depends on.
package enforce

import (
	"fmt"
	"strings"
	"time"

	"github.com/skillgate/skillgate/internal/policy"
)

// Decision is the terminal verdict for a scanned source.
type Decision string

const (
	DecisionAllow      Decision = "allow"
	DecisionBlock      Decision = "block"
	DecisionQuarantine Decision = "quarantine"
)

// Exit codes: the only contract with a calling CI system besides the
// artifact file.
const (
	ExitAllow      = 0
	ExitBlock      = 1
	ExitQuarantine = 2
	ExitScanFailed = 3
)

// Outcome wraps the evaluation with the decision, exit code, and
// derived human-readable reasons.
type Outcome struct {
	Decision   Decision
	ExitCode   int
	Evaluation *policy.Evaluation
	Summary    string
	Reasons    []string
	PolicyName string
	Timestamp  time.Time
}

// Enforce derives the terminal decision: critical-block hits force
// block, otherwise the score falls into the policy's threshold bands.
func Enforce(eval *policy.Evaluation, p *policy.Policy) *Outcome {
	out := &Outcome{
		Evaluation: eval,
		PolicyName: p.Name,
		Timestamp:  time.Now().UTC(),
	}

	switch {
	case eval.HasCriticalBlock:
		out.Decision = DecisionBlock
		out.Reasons = append(out.Reasons, fmt.Sprintf(
			"critical-block rule triggered: %s", strings.Join(eval.CriticalBlockHit, ", ")))
	case eval.Score <= p.Thresholds.Block:
		out.Decision = DecisionBlock
		out.Reasons = append(out.Reasons, fmt.Sprintf(
			"score %d is at or below block threshold %d", eval.Score, p.Thresholds.Block))
	case eval.Score <= p.Thresholds.Warn:
		out.Decision = DecisionQuarantine
		out.Reasons = append(out.Reasons, fmt.Sprintf(
			"score %d is at or below warn threshold %d", eval.Score, p.Thresholds.Warn))
	default:
		out.Decision = DecisionAllow
	}

	out.ExitCode = ExitCodeFor(out.Decision)
	out.Summary = fmt.Sprintf("%s (score %d, %d rule(s) triggered, %d suppressed)",
		out.Decision, eval.Score, len(eval.Triggered), len(eval.Suppressed))
	return out
}

// ExitCodeFor maps a decision to its process exit code.
func ExitCodeFor(d Decision) int {
	switch d {
	case DecisionAllow:
		return ExitAllow
	case DecisionBlock:
		return ExitBlock
	case DecisionQuarantine:
		return ExitQuarantine
	default:
		return ExitScanFailed
	}
}
