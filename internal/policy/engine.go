package policy

import (
	"github.com/skillgate/skillgate/internal/finding"
)

// defaultWeights synthesized for rule ids the policy does not define.
var defaultWeights = map[finding.Severity]int{
	finding.SeverityCritical: -50,
	finding.SeverityHigh:     -20,
	finding.SeverityMedium:   -10,
	finding.SeverityLow:      -5,
	finding.SeverityInfo:     0,
}

// TriggeredRule aggregates every finding that shared a rule id. The
// rule's weight is applied to the score exactly once no matter how
// many findings carry the id.
type TriggeredRule struct {
	RuleID   string            `json:"rule"`
	Severity finding.Severity  `json:"severity"`
	Weight   int               `json:"weight"`
	Message  string            `json:"message"`
	Count    int               `json:"count"`
	Findings []finding.Finding `json:"findings"`
}

// Evaluation is the deterministic result of scoring a finding list
// against a policy.
type Evaluation struct {
	Score            int
	Triggered        []*TriggeredRule
	HasCriticalBlock bool
	CriticalBlockHit []string
	Suppressed       []finding.Finding
	// Scored holds the findings that entered scoring, in input order.
	// Suppressed and disabled-rule findings are excluded; this is what
	// the report presents as the finding list.
	Scored []finding.Finding
}

// Evaluate scores findings in input order: suppression first, then
// effective-rule resolution, critical-block tracking, and
// dedup-by-rule-id scoring, with the final score clamped to [0, 100].
func Evaluate(p *Policy, findings []finding.Finding) *Evaluation {
	eval := &Evaluation{Score: 100}
	criticalBlock := make(map[string]bool, len(p.CriticalBlock))
	for _, id := range p.CriticalBlock {
		criticalBlock[id] = true
	}
	triggered := make(map[string]*TriggeredRule)
	blockHit := make(map[string]bool)

	for _, f := range findings {
		if suppressed(p, f) {
			eval.Suppressed = append(eval.Suppressed, f)
			continue
		}

		rule, defined := p.Rules[f.RuleID]
		if defined && !rule.IsEnabled() {
			// Disabled rules drop the finding entirely.
			continue
		}
		severity, weight, message := f.Severity, defaultWeights[f.Severity], f.Message
		if defined {
			severity, weight, message = rule.Severity, rule.Weight, rule.Message
		}

		eval.Scored = append(eval.Scored, f)

		if criticalBlock[f.RuleID] && !blockHit[f.RuleID] {
			blockHit[f.RuleID] = true
			eval.CriticalBlockHit = append(eval.CriticalBlockHit, f.RuleID)
			eval.HasCriticalBlock = true
		}

		if tr, seen := triggered[f.RuleID]; seen {
			tr.Count++
			tr.Findings = append(tr.Findings, f)
			continue
		}
		tr := &TriggeredRule{
			RuleID:   f.RuleID,
			Severity: severity,
			Weight:   weight,
			Message:  message,
			Count:    1,
			Findings: []finding.Finding{f},
		}
		triggered[f.RuleID] = tr
		eval.Triggered = append(eval.Triggered, tr)
		eval.Score += weight
	}

	if eval.Score < 0 {
		eval.Score = 0
	}
	if eval.Score > 100 {
		eval.Score = 100
	}
	return eval
}

// suppressed reports whether any exception matches both the finding's
// file glob and its rule id.
func suppressed(p *Policy, f finding.Finding) bool {
	for _, ex := range p.Exceptions {
		if !globMatch(ex.Pattern, f.Location.File) {
			continue
		}
		for _, id := range ex.Ignore {
			if id == f.RuleID {
				return true
			}
		}
	}
	return false
}
