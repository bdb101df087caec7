// Package finding defines the data model shared by every stage of the
// scan pipeline: severities, analyzer kinds, and the Finding record that
// analyzers produce and the policy engine consumes.
package finding

// Severity grades a finding. Values are ordered: critical > high >
// medium > low > info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank returns a comparable weight for ordering (critical highest).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// Valid reports whether s is one of the five known severities.
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// Severities lists all severities in descending order.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// Kind identifies the analyzer family that produced a finding.
type Kind string

const (
	KindSecret     Kind = "secret"
	KindStatic     Kind = "static"
	KindSkill      Kind = "skill"
	KindEntrypoint Kind = "entrypoint"
	KindDependency Kind = "dependency"
	KindCIRisk     Kind = "ci-risk"
)

// Location points at the file (and optionally line/column, 1-based)
// where a finding matched. File is always relative to the source root.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// Finding is the atomic detection record. Evidence for credential-type
// rules is masked by the producing analyzer; the report assembler masks
// again before serialization.
type Finding struct {
	Analyzer Kind              `json:"analyzer"`
	Severity Severity          `json:"severity"`
	RuleID   string            `json:"rule"`
	Message  string            `json:"message"`
	Location Location          `json:"location"`
	Evidence string            `json:"evidence,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Summary holds aggregate counts by severity level.
type Summary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Summarize returns aggregate severity counts for a slice of findings.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}
