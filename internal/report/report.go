// Package report assembles the decision artifact: findings plus source
// metadata plus evaluation, serialized as canonical JSON with a final
// evidence-masking pass.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/skillgate/skillgate/internal/analyzer"
	"github.com/skillgate/skillgate/internal/enforce"
	"github.com/skillgate/skillgate/internal/finding"
	"github.com/skillgate/skillgate/internal/ingest"
	"github.com/skillgate/skillgate/internal/masking"
	"github.com/skillgate/skillgate/internal/policy"
)

// SchemaVersion of the decision artifact.
const SchemaVersion = "1.0.0"

// SourceInfo describes the scanned source inside the artifact.
type SourceInfo struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	URL    string `json:"url,omitempty"`
	Commit string `json:"commit,omitempty"`
	Hash   string `json:"hash"`
}

// Artifact is the machine-readable decision record. Field order is the
// serialized key order and is part of the contract.
type Artifact struct {
	Version            string            `json:"version"`
	Timestamp          time.Time         `json:"timestamp"`
	Source             SourceInfo        `json:"source"`
	Decision           enforce.Decision  `json:"decision"`
	Score              int               `json:"score"`
	Findings           []finding.Finding `json:"findings"`
	Summary            finding.Summary   `json:"summary"`
	CriticalBlockRules []string          `json:"criticalBlockRules"`
	Duration           int64             `json:"duration"`
	PolicyName         string            `json:"policyName"`
	Errors             []string          `json:"errors"`
}

// Input carries everything the assembler needs from earlier stages.
type Input struct {
	Ingest   *ingest.Context
	Results  []analyzer.Result
	Eval     *policy.Evaluation
	Outcome  *enforce.Outcome
	Duration time.Duration
}

// Assemble builds the artifact, taking ownership of the findings and
// masking every evidence and message field on the way out. Suppressed
// and disabled findings never reach the artifact; the evaluation's
// scored list is the presented set.
func Assemble(in Input) *Artifact {
	findings := maskFindings(in.Eval.Scored)

	a := &Artifact{
		Version:            SchemaVersion,
		Timestamp:          in.Outcome.Timestamp,
		Source:             sourceInfo(in.Ingest),
		Decision:           in.Outcome.Decision,
		Score:              in.Eval.Score,
		Findings:           findings,
		Summary:            finding.Summarize(findings),
		CriticalBlockRules: in.Eval.CriticalBlockHit,
		Duration:           in.Duration.Milliseconds(),
		PolicyName:         in.Outcome.PolicyName,
		Errors:             analyzer.Errors(in.Results),
	}
	if a.Findings == nil {
		a.Findings = []finding.Finding{}
	}
	if a.CriticalBlockRules == nil {
		a.CriticalBlockRules = []string{}
	}
	if a.Errors == nil {
		a.Errors = []string{}
	}
	return a
}

func sourceInfo(ic *ingest.Context) SourceInfo {
	info := SourceInfo{
		Type: string(ic.Metadata.Kind),
		Path: ic.Metadata.OriginalLocation,
		Hash: ic.SourceHash,
	}
	if ic.Metadata.Kind == ingest.SourceGit {
		info.URL = ic.Metadata.OriginalLocation
		info.Commit = ic.Metadata.VCSCommit
	}
	return info
}

// maskFindings applies the masker to each finding's evidence and
// message. Analyzers already masked credential evidence; this is the
// defense-in-depth pass guaranteeing no masker-catalog secret shape in
// those fields reaches artifact bytes. Location and metadata are not
// masked.
func maskFindings(findings []finding.Finding) []finding.Finding {
	out := make([]finding.Finding, len(findings))
	for i, f := range findings {
		f.Evidence = masking.Mask(f.Evidence)
		f.Message = masking.Mask(f.Message)
		out[i] = f
	}
	return out
}

// WriteJSON serializes the artifact: two-space indent when pretty,
// compact otherwise; UTF-8; no trailing newline.
func (a *Artifact) WriteJSON(w io.Writer, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(a, "", "  ")
	} else {
		data, err = json.Marshal(a)
	}
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// WriteFile writes the artifact to path, or to stdout when path is
// "-" or empty.
func (a *Artifact) WriteFile(path string, pretty bool) error {
	if path == "" || path == "-" {
		return a.WriteJSON(os.Stdout, pretty)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return a.WriteJSON(f, pretty)
}
