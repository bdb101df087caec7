// Package scan drives the full pipeline: ingest, analyze, evaluate,
// enforce, assemble. The CLI, watch mode, and MCP server all run
// scans through here.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillgate/skillgate/internal/analyzer"
	"github.com/skillgate/skillgate/internal/enforce"
	"github.com/skillgate/skillgate/internal/history"
	"github.com/skillgate/skillgate/internal/ingest"
	"github.com/skillgate/skillgate/internal/policy"
	"github.com/skillgate/skillgate/internal/report"
	"github.com/skillgate/skillgate/policies"
)

// Options configure one scan run.
type Options struct {
	// Source is the descriptor: local path, git URL, or archive path.
	Source string
	// PolicyPath selects the policy file; empty uses the embedded
	// default policy.
	PolicyPath string
	// Ref is the git ref for VCS sources.
	Ref string
	// WorkDir hosts scratch clone/extraction directories.
	WorkDir string
	// Timeout bounds acquisition (clone, extraction).
	Timeout time.Duration
	// Oracle enables the dependency vulnerability probe when non-nil.
	Oracle analyzer.Oracle
	// History records the artifact when non-nil.
	History *history.Store
	// Logger receives stage progress at debug level.
	Logger *slog.Logger
}

// Outcome bundles the artifact with the enforcement result.
type Outcome struct {
	Artifact *report.Artifact
	Decision enforce.Decision
	ExitCode int
	Reasons  []string
	ScanID   string // history id, empty when recording is disabled
}

// LoadPolicy resolves the policy for a run: the embedded default when
// path is empty, otherwise the file with extends resolution.
func LoadPolicy(path string) (*policy.Policy, error) {
	if path == "" {
		p, err := policy.Parse(policies.Default())
		if err != nil {
			return nil, fmt.Errorf("embedded default policy: %w", err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("embedded default policy: %w", err)
		}
		return p, nil
	}
	return policy.NewLoader().Load(path)
}

// Run executes the pipeline once. Ingest and policy-load failures are
// returned as errors (exit code 3 territory); analyzer failures are
// isolated into the artifact's errors list.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	pol, err := LoadPolicy(opts.PolicyPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("policy loaded", "name", pol.Name)

	ingested := ingest.Run(ctx, opts.Source, ingest.Options{
		WorkDir: opts.WorkDir,
		Ref:     opts.Ref,
		Timeout: opts.Timeout,
	})
	if !ingested.Success {
		return nil, fmt.Errorf("ingest: %w", ingested.Err)
	}
	ic := ingested.Context
	defer ic.Cleanup()
	logger.Debug("source ingested",
		"kind", ic.Metadata.Kind, "files", ic.FileCount, "hash", ic.SourceHash)

	orch := analyzer.Default(opts.Oracle)
	results := orch.Scan(ctx, analyzer.Input{
		RootDir: ic.RootDir,
		Files:   ic.FilePaths(),
		Policy:  pol,
	})
	for _, r := range results {
		logger.Debug("analyzer finished",
			"kind", r.Kind, "findings", len(r.Findings), "duration", r.Duration, "error", r.Err)
	}

	eval := policy.Evaluate(pol, analyzer.Findings(results))
	outcome := enforce.Enforce(eval, pol)

	artifact := report.Assemble(report.Input{
		Ingest:   ic,
		Results:  results,
		Eval:     eval,
		Outcome:  outcome,
		Duration: time.Since(start),
	})

	res := &Outcome{
		Artifact: artifact,
		Decision: outcome.Decision,
		ExitCode: outcome.ExitCode,
		Reasons:  outcome.Reasons,
	}

	if opts.History != nil {
		id, err := opts.History.Record(artifact)
		if err != nil {
			logger.Warn("recording scan history failed", "error", err)
		} else {
			res.ScanID = id
		}
	}
	return res, nil
}
