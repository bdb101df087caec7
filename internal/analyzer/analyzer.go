// Package analyzer holds the analyzer contract, the concurrent
// orchestrator, and the six pattern analyzers that scan a normalized
// file set for security findings.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skillgate/skillgate/internal/finding"
	"github.com/skillgate/skillgate/internal/policy"
)

// Input is the read-only scan input handed to every analyzer. Each
// analyzer filters Files by its own predicate; the orchestrator passes
// the full list.
type Input struct {
	RootDir string
	Files   []string // absolute paths, walker order
	Policy  *policy.Policy
}

// Analyzer scans a file set and produces findings of one kind.
type Analyzer interface {
	Kind() finding.Kind
	Name() string
	Scan(ctx context.Context, in Input) ([]finding.Finding, error)
}

// Result records one analyzer's outcome. A failed analyzer has an
// empty finding list and a non-empty Err; it never aborts the pipeline
// or its siblings.
type Result struct {
	Kind     finding.Kind
	Findings []finding.Finding
	Duration time.Duration
	Err      string
}

// Orchestrator runs a registered set of analyzers concurrently.
// Registration order is the canonical order for outputs.
type Orchestrator struct {
	analyzers []Analyzer
}

// NewOrchestrator registers analyzers in the given order.
func NewOrchestrator(analyzers ...Analyzer) *Orchestrator {
	return &Orchestrator{analyzers: analyzers}
}

// Default returns an orchestrator with the standard six analyzers in
// their canonical registration order. The oracle may be nil, which
// disables the dependency vulnerability probe.
func Default(oracle Oracle) *Orchestrator {
	return NewOrchestrator(
		NewSecretAnalyzer(),
		NewStaticAnalyzer(),
		NewSkillDocAnalyzer(),
		NewEntrypointAnalyzer(),
		NewDependencyAnalyzer(oracle),
		NewCIRiskAnalyzer(),
	)
}

// Scan runs all analyzers concurrently and returns per-analyzer
// results in registration order regardless of finish order. A panic or
// error in one analyzer is converted into that analyzer's Err field.
func (o *Orchestrator) Scan(ctx context.Context, in Input) []Result {
	results := make([]Result, len(o.analyzers))

	var g errgroup.Group
	for i, a := range o.analyzers {
		g.Go(func() error {
			results[i] = runOne(ctx, a, in)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	return results
}

// Findings flattens per-analyzer results into the list the policy
// engine consumes: analyzer registration order, each analyzer's output
// order preserved within its block.
func Findings(results []Result) []finding.Finding {
	var all []finding.Finding
	for _, r := range results {
		all = append(all, r.Findings...)
	}
	return all
}

// Errors collects non-empty per-analyzer error strings in order.
func Errors(results []Result) []string {
	var errs []string
	for _, r := range results {
		if r.Err != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", r.Kind, r.Err))
		}
	}
	return errs
}

func runOne(ctx context.Context, a Analyzer, in Input) (res Result) {
	start := time.Now()
	res.Kind = a.Kind()
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Findings = nil
			res.Err = fmt.Sprintf("panic: %v", r)
		}
	}()

	findings, err := a.Scan(ctx, in)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Findings = findings
	return res
}
