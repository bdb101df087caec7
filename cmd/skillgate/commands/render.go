package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/skillgate/skillgate/internal/enforce"
	"github.com/skillgate/skillgate/internal/finding"
	"github.com/skillgate/skillgate/internal/scan"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	decisionPass = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	decisionWarn = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	decisionFail = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func decisionStyle(d enforce.Decision) lipgloss.Style {
	switch d {
	case enforce.DecisionAllow:
		return decisionPass
	case enforce.DecisionQuarantine:
		return decisionWarn
	default:
		return decisionFail
	}
}

// printScanTerminal renders the human summary. The decision artifact
// never flows through here; this output is decoration only.
func printScanTerminal(outcome *scan.Outcome) {
	a := outcome.Artifact
	if !isTTY() {
		color.NoColor = true
	}

	fmt.Println()
	fmt.Println("  " + headerStyle.Render("skillgate scan"))
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Source:     %s (%s)\n", a.Source.Path, a.Source.Type)
	fmt.Printf("  Hash:       %s\n", dimStyle.Render(shortHash(a.Source.Hash)))
	fmt.Printf("  Policy:     %s\n", a.PolicyName)
	fmt.Printf("  Decision:   %s\n", decisionStyle(outcome.Decision).Render(strings.ToUpper(string(outcome.Decision))))
	fmt.Printf("  Score:      %d/100\n", a.Score)
	if outcome.ScanID != "" {
		fmt.Printf("  Scan ID:    %s\n", outcome.ScanID)
	}
	for _, reason := range outcome.Reasons {
		fmt.Printf("  Reason:     %s\n", reason)
	}

	if len(a.Findings) > 0 {
		fmt.Println()
		bySeverity := map[finding.Severity][]int{}
		for i, f := range a.Findings {
			bySeverity[f.Severity] = append(bySeverity[f.Severity], i)
		}
		for _, sev := range finding.Severities() {
			idxs := bySeverity[sev]
			if len(idxs) == 0 {
				continue
			}
			fmt.Printf("  %s (%d)\n", severityLabel(sev), len(idxs))
			for _, i := range idxs {
				f := a.Findings[i]
				loc := f.Location.File
				if f.Location.Line > 0 {
					loc = fmt.Sprintf("%s:%d", loc, f.Location.Line)
				}
				fmt.Printf("    [%s] %s\n", f.RuleID, f.Message)
				fmt.Printf("          %s\n", dimStyle.Render(loc))
			}
		}
	}

	if len(a.Errors) > 0 {
		fmt.Println()
		for _, e := range a.Errors {
			fmt.Printf("  %s %s\n", color.YellowString("analyzer error:"), e)
		}
	}

	fmt.Println()
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Findings: %d critical, %d high, %d medium, %d low, %d info (%d ms)\n",
		a.Summary.Critical, a.Summary.High, a.Summary.Medium, a.Summary.Low, a.Summary.Info, a.Duration)
	fmt.Println()
}

func severityLabel(s finding.Severity) string {
	label := strings.ToUpper(string(s))
	if !isTTY() {
		return label
	}
	switch s {
	case finding.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case finding.SeverityHigh:
		return color.New(color.FgRed).Sprint(label)
	case finding.SeverityMedium:
		return color.New(color.FgYellow).Sprint(label)
	case finding.SeverityLow:
		return color.New(color.FgCyan).Sprint(label)
	default:
		return label
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
