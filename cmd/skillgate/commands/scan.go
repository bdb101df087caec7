package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/enforce"
	"github.com/skillgate/skillgate/internal/history"
	"github.com/skillgate/skillgate/internal/osv"
	"github.com/skillgate/skillgate/internal/scan"
)

func newScanCmd() *cobra.Command {
	var (
		jsonOutput  bool
		sarifOutput bool
		pretty      bool
		outputPath  string
		ref         string
		workDir     string
		timeout     time.Duration
		enableOSV   bool
		noHistory   bool
		historyDB   string
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "scan <source>",
		Short: "Audit a skill package and emit a decision",
		Long: "Ingests a skill source (local directory, git URL, or archive), runs all " +
			"analyzers, evaluates the findings against the policy, and exits with the " +
			"decision: 0 allow, 1 block, 2 quarantine, 3 scan error.",
		Example: `  skillgate scan ./my-skill
  skillgate scan https://github.com/acme/skill.git --ref v1.2.0
  skillgate scan skill.tar.gz --json --output report.json
  skillgate scan ./my-skill --policy strict.yaml --osv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			source := args[0]

			var store *history.Store
			if !noHistory {
				dbPath := historyDB
				if dbPath == "" {
					dbPath = history.DefaultPath()
				}
				s, err := history.Open(dbPath, logger)
				if err != nil {
					logger.Warn("scan history unavailable", "error", err)
				} else {
					store = s
					defer func() { _ = store.Close() }() //nolint:errcheck // best-effort close
				}
			}

			opts := scan.Options{
				Source:     source,
				PolicyPath: policyFile,
				Ref:        ref,
				WorkDir:    workDir,
				Timeout:    timeout,
				History:    store,
				Logger:     logger,
			}
			if enableOSV {
				opts.Oracle = osv.NewClient()
			}

			if watch {
				return watchAndScan(cmd.Context(), source, opts)
			}

			outcome, err := scan.Run(cmd.Context(), opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
				os.Exit(enforce.ExitScanFailed)
			}

			if err := emitScan(outcome, emitOpts{
				json:   jsonOutput,
				sarif:  sarifOutput,
				pretty: pretty,
				output: outputPath,
			}); err != nil {
				fmt.Fprintf(os.Stderr, "writing report: %v\n", err)
				os.Exit(enforce.ExitScanFailed)
			}

			if outcome.ExitCode != enforce.ExitAllow {
				os.Exit(outcome.ExitCode)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the decision artifact as JSON on stdout")
	cmd.Flags().BoolVar(&sarifOutput, "sarif", false, "emit SARIF v2.1.0 on stdout")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "indent JSON output")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the decision artifact to a file")
	cmd.Flags().StringVar(&ref, "ref", "", "git ref (branch, tag, or commit) for VCS sources")
	cmd.Flags().StringVar(&workDir, "workdir", "", "directory for scratch clones and extractions (default: OS temp)")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "acquisition timeout for clones and extractions")
	cmd.Flags().BoolVar(&enableOSV, "osv", false, "query the OSV database for dependency vulnerabilities")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this scan in the history database")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "history database path (default: ~/.skillgate/history.db)")
	cmd.Flags().BoolVar(&watch, "watch", false, "rescan a local source whenever it changes")
	return cmd
}

type emitOpts struct {
	json   bool
	sarif  bool
	pretty bool
	output string
}

// emitScan writes the machine artifact and/or the terminal summary.
// The artifact goes to --output when set; --json/--sarif select the
// stdout format, otherwise a human summary is printed.
func emitScan(outcome *scan.Outcome, opts emitOpts) error {
	if opts.output != "" {
		if err := outcome.Artifact.WriteFile(opts.output, opts.pretty); err != nil {
			return err
		}
	}
	switch {
	case opts.sarif:
		return outcome.Artifact.WriteSARIF(os.Stdout, version)
	case opts.json:
		if err := outcome.Artifact.WriteJSON(os.Stdout, opts.pretty); err != nil {
			return err
		}
		fmt.Println()
		return nil
	default:
		printScanTerminal(outcome)
		return nil
	}
}

// watchAndScan reruns the pipeline whenever the local source changes.
// The exit code reflects the most recent completed scan.
func watchAndScan(ctx context.Context, source string, opts scan.Options) error {
	outcome, err := scan.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	printScanTerminal(outcome)

	lastExit := outcome.ExitCode
	// Interrupt ends the watch loop; rescans keep the parent context so
	// a scan already running when ctrl-c arrives still completes.
	watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	err = watchLoop(watchCtx, source, func() {
		o, err := scan.Run(ctx, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rescan failed: %v\n", err)
			lastExit = enforce.ExitScanFailed
			return
		}
		printScanTerminal(o)
		lastExit = o.ExitCode
	})
	if err != nil {
		return err
	}
	if lastExit != enforce.ExitAllow {
		os.Exit(lastExit)
	}
	return nil
}
