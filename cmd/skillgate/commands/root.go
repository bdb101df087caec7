package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	policyFile string
	verbose    bool
)

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "skillgate",
		Short: "Pre-installation security auditor for agent skill packages",
		Long: "Skillgate — Scans third-party agent skills (docs, code, manifests, CI config) " +
			"for secrets, dangerous patterns, and supply-chain risk before they are installed. " +
			"No execution. Single binary.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&policyFile, "policy", "", "policy file path (default: built-in policy)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newScanCmd(),
		newPolicyCmd(),
		newHistoryCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)

	return root
}

// newLogger builds the slog logger commands share. Debug level when
// --verbose; logs go to stderr so stdout stays artifact-clean.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
