package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var (
		dbPath        string
		decision      string
		source        string
		limit         int
		retentionDays int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past scan decisions",
		Example: `  skillgate history
  skillgate history --decision block --limit 50
  skillgate history --source github.com/acme`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }() //nolint:errcheck // best-effort close

			if retentionDays > 0 {
				if _, err := store.Purge(retentionDays); err != nil {
					return err
				}
			}

			entries, err := store.Query(history.QueryOpts{
				Decision: decision,
				Source:   source,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no recorded scans")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tSOURCE\tDECISION\tSCORE\tPOLICY")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					e.ID[:8], e.Timestamp, e.SourceLocation, e.Decision, e.Score, e.PolicyName)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "history-db", "", "history database path (default: ~/.skillgate/history.db)")
	cmd.Flags().StringVar(&decision, "decision", "", "filter by decision: allow, block, quarantine")
	cmd.Flags().StringVar(&source, "source", "", "filter by source location substring")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "purge entries older than this many days first")

	cmd.AddCommand(newHistoryShowCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Re-emit a stored decision artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }() //nolint:errcheck // best-effort close

			payload, err := store.Artifact(args[0])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(payload)
			fmt.Println()
			return err
		},
	}

	cmd.Flags().StringVar(&dbPath, "history-db", "", "history database path (default: ~/.skillgate/history.db)")
	return cmd
}

func openHistory(dbPath string) (*history.Store, error) {
	if dbPath == "" {
		dbPath = history.DefaultPath()
	}
	return history.Open(dbPath, newLogger())
}
