package commands

import (
	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/history"
	mcpserver "github.com/skillgate/skillgate/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		dbPath    string
		noHistory bool
		workDir   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start skillgate as an MCP server (stdio)",
		Long: `Exposes skillgate as an MCP tool server. Add to your MCP client config:

  {
    "mcpServers": {
      "skillgate": {
        "command": "skillgate",
        "args": ["mcp"]
      }
    }
  }

Tools: scan_skill, get_policy, history_query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			var store *history.Store
			if !noHistory {
				path := dbPath
				if path == "" {
					path = history.DefaultPath()
				}
				s, err := history.Open(path, logger)
				if err != nil {
					logger.Warn("scan history unavailable", "error", err)
				} else {
					store = s
					defer func() { _ = store.Close() }() //nolint:errcheck // best-effort close
				}
			}

			s := mcpserver.NewServer(mcpserver.Deps{
				PolicyPath: policyFile,
				WorkDir:    workDir,
				History:    store,
				Logger:     logger,
				Version:    version,
			})
			return mcpserver.Serve(cmd.Context(), s)
		},
	}

	cmd.Flags().StringVar(&dbPath, "history-db", "", "history database path (default: ~/.skillgate/history.db)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "disable scan history")
	cmd.Flags().StringVar(&workDir, "workdir", "", "directory for scratch clones and extractions (default: OS temp)")
	return cmd
}
