// Package mcp exposes skillgate as an MCP tool server so agent hosts
// can vet a skill before installing it.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/skillgate/skillgate/internal/history"
)

// Deps are the collaborators the tool handlers need.
type Deps struct {
	// PolicyPath is the policy used for scan_skill; empty means the
	// embedded default.
	PolicyPath string
	// WorkDir hosts scratch directories for remote sources.
	WorkDir string
	// History is optional; nil disables history_query and recording.
	History *history.Store
	Logger  *slog.Logger
	Version string
}

// NewServer creates an MCP server exposing skillgate tools.
func NewServer(deps Deps) *mcp.Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "skillgate", Version: deps.Version}, &mcp.ServerOptions{
		Instructions: "Skillgate audits third-party agent skill packages before " +
			"installation. Use scan_skill to get a decision (allow, quarantine, " +
			"block) for a local directory, git URL, or archive; get_policy to " +
			"inspect the active policy; history_query to review past scans.",
	})

	h := &handlers{deps: deps}
	s.AddTool(scanSkillTool(), h.handleScanSkill)
	s.AddTool(getPolicyTool(), h.handleGetPolicy)
	s.AddTool(historyQueryTool(), h.handleHistoryQuery)
	return s
}

// Serve runs the MCP server on stdio until the client disconnects.
func Serve(ctx context.Context, s *mcp.Server) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}
