package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/skillgate/skillgate/internal/history"
	"github.com/skillgate/skillgate/internal/mcputil"
	"github.com/skillgate/skillgate/internal/scan"
)

type handlers struct {
	deps Deps
}

// --- Tool definitions ---

// jsonSchema builds a minimal JSON Schema object for tool InputSchema.
func jsonSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func scanSkillTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "scan_skill",
		Description: "Run a full security audit of a skill package before " +
			"installation. Accepts a local directory, a git URL, or an archive " +
			"path; returns the decision artifact (allow, quarantine, or block) " +
			"with masked findings.",
		InputSchema: jsonSchema(map[string]any{
			"source": prop("string", "Local path, git URL, or archive path of the skill"),
			"policy": prop("string", "Optional policy file path (defaults to the built-in policy)"),
			"ref":    prop("string", "Optional git ref (branch, tag, or commit) for VCS sources"),
		}, []string{"source"}),
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(true),
		},
	}
}

func getPolicyTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "get_policy",
		Description: "Return the active scan policy after inheritance " +
			"resolution: thresholds, critical-block rules, rule overrides, " +
			"and exceptions.",
		InputSchema: jsonSchema(map[string]any{
			"policy": prop("string", "Optional policy file path (defaults to the built-in policy)"),
		}, nil),
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}
}

func historyQueryTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "history_query",
		Description: "Query past scan decisions. Returns recent scans with " +
			"source, decision, score, and policy name.",
		InputSchema: jsonSchema(map[string]any{
			"decision": prop("string", "Filter by decision: allow, block, quarantine"),
			"source":   prop("string", "Filter by source location substring"),
			"limit":    prop("number", "Maximum entries to return (default 20)"),
		}, nil),
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}
}

func boolPtr(b bool) *bool { return &b }

// --- Handlers ---

func (h *handlers) handleScanSkill(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	source := mcputil.GetString(args, "source", "")
	if source == "" {
		return mcputil.NewToolResultError("source is required"), nil
	}

	policyPath := mcputil.GetString(args, "policy", h.deps.PolicyPath)
	ref := mcputil.GetString(args, "ref", "")

	outcome, err := scan.Run(ctx, scan.Options{
		Source:     source,
		PolicyPath: policyPath,
		Ref:        ref,
		WorkDir:    h.deps.WorkDir,
		History:    h.deps.History,
		Logger:     h.deps.Logger,
	})
	if err != nil {
		return mcputil.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	var buf bytes.Buffer
	if err := outcome.Artifact.WriteJSON(&buf, true); err != nil {
		return mcputil.NewToolResultError(fmt.Sprintf("encoding artifact: %v", err)), nil
	}
	return mcputil.NewToolResultText(buf.String()), nil
}

func (h *handlers) handleGetPolicy(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments
	policyPath := mcputil.GetString(args, "policy", h.deps.PolicyPath)

	pol, err := scan.LoadPolicy(policyPath)
	if err != nil {
		return mcputil.NewToolResultError(fmt.Sprintf("loading policy: %v", err)), nil
	}

	data, _ := json.MarshalIndent(pol, "", "  ") //nolint:errcheck // validated model
	return mcputil.NewToolResultText(string(data)), nil
}

func (h *handlers) handleHistoryQuery(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.deps.History == nil {
		return mcputil.NewToolResultError("scan history is not enabled"), nil
	}

	args := request.Params.Arguments
	entries, err := h.deps.History.Query(history.QueryOpts{
		Decision: mcputil.GetString(args, "decision", ""),
		Source:   mcputil.GetString(args, "source", ""),
		Limit:    mcputil.GetInt(args, "limit", 0),
	})
	if err != nil {
		return mcputil.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	result := map[string]any{"scans": entries, "count": len(entries)}
	data, _ := json.MarshalIndent(result, "", "  ") //nolint:errcheck // plain model
	return mcputil.NewToolResultText(string(data)), nil
}
