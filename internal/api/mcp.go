package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mindmate/mindmate/internal/session"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Controller *session.Controller
}

// NewMCPServer creates an MCP server exposing problem solving and session
// history over the stdio transport.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"mindmate",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("mindmate — send a problem to the reasoning model and get step-by-step thinking plus a final answer."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("solve_problem",
			mcp.WithDescription("Solve a problem with step-by-step reasoning. Returns a plain-text report of the thinking steps and the final answer."),
			mcp.WithString("problem", mcp.Description("The problem to solve"), mcp.Required()),
		),
		mcpSolveProblem(deps),
	)

	s.AddTool(
		mcp.NewTool("get_report",
			mcp.WithDescription("Return the downloadable text report for a past submission in this session."),
			mcp.WithNumber("index", mcp.Description("0-based chronological history index"), mcp.Required()),
		),
		mcpGetReport(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"mindmate://history",
			"Session History",
			mcp.WithResourceDescription("Problems submitted in this session (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	return s
}

func mcpSolveProblem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		problem, err := req.RequireString("problem")
		if err != nil {
			return mcpError("problem is required"), nil
		}

		outcome := deps.Controller.Submit(ctx, problem)
		if outcome.Failed() {
			return mcpError(fmt.Sprintf("%s: %s", outcome.ErrKind, outcome.Message)), nil
		}

		return mcpText(outcome.Report), nil
	}
}

func mcpGetReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index := req.GetInt("index", -1)
		if index < 0 {
			return mcpError("index is required and must be >= 0"), nil
		}

		entry, err := deps.Controller.History().Get(index)
		if err != nil {
			return mcpError(fmt.Sprintf("history entry %d not found", index)), nil
		}

		report, err := session.FormatEntry(entry)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(report), nil
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries := deps.Controller.History().List()

		type entrySummary struct {
			Index       int    `json:"index"`
			RequestID   string `json:"request_id"`
			SubmittedAt string `json:"submitted_at"`
			Problem     string `json:"problem"`
			Status      string `json:"status"`
		}

		summaries := make([]entrySummary, len(entries))
		for i, e := range entries {
			problem := e.Request.Text
			if utf8.RuneCountInString(problem) > 200 {
				runes := []rune(problem)
				problem = string(runes[:200]) + "..."
			}
			status := "solved"
			if e.Failed() {
				status = "failed"
			}
			summaries[i] = entrySummary{
				Index:       i,
				RequestID:   e.Request.ID,
				SubmittedAt: e.Request.SubmittedAt.Format(time.RFC3339),
				Problem:     problem,
				Status:      status,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
