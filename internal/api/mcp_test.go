package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mindmate/mindmate/internal/claude"
	"github.com/mindmate/mindmate/internal/prompt"
	"github.com/mindmate/mindmate/internal/session"
)

func newTestMCPDeps(t *testing.T, solver session.Solver) MCPDeps {
	t.Helper()
	controller := session.NewController(prompt.New(), solver, session.NewHistory(), nil)
	return MCPDeps{Controller: controller}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_SolveProblem(t *testing.T) {
	deps := newTestMCPDeps(t, &scriptedSolver{})
	handler := mcpSolveProblem(deps)

	req := makeCallToolRequest("solve_problem", map[string]interface{}{
		"problem": "What is 12 * 7?",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if !strings.Contains(text, "Final Answer:\n84") {
		t.Errorf("report = %q, want final answer section", text)
	}
	if deps.Controller.History().Len() != 1 {
		t.Errorf("history has %d entries, want 1", deps.Controller.History().Len())
	}
}

func TestMCPTool_SolveProblem_EmptyInput(t *testing.T) {
	deps := newTestMCPDeps(t, &scriptedSolver{})
	handler := mcpSolveProblem(deps)

	req := makeCallToolRequest("solve_problem", map[string]interface{}{
		"problem": "   ",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for blank problem")
	}
	if deps.Controller.History().Len() != 0 {
		t.Errorf("history has %d entries, want 0", deps.Controller.History().Len())
	}
}

func TestMCPTool_SolveProblem_ModelFailure(t *testing.T) {
	deps := newTestMCPDeps(t, &scriptedSolver{err: &claude.RateLimitError{Status: 429}})
	handler := mcpSolveProblem(deps)

	req := makeCallToolRequest("solve_problem", map[string]interface{}{
		"problem": "anything",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if text := toolText(t, result); !strings.Contains(text, string(session.KindRateLimit)) {
		t.Errorf("error text = %q, want rate_limit kind", text)
	}
}

func TestMCPTool_GetReport(t *testing.T) {
	deps := newTestMCPDeps(t, &scriptedSolver{})

	outcome := deps.Controller.Submit(context.Background(), "What is 12 * 7?")
	if outcome.Failed() {
		t.Fatalf("submit failed: %s", outcome.Message)
	}

	handler := mcpGetReport(deps)
	req := makeCallToolRequest("get_report", map[string]interface{}{
		"index": 0,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if text := toolText(t, result); text != outcome.Report {
		t.Errorf("report = %q, want %q", text, outcome.Report)
	}
}

func TestMCPTool_GetReport_OutOfRange(t *testing.T) {
	deps := newTestMCPDeps(t, &scriptedSolver{})
	handler := mcpGetReport(deps)

	req := makeCallToolRequest("get_report", map[string]interface{}{
		"index": 5,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for out-of-range index")
	}
}

func TestMCPTool_GetReport_MissingIndex(t *testing.T) {
	deps := newTestMCPDeps(t, &scriptedSolver{})
	handler := mcpGetReport(deps)

	req := makeCallToolRequest("get_report", map[string]interface{}{})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when index is absent")
	}
}

func TestMCPResource_History(t *testing.T) {
	deps := newTestMCPDeps(t, &scriptedSolver{})

	long := strings.Repeat("x", 300)
	deps.Controller.Submit(context.Background(), "short problem")
	deps.Controller.Submit(context.Background(), long)

	handler := mcpResourceHistory(deps)
	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "mindmate://history"},
	}

	contents, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var summaries []struct {
		Index   int    `json:"index"`
		Problem string `json:"problem"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &summaries); err != nil {
		t.Fatalf("failed to parse history JSON: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Problem != "short problem" || summaries[0].Status != "solved" {
		t.Errorf("summaries[0] = %+v", summaries[0])
	}
	if !strings.HasSuffix(summaries[1].Problem, "...") {
		t.Errorf("long problem not truncated: %q", summaries[1].Problem)
	}
}
