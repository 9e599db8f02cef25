package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mindmate/mindmate/internal/claude"
	"github.com/mindmate/mindmate/internal/prompt"
	"github.com/mindmate/mindmate/internal/session"
	"github.com/mindmate/mindmate/internal/storage"
)

const testToken = "test-token"

// scriptedSolver answers each request with a canned result or error.
type scriptedSolver struct {
	err error
}

func (s *scriptedSolver) Solve(ctx context.Context, req claude.Request) (claude.ReasoningResult, error) {
	if s.err != nil {
		return claude.ReasoningResult{}, s.err
	}
	return claude.ReasoningResult{
		RequestID: req.ID,
		Steps: []claude.ReasoningStep{
			{Index: 1, Description: "Multiply 12 by 7"},
			{Index: 2, Description: "12*7 = 84"},
		},
		FinalAnswer: "84",
		CompletedAt: time.Now().UTC(),
	}, nil
}

func newTestHandler(t *testing.T, solver session.Solver) (http.Handler, *session.Controller, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	controller := session.NewController(prompt.New(), solver, session.NewHistory(), store)
	handler := NewHandler(Deps{Controller: controller, Store: store, Token: testToken})
	return handler, controller, store
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSolve_Endpoint(t *testing.T) {
	handler, controller, store := newTestHandler(t, &scriptedSolver{})

	rec := doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: "What is 12 * 7?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var outcome session.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decoding outcome: %v", err)
	}
	if outcome.Result == nil || outcome.Result.FinalAnswer != "84" {
		t.Errorf("outcome.Result = %+v, want final answer 84", outcome.Result)
	}
	if !strings.Contains(outcome.Report, "Final Answer:\n84") {
		t.Errorf("outcome.Report = %q", outcome.Report)
	}

	if controller.History().Len() != 1 {
		t.Errorf("history has %d entries, want 1", controller.History().Len())
	}

	// The submission is also archived durably.
	records, err := store.ListRecords(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Status != storage.StatusSolved {
		t.Errorf("archive records = %+v, want one solved record", records)
	}
}

func TestSolve_EmptyProblem(t *testing.T) {
	handler, controller, _ := newTestHandler(t, &scriptedSolver{})

	rec := doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Type != string(session.KindInvalidInput) {
		t.Errorf("error.type = %q, want invalid_input", resp.Error.Type)
	}
	if controller.History().Len() != 0 {
		t.Errorf("history has %d entries after invalid input, want 0", controller.History().Len())
	}
}

func TestSolve_UpstreamAuthFailure(t *testing.T) {
	handler, _, _ := newTestHandler(t, &scriptedSolver{err: &claude.AuthError{Status: 401}})

	rec := doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: "anything"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), string(session.KindAuth)) {
		t.Errorf("body = %s, want auth error kind", rec.Body.String())
	}
}

func TestHistory_Endpoints(t *testing.T) {
	handler, _, _ := newTestHandler(t, &scriptedSolver{})

	for i := range 3 {
		rec := doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: fmt.Sprintf("problem %d", i)})
		if rec.Code != http.StatusOK {
			t.Fatalf("solve %d: status %d", i, rec.Code)
		}
	}

	rec := doRequest(t, handler, "GET", "/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var entries []session.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("problem %d", i)
		if e.Request.Text != want {
			t.Errorf("entries[%d].Request.Text = %q, want %q", i, e.Request.Text, want)
		}
	}

	rec = doRequest(t, handler, "GET", "/history/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var entry session.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Request.Text != "problem 1" {
		t.Errorf("entry.Request.Text = %q, want %q", entry.Request.Text, "problem 1")
	}

	rec = doRequest(t, handler, "GET", "/history/42", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("out-of-range status = %d, want 404", rec.Code)
	}
}

func TestHistory_Report(t *testing.T) {
	handler, _, _ := newTestHandler(t, &scriptedSolver{})

	rec := doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: "What is 12 * 7?"})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}

	rec = doRequest(t, handler, "GET", "/history/0/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q, want attachment", cd)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "Problem:\nWhat is 12 * 7?") {
		t.Errorf("report body = %q", body)
	}

	// Byte-identical on repeat download.
	rec2 := doRequest(t, handler, "GET", "/history/0/report", nil)
	if rec2.Body.String() != body {
		t.Error("report not deterministic across downloads")
	}
}

func TestHistory_ReportForFailedEntry(t *testing.T) {
	handler, _, _ := newTestHandler(t, &scriptedSolver{err: &claude.NetworkError{Err: context.DeadlineExceeded}})

	rec := doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: "doomed"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("solve status = %d, want 502", rec.Code)
	}

	rec = doRequest(t, handler, "GET", "/history/0/report", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("report status = %d, want 404 for failed entry", rec.Code)
	}
}

func TestHistory_Clear(t *testing.T) {
	handler, controller, _ := newTestHandler(t, &scriptedSolver{})

	doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: "first"})
	rec := doRequest(t, handler, "DELETE", "/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if controller.History().Len() != 0 {
		t.Errorf("history has %d entries after clear, want 0", controller.History().Len())
	}
}

func TestArchive_Endpoints(t *testing.T) {
	handler, _, _ := newTestHandler(t, &scriptedSolver{})

	doRequest(t, handler, "POST", "/solve", SolveRequest{Problem: "archived problem"})

	rec := doRequest(t, handler, "GET", "/archive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive list status = %d", rec.Code)
	}
	var records []storage.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec = doRequest(t, handler, "GET", "/archive/"+records[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive get status = %d", rec.Code)
	}

	rec = doRequest(t, handler, "GET", "/archive/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("archive get missing status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, handler, "DELETE", "/archive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive purge status = %d", rec.Code)
	}
	rec = doRequest(t, handler, "GET", "/archive", nil)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("archive after purge = %s, want []", body)
	}
}

func TestAuth_Required(t *testing.T) {
	handler, _, _ := newTestHandler(t, &scriptedSolver{})

	req := httptest.NewRequest("GET", "/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest("GET", "/history", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong token = %d, want 401", rec.Code)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	handler, _, _ := newTestHandler(t, &scriptedSolver{})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["state"] != string(session.StateIdle) {
		t.Errorf("state = %q, want idle", resp["state"])
	}
}
