package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func modelResponse(text string) string {
	b, _ := json.Marshal(apiResponse{
		ID:   "msg-1",
		Type: "message",
		Role: "assistant",
		Content: []apiContentBlock{
			{Type: "text", Text: text},
		},
	})
	return string(b)
}

func testRequest() Request {
	return Request{
		ID:     "req-1",
		System: "Think step by step.",
		User:   "What is 12 * 7?",
	}
}

func TestSolve_Success(t *testing.T) {
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")

		var req apiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.System == "" {
			t.Error("request has no system prompt")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want one user message", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, modelResponse("1. Multiply 12 by 7\n2. 12*7 = 84\nFinal Answer: 84"))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "claude-test", srv.URL)
	result, err := c.Solve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q, want %q", gotKey, "test-key")
	}
	if gotVersion != apiVersion {
		t.Errorf("anthropic-version = %q, want %q", gotVersion, apiVersion)
	}
	if len(result.Steps) != 2 || result.FinalAnswer != "84" {
		t.Errorf("result = %+v, want 2 steps and answer 84", result)
	}
	if result.CompletedAt.IsZero() {
		t.Error("CompletedAt is zero")
	}
}

func TestSolve_AuthError_NotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("bad-key", "claude-test", srv.URL)
	_, err := c.Solve(context.Background(), testRequest())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestSolve_RateLimit_RetriedThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, modelResponse("1. retry worked\nFinal Answer: ok"))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "claude-test", srv.URL)
	result, err := c.Solve(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.FinalAnswer != "ok" {
		t.Errorf("FinalAnswer = %q, want %q", result.FinalAnswer, "ok")
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestSolve_ServerError_RetriedThenExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "claude-test", srv.URL)
	_, err := c.Solve(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := attempts.Load(); got != int32(maxAttempts) {
		t.Errorf("attempts = %d, want %d", got, maxAttempts)
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("err = %v, want wrapped *NetworkError", err)
	}
}

func TestSolve_MalformedText_NotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, modelResponse("I cannot answer that."))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "claude-test", srv.URL)
	_, err := c.Solve(context.Background(), testRequest())

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want *MalformedResponseError", err)
	}
	if !strings.Contains(malformed.Raw, "I cannot answer that.") {
		t.Errorf("Raw = %q, want it to carry the model text", malformed.Raw)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestSolve_InvalidJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "claude-test", srv.URL)
	_, err := c.Solve(context.Background(), testRequest())

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want *MalformedResponseError", err)
	}
}

func TestSolve_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClientWithBaseURL("test-key", "claude-test", srv.URL)
	_, err := c.Solve(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error when server is unreachable")
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("err = %v, want wrapped *NetworkError", err)
	}
}
