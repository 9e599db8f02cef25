package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1024
	maxAttempts      = 3
	initialBackoff   = 500 * time.Millisecond
)

// Client communicates with the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a Client for the given API key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		maxTokens: defaultMaxTokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// SetMaxTokens overrides the completion token budget.
func (c *Client) SetMaxTokens(n int) {
	if n > 0 {
		c.maxTokens = n
	}
}

// Solve sends the request to the model and parses the response text into a
// ReasoningResult. Transient failures (network, HTTP 429) are retried with
// exponential backoff up to maxAttempts; auth failures and malformed
// responses are surfaced immediately.
func (c *Client) Solve(ctx context.Context, req Request) (ReasoningResult, error) {
	body, err := json.Marshal(apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.System,
		Messages:  []apiMessage{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return ReasoningResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		text, err := c.complete(ctx, body)
		if err == nil {
			result, perr := ParseResult(req.ID, text, time.Now().UTC())
			if perr != nil {
				return ReasoningResult{}, perr
			}
			return result, nil
		}

		if !retryable(err) {
			return ReasoningResult{}, err
		}

		lastErr = err
		if attempt < maxAttempts-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			slog.Debug("retrying model call", "attempt", attempt+1, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return ReasoningResult{}, &NetworkError{Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}
	}

	return ReasoningResult{}, fmt.Errorf("model call failed after %d attempts: %w", maxAttempts, lastErr)
}

// complete performs one Messages API call and returns the concatenated text
// content of the response.
func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RateLimitError{Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return "", &NetworkError{Err: fmt.Errorf("server error (HTTP %d)", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &MalformedResponseError{Reason: "response is not valid JSON", Raw: string(respBody)}
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &MalformedResponseError{Reason: "no text content in response", Raw: string(respBody)}
	}
	return sb.String(), nil
}
