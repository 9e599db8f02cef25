package claude

import "time"

// Request is a fully composed Messages API request: a system instruction
// plus the user's problem text.
type Request struct {
	ID     string // opaque request identifier, assigned by the caller
	System string
	User   string
}

// ReasoningStep is one discrete step of the model's reasoning. Ordering is
// significant; Index is 1-based.
type ReasoningStep struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}

// ReasoningResult is the parsed outcome of a successful model call.
// Steps is never empty: a response without parseable steps is surfaced as
// a *MalformedResponseError instead.
type ReasoningResult struct {
	RequestID   string          `json:"request_id"`
	Steps       []ReasoningStep `json:"steps"`
	FinalAnswer string          `json:"final_answer"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Wire types for the Anthropic Messages API.

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
	Error   *apiError         `json:"error,omitempty"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
