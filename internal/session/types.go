// Package session owns the problem-solving session: the interaction
// controller, the in-memory history of past submissions, and report
// formatting. One session spans the lifetime of one running server process.
package session

import (
	"time"

	"github.com/mindmate/mindmate/internal/claude"
)

// ErrorKind classifies a failed submission for the boundary layer.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindAuth              ErrorKind = "auth"
	KindNetwork           ErrorKind = "network"
	KindRateLimit         ErrorKind = "rate_limit"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindNotFound          ErrorKind = "not_found"
	KindInternal          ErrorKind = "internal"
)

// ProblemRequest captures one user submission. Immutable once created.
type ProblemRequest struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Entry pairs a request with its result, or with a failure marker when the
// model call failed. Entries are owned by History and never edited after
// insertion.
type Entry struct {
	Request    ProblemRequest          `json:"request"`
	Result     *claude.ReasoningResult `json:"result,omitempty"`
	ErrorKind  ErrorKind               `json:"error_kind,omitempty"`
	ErrorMsg   string                  `json:"error_message,omitempty"`
}

// Failed reports whether the entry records a failed submission.
func (e Entry) Failed() bool {
	return e.Result == nil
}

// Outcome is what a submission returns to the boundary layer: either a
// result with its ready-to-export report, or an error kind with a
// display message. Never both.
type Outcome struct {
	Result  *claude.ReasoningResult `json:"result,omitempty"`
	Report  string                  `json:"report,omitempty"`
	ErrKind ErrorKind               `json:"error,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool {
	return o.ErrKind != ""
}
