// Package prompt turns a raw problem description into a structured model
// request shaped so the response separates into discrete reasoning steps
// and a final answer.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mindmate/mindmate/internal/claude"
)

// ErrEmptyProblem is returned when the problem text is empty or whitespace-only.
var ErrEmptyProblem = errors.New("problem text is empty")

const systemInstruction = `You are a careful problem-solving assistant. Think through the user's problem step by step, then give a concise final answer.

Format your response exactly as follows:
- Number each reasoning step on its own line as "1.", "2.", and so on.
- After the steps, write one line starting with "` + claude.FinalAnswerMarker + `" followed by the concise answer.
- Do not include any other sections.`

// Builder composes model requests for problem submissions.
type Builder struct{}

// New creates a Builder.
func New() *Builder {
	return &Builder{}
}

// Build validates the problem text and returns a request carrying the fixed
// system instruction. The request ID is assigned by the caller. No side effects.
func (b *Builder) Build(requestID, problemText string) (claude.Request, error) {
	text := strings.TrimSpace(problemText)
	if text == "" {
		return claude.Request{}, ErrEmptyProblem
	}

	return claude.Request{
		ID:     requestID,
		System: systemInstruction,
		User:   fmt.Sprintf("I need to solve this problem:\n\n%s", text),
	}, nil
}
