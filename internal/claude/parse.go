package claude

import (
	"regexp"
	"strings"
	"time"
)

// FinalAnswerMarker is the literal prefix the prompt asks the model to put
// on its concluding line. Parsing matches it case-insensitively.
const FinalAnswerMarker = "Final Answer:"

// stepPrefix matches the step conventions the prompt elicits, with some
// tolerance for formatting drift: "Step 3:", "3.", "3)".
var stepPrefix = regexp.MustCompile(`(?i)^(?:step\s+(\d+)\s*[:.)]|(\d+)\s*[.)])\s*`)

// ParseResult turns raw model output text into a ReasoningResult. It fails
// with *MalformedResponseError when no final answer marker is present or
// when no reasoning steps can be recovered; it never returns an empty
// result silently.
func ParseResult(requestID, text string, completedAt time.Time) (ReasoningResult, error) {
	var steps []ReasoningStep
	var answerLines []string
	inAnswer := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if inAnswer {
			answerLines = append(answerLines, line)
			continue
		}

		if rest, ok := cutMarker(line); ok {
			inAnswer = true
			if rest != "" {
				answerLines = append(answerLines, rest)
			}
			continue
		}

		if m := stepPrefix.FindStringIndex(line); m != nil {
			desc := strings.TrimSpace(line[m[1]:])
			if desc != "" {
				steps = append(steps, ReasoningStep{Index: len(steps) + 1, Description: desc})
			}
			continue
		}

		// Continuation of the previous step.
		if n := len(steps); n > 0 {
			steps[n-1].Description += " " + line
		}
	}

	if !inAnswer {
		return ReasoningResult{}, &MalformedResponseError{Reason: "no final answer marker found", Raw: text}
	}
	answer := strings.TrimSpace(strings.Join(answerLines, "\n"))
	if answer == "" {
		return ReasoningResult{}, &MalformedResponseError{Reason: "final answer is empty", Raw: text}
	}
	if len(steps) == 0 {
		return ReasoningResult{}, &MalformedResponseError{Reason: "no reasoning steps found", Raw: text}
	}

	return ReasoningResult{
		RequestID:   requestID,
		Steps:       steps,
		FinalAnswer: answer,
		CompletedAt: completedAt,
	}, nil
}

// cutMarker strips a case-insensitive FinalAnswerMarker prefix, tolerating
// leading markdown emphasis like "**Final Answer:**".
func cutMarker(line string) (rest string, ok bool) {
	trimmed := strings.TrimLeft(line, "*#> ")
	if len(trimmed) < len(FinalAnswerMarker) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(FinalAnswerMarker)], FinalAnswerMarker) {
		return "", false
	}
	rest = strings.TrimSpace(strings.TrimLeft(trimmed[len(FinalAnswerMarker):], "* "))
	return rest, true
}
