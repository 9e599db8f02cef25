package session

import (
	"fmt"
	"strings"

	"github.com/mindmate/mindmate/internal/claude"
)

// FormatResult renders a deterministic plain-text report: the numbered
// reasoning steps followed by a delimited final-answer section. The same
// result always yields byte-identical output. A result with no steps is
// rejected; that state is malformed upstream and must not be masked here.
func FormatResult(r claude.ReasoningResult) (string, error) {
	if len(r.Steps) == 0 {
		return "", fmt.Errorf("cannot format result %s: no reasoning steps", r.RequestID)
	}

	var sb strings.Builder
	sb.WriteString("Thinking Steps:\n")
	for i, step := range r.Steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step.Description)
	}
	sb.WriteString("\nFinal Answer:\n")
	sb.WriteString(r.FinalAnswer)
	sb.WriteString("\n")
	return sb.String(), nil
}

// FormatEntry renders the downloadable report for a history entry,
// prepending the problem statement. Failed entries have no report.
func FormatEntry(e Entry) (string, error) {
	if e.Failed() {
		return "", fmt.Errorf("no report for failed submission %s (%s)", e.Request.ID, e.ErrorKind)
	}

	body, err := FormatResult(*e.Result)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Problem:\n%s\n\n%s", e.Request.Text, body), nil
}
