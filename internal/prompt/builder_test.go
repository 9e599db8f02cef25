package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/mindmate/mindmate/internal/claude"
)

func TestBuild(t *testing.T) {
	b := New()

	req, err := b.Build("req-1", "What is 12 * 7?")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if req.ID != "req-1" {
		t.Errorf("ID = %q, want %q", req.ID, "req-1")
	}
	if !strings.Contains(req.User, "What is 12 * 7?") {
		t.Errorf("User = %q, want it to contain the problem text", req.User)
	}
	if !strings.Contains(req.System, claude.FinalAnswerMarker) {
		t.Errorf("System = %q, want it to name the final answer marker", req.System)
	}
	if !strings.Contains(req.System, "step by step") {
		t.Errorf("System = %q, want step-by-step instruction", req.System)
	}
}

func TestBuild_TrimsWhitespace(t *testing.T) {
	b := New()

	req, err := b.Build("req-1", "  \n solve x^2 = 4 \t")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(req.User, "solve x^2 = 4") {
		t.Errorf("User = %q, want trimmed problem text", req.User)
	}
	if strings.HasSuffix(req.User, " ") || strings.HasSuffix(req.User, "\t") {
		t.Errorf("User = %q, trailing whitespace not trimmed", req.User)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	b := New()

	for _, input := range []string{"", "   ", "\n\t  \n"} {
		_, err := b.Build("req-1", input)
		if !errors.Is(err, ErrEmptyProblem) {
			t.Errorf("Build(%q) err = %v, want ErrEmptyProblem", input, err)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := New()

	first, err := b.Build("req-1", "prove it")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := b.Build("req-1", "prove it")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first != second {
		t.Errorf("Build is not deterministic: %+v != %+v", first, second)
	}
}
