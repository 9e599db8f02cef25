package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mindmate/mindmate/internal/claude"
	"github.com/mindmate/mindmate/internal/prompt"
)

// State is the controller's position in the per-submission state machine:
// Idle -> Building -> AwaitingModel -> (Succeeded | Failed) -> Idle.
type State string

const (
	StateIdle          State = "idle"
	StateBuilding      State = "building"
	StateAwaitingModel State = "awaiting_model"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// Solver is the model client seam; *claude.Client satisfies it.
type Solver interface {
	Solve(ctx context.Context, req claude.Request) (claude.ReasoningResult, error)
}

// Archiver persists completed entries durably. Optional; archive failures
// are logged, never surfaced to the submitter.
type Archiver interface {
	Archive(e Entry) error
}

// Controller orchestrates one submission at a time: build prompt, call the
// model, record history, format the report. All errors are recovered here;
// nothing propagates past Submit unclassified.
type Controller struct {
	builder *prompt.Builder
	solver  Solver
	history *History
	archive Archiver

	// One outstanding model call per session. Later submissions block
	// until the current one resolves.
	sem *semaphore.Weighted

	mu    sync.Mutex
	state State
}

// NewController wires a controller. archive may be nil.
func NewController(builder *prompt.Builder, solver Solver, history *History, archive Archiver) *Controller {
	return &Controller{
		builder: builder,
		solver:  solver,
		history: history,
		archive: archive,
		sem:     semaphore.NewWeighted(1),
		state:   StateIdle,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// History exposes the session log read-only to the boundary layer.
func (c *Controller) History() *History {
	return c.history
}

// Submit runs one full submission. Invalid input is rejected before any
// network call and leaves no history entry; model failures (after the
// client's bounded retries) are recorded as failed entries for
// auditability. The controller returns to Idle before Submit returns.
func (c *Controller) Submit(ctx context.Context, problemText string) Outcome {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return Outcome{ErrKind: KindInternal, Message: "submission canceled: " + err.Error()}
	}
	defer c.sem.Release(1)
	defer c.setState(StateIdle)

	c.setState(StateBuilding)
	req := ProblemRequest{
		ID:          uuid.New().String(),
		Text:        problemText,
		SubmittedAt: time.Now().UTC(),
	}

	modelReq, err := c.builder.Build(req.ID, problemText)
	if err != nil {
		c.setState(StateFailed)
		return Outcome{ErrKind: KindInvalidInput, Message: err.Error()}
	}
	c.setState(StateAwaitingModel)
	result, err := c.solver.Solve(ctx, modelReq)
	if err != nil {
		kind := classify(err)
		entry := Entry{Request: req, ErrorKind: kind, ErrorMsg: err.Error()}
		c.record(entry)
		c.setState(StateFailed)
		slog.Warn("submission failed", "request_id", req.ID, "kind", kind, "error", err)
		return Outcome{ErrKind: kind, Message: err.Error()}
	}

	entry := Entry{Request: req, Result: &result}
	c.record(entry)

	report, err := FormatEntry(entry)
	if err != nil {
		// Unreachable while the client enforces non-empty steps.
		c.setState(StateFailed)
		return Outcome{ErrKind: KindInternal, Message: err.Error()}
	}

	c.setState(StateSucceeded)
	slog.Info("submission succeeded", "request_id", req.ID, "steps", len(result.Steps))
	return Outcome{Result: &result, Report: report}
}

func (c *Controller) record(e Entry) {
	c.history.Append(e)
	if c.archive == nil {
		return
	}
	if err := c.archive.Archive(e); err != nil {
		slog.Warn("archiving entry failed", "request_id", e.Request.ID, "error", err)
	}
}

// classify maps adapter errors onto the boundary error taxonomy.
func classify(err error) ErrorKind {
	var (
		authErr      *claude.AuthError
		rateErr      *claude.RateLimitError
		netErr       *claude.NetworkError
		malformedErr *claude.MalformedResponseError
	)
	switch {
	case errors.Is(err, prompt.ErrEmptyProblem):
		return KindInvalidInput
	case errors.As(err, &authErr):
		return KindAuth
	case errors.As(err, &rateErr):
		return KindRateLimit
	case errors.As(err, &malformedErr):
		return KindMalformedResponse
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindInternal
	}
}
