package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const (
	StatusSolved = "solved"
	StatusFailed = "failed"
)

// Record is one archived submission, self-contained and keyed by the
// problem request ID. Failed submissions are archived too, with the error
// kind recorded for auditability.
type Record struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Problem      string    `json:"problem"`
	StepsJSON    string    `json:"steps_json"` // JSON array stored as text
	FinalAnswer  string    `json:"final_answer"`
	Status       string    `json:"status"` // "solved" or "failed"
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}
