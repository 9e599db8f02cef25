package session

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a history index is out of range.
var ErrNotFound = errors.New("history entry not found")

// History is the append-only, session-scoped log of submissions. Insertion
// order is chronological (oldest first). Append is the only mutation besides
// Clear; entries are never edited or reordered.
type History struct {
	mu      sync.Mutex
	entries []Entry
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{}
}

// Append records an entry at the end of the log.
func (h *History) Append(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
}

// List returns a copy of all entries in chronological order.
func (h *History) List() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Get returns the entry at index (0-based, chronological).
func (h *History) Get(index int) (Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.entries) {
		return Entry{}, ErrNotFound
	}
	return h.entries[index], nil
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear discards all entries, resetting the session log.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
