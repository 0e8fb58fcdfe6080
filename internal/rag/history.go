package rag

import (
	"sync"
	"time"
)

// historyCapacity bounds the ring of recent invocations.
const historyCapacity = 20

// Invocation modes recorded in history entries.
const (
	ModeQuery   = "query"
	ModeCompare = "compare"
)

// HistoryEntry records one answered query or compare invocation.
type HistoryEntry struct {
	Question   string    `json:"question"`
	Mode       string    `json:"mode"`
	Providers  []string  `json:"providers"`
	Backend    string    `json:"backend"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
}

// History keeps the most recent invocations. Once full, recording a new
// entry evicts the oldest.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	limit   int
}

// NewHistory creates a history ring. A non-positive capacity falls back
// to the default of 20.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = historyCapacity
	}
	return &History{limit: capacity}
}

// Record adds an invocation. A zero timestamp is stamped with the
// current time.
func (h *History) Record(e HistoryEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Recent returns the recorded entries, newest first.
func (h *History) Recent() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}
