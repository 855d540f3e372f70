package tq

import "sync"

// HistoryLimit is how many derived (CRF, score) pairs are retained.
const HistoryLimit = 50

// History keeps the CRFs chosen by recent searches, oldest first.
type History struct {
	mu      sync.RWMutex
	entries []Sample
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{entries: make([]Sample, 0, HistoryLimit)}
}

// Push appends a result, evicting the oldest entry beyond HistoryLimit.
func (h *History) Push(crf, score float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Sample{CRF: crf, Score: score})
	if over := len(h.entries) - HistoryLimit; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
}

// Entries returns a copy of the history.
func (h *History) Entries() []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Sample(nil), h.entries...)
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
