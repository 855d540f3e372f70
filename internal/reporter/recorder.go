package reporter

import (
	"sync"

	"github.com/five82/vcompress/internal/media"
)

// Recorder keeps every progress and search update in memory. It backs the
// synchronous library API and is handy in tests.
type Recorder struct {
	NullReporter

	mu       sync.Mutex
	progress []ProgressPayload
	search   []SearchPayload
	warnings []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Progress(update ProgressPayload) {
	update.OutputInfo = update.OutputInfo.Clone()
	r.mu.Lock()
	r.progress = append(r.progress, update)
	r.mu.Unlock()
}

func (r *Recorder) SearchProgress(update SearchPayload) {
	r.mu.Lock()
	r.search = append(r.search, update)
	r.mu.Unlock()
}

func (r *Recorder) Warning(message string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, message)
	r.mu.Unlock()
}

// ProgressUpdates returns a snapshot of recorded progress updates.
func (r *Recorder) ProgressUpdates() []ProgressPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressPayload(nil), r.progress...)
}

// SearchUpdates returns a snapshot of recorded search updates.
func (r *Recorder) SearchUpdates() []SearchPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SearchPayload(nil), r.search...)
}

// Warnings returns recorded warnings.
func (r *Recorder) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Statuses returns the status sequence recorded for path.
func (r *Recorder) Statuses(path string) []media.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []media.Status
	for _, p := range r.progress {
		if p.Path == path {
			out = append(out, p.Status)
		}
	}
	return out
}

// Last returns the most recent progress update for path.
func (r *Recorder) Last(path string) (ProgressPayload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.progress) - 1; i >= 0; i-- {
		if r.progress[i].Path == path {
			return r.progress[i], true
		}
	}
	return ProgressPayload{}, false
}
