// Package registry tracks which OS process is currently working on each input
// file so that a cancellation can terminate it.
//
// A key has at most one live process at a time. Sample encodes, scoring runs
// and the main encode for a file all register under the same key in turn.
package registry

import (
	"sync"
	"time"

	"github.com/five82/vcompress/internal/logging"
)

func log() *logging.Logger { return logging.Global().WithComponent("registry") }

// Entry describes a registered process.
type Entry struct {
	PID       int
	Key       string
	StartTime time.Time
}

// Registry maps job keys to live process ids.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	cancelled func(key string) bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithCancelCheck makes Register kill a new process straight away when fn
// reports its key as cancelled. This covers a cancel that arrives between
// a process starting and its registration.
func WithCancelCheck(fn func(key string) bool) Option {
	return func(r *Registry) {
		r.cancelled = fn
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{entries: make(map[string]Entry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records pid as the process for key, replacing any previous entry.
func (r *Registry) Register(key string, pid int) {
	r.mu.Lock()
	r.entries[key] = Entry{PID: pid, Key: key, StartTime: time.Now()}
	r.mu.Unlock()
	log().Debug("registered process", "key", key, "pid", pid)

	if r.cancelled != nil && r.cancelled(key) {
		log().Info("key cancelled before registration, killing", "key", key, "pid", pid)
		r.Kill(key)
	}
}

// Unregister forgets the process for key.
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// Lookup returns the registered pid for key.
func (r *Registry) Lookup(key string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e.PID, ok
}

// Entries returns a snapshot of the registered processes.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Kill terminates the process registered for key. It returns false when no
// process is registered. Killing a process that already exited is a no-op, so
// repeated calls are safe.
func (r *Registry) Kill(key string) bool {
	pid, ok := r.Lookup(key)
	if !ok {
		return false
	}
	if err := killPID(pid); err != nil {
		log().Warn("failed to kill process", "key", key, "pid", pid, "error", err)
	} else {
		log().Info("killed process", "key", key, "pid", pid)
	}
	return true
}

// KillAll terminates every registered process and returns how many were signalled.
func (r *Registry) KillAll() int {
	n := 0
	for _, e := range r.Entries() {
		if r.Kill(e.Key) {
			n++
		}
	}
	return n
}
