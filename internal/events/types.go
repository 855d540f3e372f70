package events

import (
	"github.com/five82/vcompress/internal/reporter"
)

// Event type constants for kelindar/event.
const (
	TypeProgress uint32 = iota + 1
	TypeSearchProgress
	TypeFileComplete
	TypeBatchStarted
	TypeBatchComplete
	TypeWarning
	TypeError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ProgressEvent carries a per-file status update.
type ProgressEvent struct {
	reporter.ProgressPayload
}

// Type returns the event type identifier for ProgressEvent.
func (e ProgressEvent) Type() uint32 { return TypeProgress }

// SearchProgressEvent carries the state of a CRF search.
type SearchProgressEvent struct {
	reporter.SearchPayload
}

// Type returns the event type identifier for SearchProgressEvent.
func (e SearchProgressEvent) Type() uint32 { return TypeSearchProgress }

// FileCompleteEvent is published once per input when its job ends.
type FileCompleteEvent struct {
	reporter.FileOutcome
}

// Type returns the event type identifier for FileCompleteEvent.
func (e FileCompleteEvent) Type() uint32 { return TypeFileComplete }

// BatchStartedEvent is published before the first job of a batch starts.
type BatchStartedEvent struct {
	reporter.BatchStartInfo
}

// Type returns the event type identifier for BatchStartedEvent.
func (e BatchStartedEvent) Type() uint32 { return TypeBatchStarted }

// BatchCompleteEvent is published after every job of a batch has ended.
type BatchCompleteEvent struct {
	reporter.BatchSummary
}

// Type returns the event type identifier for BatchCompleteEvent.
func (e BatchCompleteEvent) Type() uint32 { return TypeBatchComplete }

// WarningEvent carries a non-fatal problem.
type WarningEvent struct {
	Message string
}

// Type returns the event type identifier for WarningEvent.
func (e WarningEvent) Type() uint32 { return TypeWarning }

// ErrorEvent carries a job failure.
type ErrorEvent struct {
	reporter.ReporterError
}

// Type returns the event type identifier for ErrorEvent.
func (e ErrorEvent) Type() uint32 { return TypeError }
