// Package reporter provides progress reporting interfaces and implementations.
package reporter

import (
	"time"

	"github.com/five82/vcompress/internal/media"
)

// ProgressPayload is a per-file state notification. It carries no control
// semantics; consumers may drop or coalesce updates.
type ProgressPayload struct {
	Path        string
	Progress    uint8
	Status      media.Status
	Speed       *float64
	BitrateKbps *float64
	OutputInfo  *media.VideoInfo
}

// SearchSample is one probed (CRF, score) pair.
type SearchSample struct {
	CRF  float64 `json:"crf"`
	VMAF float64 `json:"vmaf"`
}

// SearchPayload describes the state of a CRF search after a probe.
type SearchPayload struct {
	Path          string
	Iteration     int
	MaxIterations int
	CurrentCRF    float64
	CurrentVMAF   float64
	TargetVMAF    float64
	BestCRF       *float64
	BestVMAF      *float64
	Samples       []SearchSample
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	RunID      string
	TotalFiles int
	FileList   []string
	OutputDir  string
}

// FileProgressContext contains current file index within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
	Path        string
}

// FileOutcome is the final state of one input.
type FileOutcome struct {
	InputFile    string
	OutputFile   string
	Status       media.Status
	OriginalSize uint64
	EncodedSize  uint64
	CRF          *float64
	VMAF         *float64
	TotalTime    time.Duration
	Err          error
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	RunID             string
	SuccessfulCount   int
	SkippedCount      int
	FailedCount       int
	CancelledCount    int
	TotalFiles        int
	TotalOriginalSize uint64
	TotalEncodedSize  uint64
	TotalDuration     time.Duration
	FileResults       []FileResult
}

// FileResult contains per-file encoding result.
type FileResult struct {
	Filename  string
	Status    media.Status
	Reduction float64
}
