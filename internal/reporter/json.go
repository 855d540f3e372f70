package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/util"
)

// JSONReporter outputs NDJSON events, one object per line.
type JSONReporter struct {
	writer io.Writer
	mu     sync.Mutex
	last   map[string]progressMark
	now    func() time.Time
}

type progressMark struct {
	bucket int
	status media.Status
	at     time.Time
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer: w,
		last:   make(map[string]progressMark),
		now:    time.Now,
	}
}

func (r *JSONReporter) timestamp() int64 {
	return r.now().Unix()
}

func (r *JSONReporter) write(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write(map[string]any{
		"type":        "batch_started",
		"run_id":      info.RunID,
		"total_files": info.TotalFiles,
		"file_list":   info.FileList,
		"output_dir":  info.OutputDir,
		"timestamp":   r.timestamp(),
	})
}

func (r *JSONReporter) FileProgress(context FileProgressContext) {
	r.write(map[string]any{
		"type":         "file_progress",
		"current_file": context.CurrentFile,
		"total_files":  context.TotalFiles,
		"path":         context.Path,
		"timestamp":    r.timestamp(),
	})
}

// shouldEmit throttles progress per path: a status change always passes,
// otherwise the percent must advance or minInterval must have elapsed.
func (r *JSONReporter) shouldEmit(update ProgressPayload) bool {
	const minInterval = 5 * time.Second

	now := r.now()
	bucket := int(update.Progress)

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, seen := r.last[update.Path]
	emit := !seen ||
		prev.status != update.Status ||
		bucket > prev.bucket ||
		now.Sub(prev.at) >= minInterval ||
		update.Status.Terminal()
	if !emit {
		return false
	}

	if update.Status.Terminal() {
		delete(r.last, update.Path)
	} else {
		r.last[update.Path] = progressMark{bucket: bucket, status: update.Status, at: now}
	}
	return true
}

func (r *JSONReporter) Progress(update ProgressPayload) {
	if !r.shouldEmit(update) {
		return
	}

	event := map[string]any{
		"type":      "progress",
		"path":      update.Path,
		"progress":  update.Progress,
		"status":    update.Status,
		"timestamp": r.timestamp(),
	}
	if update.Speed != nil {
		event["speed"] = *update.Speed
	}
	if update.BitrateKbps != nil {
		event["bitrate_kbps"] = *update.BitrateKbps
	}
	if update.OutputInfo != nil {
		event["output_info"] = update.OutputInfo
	}
	r.write(event)
}

func (r *JSONReporter) SearchProgress(update SearchPayload) {
	event := map[string]any{
		"type":           "search_progress",
		"path":           update.Path,
		"iteration":      update.Iteration,
		"max_iterations": update.MaxIterations,
		"current_crf":    update.CurrentCRF,
		"current_vmaf":   update.CurrentVMAF,
		"target_vmaf":    update.TargetVMAF,
		"samples":        update.Samples,
		"timestamp":      r.timestamp(),
	}
	if update.BestCRF != nil {
		event["best_crf"] = *update.BestCRF
	}
	if update.BestVMAF != nil {
		event["best_vmaf"] = *update.BestVMAF
	}
	r.write(event)
}

func (r *JSONReporter) FileComplete(outcome FileOutcome) {
	event := map[string]any{
		"type":                   "file_complete",
		"input_file":             outcome.InputFile,
		"output_file":            outcome.OutputFile,
		"status":                 outcome.Status,
		"original_size":          outcome.OriginalSize,
		"encoded_size":           outcome.EncodedSize,
		"duration_seconds":       int64(outcome.TotalTime.Seconds()),
		"size_reduction_percent": util.CalculateSizeReduction(outcome.OriginalSize, outcome.EncodedSize),
		"timestamp":              r.timestamp(),
	}
	if outcome.CRF != nil {
		event["crf"] = *outcome.CRF
	}
	if outcome.VMAF != nil {
		event["vmaf"] = *outcome.VMAF
	}
	if outcome.Err != nil {
		event["error"] = outcome.Err.Error()
	}
	r.write(event)
}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	reduction := util.CalculateSizeReduction(summary.TotalOriginalSize, summary.TotalEncodedSize)

	r.write(map[string]any{
		"type":                         "batch_complete",
		"run_id":                       summary.RunID,
		"successful_count":             summary.SuccessfulCount,
		"skipped_count":                summary.SkippedCount,
		"failed_count":                 summary.FailedCount,
		"cancelled_count":              summary.CancelledCount,
		"total_files":                  summary.TotalFiles,
		"total_original_size":          summary.TotalOriginalSize,
		"total_encoded_size":           summary.TotalEncodedSize,
		"total_duration_seconds":       int64(summary.TotalDuration.Seconds()),
		"total_size_reduction_percent": reduction,
		"timestamp":                    r.timestamp(),
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]any{
		"type":      "warning",
		"message":   message,
		"timestamp": r.timestamp(),
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]any{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
		"timestamp":  r.timestamp(),
	})
}

// Verbose messages are not part of the event stream.
func (r *JSONReporter) Verbose(string) {}
