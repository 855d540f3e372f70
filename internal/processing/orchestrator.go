// Package processing runs a batch of compression jobs and reports the batch
// level events around them.
package processing

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/job"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/metrics"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/util"
	"github.com/five82/vcompress/internal/worker"
)

// Runner executes one compression job. *job.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, t job.Task) job.Outcome
}

// Task pairs an input with its resolved output path.
type Task struct {
	Input  string
	Output string
}

// EncodeResult contains the result of a single file.
type EncodeResult struct {
	Filename   string
	Input      string
	Output     string
	Status     media.Status
	Duration   time.Duration
	InputSize  uint64
	OutputSize uint64
	CRF        *float64
	VMAF       *float64
	Err        error
}

// Succeeded reports whether the file was compressed, including files whose
// quality score is still pending.
func (r EncodeResult) Succeeded() bool {
	return r.Status == media.StatusDone || r.Status == media.StatusWaitingForVMAF
}

// ProcessVideos compresses every task with at most jobs running at once.
// Each job gets its own copy of cfg. A cancelled ctx stops new jobs from
// starting; those files are reported as cancelled.
func ProcessVideos(
	ctx context.Context,
	runner Runner,
	cfg *config.CompressionConfig,
	tasks []Task,
	outputDir string,
	jobs int,
	rep reporter.Reporter,
) ([]EncodeResult, error) {
	rep = reporter.OrNull(rep)
	if len(tasks) == 0 {
		rep.Warning("No files to process")
		return nil, nil
	}

	batchStart := time.Now()
	runID := uuid.NewString()

	fileNames := make([]string, len(tasks))
	for i, t := range tasks {
		fileNames[i] = filepath.Base(t.Input)
	}
	rep.BatchStarted(reporter.BatchStartInfo{
		RunID:      runID,
		TotalFiles: len(tasks),
		FileList:   fileNames,
		OutputDir:  outputDir,
	})
	logging.Info("batch started", "run_id", runID, "files", len(tasks), "jobs", jobs)

	sem := worker.NewSemaphore(jobs)
	progress := worker.NewProgress(len(tasks))
	results := make([]EncodeResult, len(tasks))
	var wg sync.WaitGroup

	for i, t := range tasks {
		if err := sem.Acquire(ctx); err != nil {
			for j := i; j < len(tasks); j++ {
				results[j] = cancelledResult(tasks[j], err)
				reportOutcome(rep, results[j])
			}
			rep.Warning(fmt.Sprintf("Compression cancelled: %v", err))
			break
		}

		rep.FileProgress(reporter.FileProgressContext{
			CurrentFile: i + 1,
			TotalFiles:  len(tasks),
			Path:        t.Input,
		})

		logging.Debug("job admitted", "run_id", runID, "path", t.Input, "free_slots", sem.Available())
		wg.Add(1)
		go func(i int, t Task) {
			defer wg.Done()
			defer sem.Release()

			results[i] = runOne(ctx, runner, cfg, t)
			reportOutcome(rep, results[i])
			logging.Debug("batch progress", "run_id", runID,
				"completed", progress.Done(), "total", len(tasks), "percent", progress.Percent())
		}(i, t)
	}
	wg.Wait()
	logging.Info("batch finished", "run_id", runID, "completed", progress.Completed(), "total", len(tasks))

	rep.BatchComplete(summarize(runID, results, time.Since(batchStart)))
	return results, nil
}

func runOne(ctx context.Context, runner Runner, cfg *config.CompressionConfig, t Task) EncodeResult {
	metrics.JobStarted()
	defer metrics.JobFinished()

	start := time.Now()
	out := runner.Run(ctx, job.Task{Input: t.Input, Output: t.Output, Config: cfg.Clone()})

	res := EncodeResult{
		Filename: filepath.Base(t.Input),
		Input:    t.Input,
		Output:   t.Output,
		Status:   out.Status,
		Duration: time.Since(start),
		CRF:      out.CRF,
		VMAF:     out.VMAF,
		Err:      out.Err,
	}
	res.InputSize, _ = util.GetFileSize(t.Input)
	if res.Succeeded() || res.Status == media.StatusSkipped {
		res.OutputSize, _ = util.GetFileSize(t.Output)
	}
	return res
}

func cancelledResult(t Task, err error) EncodeResult {
	return EncodeResult{
		Filename: filepath.Base(t.Input),
		Input:    t.Input,
		Output:   t.Output,
		Status:   media.StatusCancelled,
		Err:      err,
	}
}

func reportOutcome(rep reporter.Reporter, r EncodeResult) {
	if r.Status == media.StatusError {
		rep.Error(reporter.ReporterError{
			Title:      "Compression Error",
			Message:    fmt.Sprintf("Failed to compress %s: %v", r.Filename, r.Err),
			Context:    fmt.Sprintf("File: %s", r.Input),
			Suggestion: "Check the run log for the ffmpeg output",
		})
	}
	rep.FileComplete(reporter.FileOutcome{
		InputFile:    r.Input,
		OutputFile:   r.Output,
		Status:       r.Status,
		OriginalSize: r.InputSize,
		EncodedSize:  r.OutputSize,
		CRF:          r.CRF,
		VMAF:         r.VMAF,
		TotalTime:    r.Duration,
		Err:          r.Err,
	})
}

func summarize(runID string, results []EncodeResult, elapsed time.Duration) reporter.BatchSummary {
	s := reporter.BatchSummary{
		RunID:         runID,
		TotalFiles:    len(results),
		TotalDuration: elapsed,
	}
	for _, r := range results {
		switch {
		case r.Succeeded():
			s.SuccessfulCount++
			s.TotalOriginalSize += r.InputSize
			s.TotalEncodedSize += r.OutputSize
		case r.Status == media.StatusSkipped:
			s.SkippedCount++
		case r.Status == media.StatusCancelled:
			s.CancelledCount++
		default:
			s.FailedCount++
		}

		var reduction float64
		if r.Succeeded() {
			reduction = util.CalculateSizeReduction(r.InputSize, r.OutputSize)
		}
		s.FileResults = append(s.FileResults, reporter.FileResult{
			Filename:  r.Filename,
			Status:    r.Status,
			Reduction: reduction,
		})
	}
	return s
}
