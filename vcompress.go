// Package vcompress provides a Go library for batch video compression on
// top of ffmpeg.
//
// A Compressor runs each input through an optional bitrate bypass, an
// optional VMAF-targeted CRF search, one or two encoder passes and a
// verification step, then hands finished files to a single background
// quality scorer.
//
// Basic usage:
//
//	c, err := vcompress.New(
//	    vcompress.WithMode(vcompress.ModeVMAF),
//	    vcompress.WithTargetVMAF(95),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	result, err := c.Compress(ctx, "input.mkv", "output/", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Compressed: %s, reduction: %.1f%%\n",
//	    result.OutputFile, result.SizeReductionPercent)
package vcompress

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/five82/vcompress/internal/cancel"
	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/discovery"
	"github.com/five82/vcompress/internal/events"
	"github.com/five82/vcompress/internal/job"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/metrics"
	"github.com/five82/vcompress/internal/processing"
	"github.com/five82/vcompress/internal/registry"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/scheduler"
	"github.com/five82/vcompress/internal/util"
	"github.com/five82/vcompress/internal/vmaf"
)

// Re-export mode types
type Mode = config.Mode

const (
	ModeCopy    = config.ModeCopy
	ModeBitrate = config.ModeBitrate
	ModeCRF     = config.ModeCRF
	ModeVMAF    = config.ModeVMAF
)

// ParseMode converts a mode string to a Mode value.
// Valid values are "copy", "bitrate", "crf" and "vmaf" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	return config.ParseMode(s)
}

// Config is the full set of compression settings.
type Config = config.CompressionConfig

// DefaultConfig returns the settings New starts from.
func DefaultConfig() *Config {
	return config.Default()
}

// Status is the user facing state of a file.
type Status = media.Status

const (
	StatusDone           = media.StatusDone
	StatusError          = media.StatusError
	StatusSkipped        = media.StatusSkipped
	StatusCancelled      = media.StatusCancelled
	StatusWaitingForVMAF = media.StatusWaitingForVMAF
)

// Reporter receives every progress callback. Use it instead of an
// EventHandler when synchronous delivery is needed.
type Reporter = reporter.Reporter

// Compressor is the main entry point for video compression. It owns the
// process registry, the cancellation set and the quality-scoring scheduler,
// so a single Compressor should be shared by every job that may overlap.
type Compressor struct {
	cfg        *config.CompressionConfig
	ffmpegPath string
	jobs       int

	registry  *registry.Registry
	cancels   *cancel.Set
	bus       *events.Bus
	reporter  reporter.Reporter
	scheduler *scheduler.Scheduler
	stop      context.CancelFunc
	closeOnce sync.Once
}

// Task is one input with an optional explicit output path.
type Task struct {
	Input  string
	Output string
}

// Result contains the result of a single file.
type Result struct {
	InputFile            string
	OutputFile           string
	Status               Status
	OriginalSize         uint64
	EncodedSize          uint64
	SizeReductionPercent float64
	CRF                  *float64
	VMAF                 *float64
	Err                  error
}

// BatchResult contains the result of a batch.
type BatchResult struct {
	Results            []Result
	SuccessfulCount    int
	SkippedCount       int
	FailedCount        int
	CancelledCount     int
	TotalFiles         int
	TotalSizeReduction float64
}

type options struct {
	cfg        *config.CompressionConfig
	ffmpegPath string
	jobs       int
	reporter   reporter.Reporter
}

// Option configures the compressor.
type Option func(*options)

// New creates a Compressor and starts its quality-scoring scheduler. Call
// Close when done.
func New(opts ...Option) (*Compressor, error) {
	o := &options{
		cfg:        config.Default(),
		ffmpegPath: "ffmpeg",
		jobs:       util.DefaultJobs(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.jobs < 1 {
		o.jobs = 1
	}
	if !o.cfg.Mode.Known() {
		logging.Warn("unknown compression mode, encoding without rate control", "mode", o.cfg.Mode)
	}

	cancels := cancel.NewSet()
	c := &Compressor{
		cfg:        o.cfg,
		ffmpegPath: o.ffmpegPath,
		jobs:       o.jobs,
		registry:   registry.New(registry.WithCancelCheck(cancels.IsCancelled)),
		cancels:    cancels,
		bus:        events.New(),
	}

	var reps []reporter.Reporter
	if o.reporter != nil {
		reps = append(reps, o.reporter)
	}
	reps = append(reps, metrics.NewReporter(), events.NewReporter(c.bus))
	c.reporter = reporter.NewCompositeReporter(reps...)

	ctx, stop := context.WithCancel(context.Background())
	c.stop = stop
	evaluator := vmaf.NewEvaluator(c.registry, c.cancels, c.reporter)
	c.scheduler = scheduler.New(ctx, evaluator, c.reporter)

	return c, nil
}

// WithConfig replaces the whole configuration. Later options still apply
// on top of it.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.cfg = cfg.Clone()
		}
	}
}

// WithFFmpegPath sets the ffmpeg binary. ffprobe is looked up next to it.
func WithFFmpegPath(path string) Option {
	return func(o *options) {
		o.ffmpegPath = path
	}
}

// WithMode sets the rate-control mode.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.cfg.Mode = m
	}
}

// WithTargetCRF sets the CRF used in crf mode.
func WithTargetCRF(crf float64) Option {
	return func(o *options) {
		o.cfg.TargetCRF = crf
	}
}

// WithTargetVMAF sets the quality target for the CRF search in vmaf mode.
func WithTargetVMAF(score float64) Option {
	return func(o *options) {
		o.cfg.TargetVMAF = score
	}
}

// WithTargetBitrate sets the bitrate in kbps used in bitrate mode.
func WithTargetBitrate(kbps uint32) Option {
	return func(o *options) {
		o.cfg.TargetBitrate = kbps
	}
}

// WithVideoEncoder sets the ffmpeg video encoder, e.g. "libx265".
func WithVideoEncoder(name string) Option {
	return func(o *options) {
		o.cfg.VideoEncoder = name
	}
}

// WithTwoPass enables two-pass encoding in bitrate mode.
func WithTwoPass(enable bool) Option {
	return func(o *options) {
		o.cfg.TwoPass = enable
	}
}

// WithVMAFScoring enables quality scoring of finished files.
func WithVMAFScoring(enable bool) Option {
	return func(o *options) {
		o.cfg.EnableVMAF = enable
	}
}

// WithJobs sets how many files are compressed at once.
func WithJobs(n int) Option {
	return func(o *options) {
		o.jobs = n
	}
}

// WithReporter adds a synchronous reporter that receives every update.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// Compress compresses a single file. output is either a directory, in which
// case the name is derived from the input, or a file path with a video
// extension.
func (c *Compressor) Compress(ctx context.Context, input, output string, handler EventHandler) (*Result, error) {
	target, err := util.ResolveOutputArg(input, output)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output: %w", err)
	}
	task := Task{Input: input}
	if target.FilenameOverride != "" {
		task.Output = filepath.Join(target.OutputDir, target.FilenameOverride)
	}

	batch, err := c.CompressBatch(ctx, []Task{task}, target.OutputDir, handler)
	if err != nil {
		return nil, err
	}
	if len(batch.Results) == 0 {
		return nil, fmt.Errorf("no files were compressed")
	}

	r := batch.Results[0]
	return &r, r.Err
}

// CompressBatch compresses tasks with up to the configured number of jobs
// running at once. Tasks without an Output are written to outputDir. The
// returned error covers the batch itself; per-file failures are in the
// results.
func (c *Compressor) CompressBatch(ctx context.Context, tasks []Task, outputDir string, handler EventHandler) (*BatchResult, error) {
	if len(tasks) == 0 {
		return &BatchResult{}, nil
	}
	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	procTasks := make([]processing.Task, len(tasks))
	for i, t := range tasks {
		// Marks left over from an earlier batch must not cancel this one.
		c.cancels.Clear(t.Input)
		out := t.Output
		if out == "" {
			out = util.ResolveOutputPath(t.Input, outputDir, c.cfg.Suffix, c.cfg.TargetFormat)
		}
		procTasks[i] = processing.Task{Input: t.Input, Output: out}
	}

	rep := c.reporter
	if handler != nil {
		rep = reporter.NewCompositeReporter(c.reporter, events.NewReporter(handlerPublisher(handler)))
	}

	runner := job.New(c.ffmpegPath, c.registry, c.cancels, c.scheduler, rep)
	results, err := processing.ProcessVideos(ctx, runner, c.cfg, procTasks, outputDir, c.jobs, rep)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{TotalFiles: len(tasks)}
	var totalInputSize, totalOutputSize uint64
	for _, r := range results {
		res := Result{
			InputFile:    r.Input,
			OutputFile:   r.Output,
			Status:       r.Status,
			OriginalSize: r.InputSize,
			EncodedSize:  r.OutputSize,
			CRF:          r.CRF,
			VMAF:         r.VMAF,
			Err:          r.Err,
		}
		switch {
		case r.Succeeded():
			res.SizeReductionPercent = util.CalculateSizeReduction(r.InputSize, r.OutputSize)
			batch.SuccessfulCount++
			totalInputSize += r.InputSize
			totalOutputSize += r.OutputSize
		case r.Status == media.StatusSkipped:
			batch.SkippedCount++
		case r.Status == media.StatusCancelled:
			batch.CancelledCount++
		default:
			batch.FailedCount++
		}
		batch.Results = append(batch.Results, res)
	}
	batch.TotalSizeReduction = util.CalculateSizeReduction(totalInputSize, totalOutputSize)

	return batch, nil
}

// Cancel stops the work for input: its ffmpeg process is killed, a running
// search or encode unwinds as cancelled, a file still waiting for a free job
// slot in the current batch finishes as cancelled without starting, and a
// queued quality job is dropped. Unknown paths are ignored.
func (c *Compressor) Cancel(input string) {
	c.cancels.Mark(input)
	c.registry.Kill(input)
	c.scheduler.Cancel(input)
}

// CancelAll cancels every file with a live ffmpeg process, the running
// quality job and every queued one.
func (c *Compressor) CancelAll() {
	for _, e := range c.registry.Entries() {
		c.cancels.Mark(e.Key)
	}
	if key, ok := c.scheduler.Running(); ok {
		c.cancels.Mark(key)
	}
	c.scheduler.CancelAll()
	c.registry.KillAll()
}

// Subscribe registers handler for every event of every batch run by c,
// including quality results that arrive after Compress has returned.
// Delivery is asynchronous. Call the returned function to unsubscribe.
func (c *Compressor) Subscribe(handler EventHandler) func() {
	return subscribeAll(c.bus, handler)
}

// Close waits for queued quality jobs to finish and stops the scheduler.
func (c *Compressor) Close() {
	c.closeOnce.Do(func() {
		c.scheduler.Close()
		c.scheduler.Wait()
		c.stop()
	})
}

// FindVideos finds video files in a directory.
func FindVideos(dir string) ([]string, error) {
	res, err := discovery.FindVideos(dir, false)
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}
