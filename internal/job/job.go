// Package job drives a single input file through compression: bitrate
// bypass, optional CRF search, one or two encoder passes, verification,
// publish and the hand-off to quality scoring.
package job

import (
	"context"
	"time"

	"github.com/five82/vcompress/internal/cancel"
	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/ffprobe"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/registry"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/tq"
	"github.com/five82/vcompress/internal/vmaf"
)

// PassLogGrace is how long ffmpeg is given to release its pass logs before
// they are removed.
const PassLogGrace = 200 * time.Millisecond

// Queue receives post-compression quality jobs and keeps the history of
// searched CRF values.
type Queue interface {
	Enqueue(job *vmaf.Job)
	History() *tq.History
}

// Task is one input to compress. Input doubles as the job key.
type Task struct {
	Input  string
	Output string
	Config *config.CompressionConfig
}

// Outcome is the terminal state of a run.
type Outcome struct {
	Status     media.Status
	CRF        *float64
	VMAF       *float64
	InputInfo  *media.VideoInfo
	OutputInfo *media.VideoInfo
	Err        error
}

// Searcher finds a CRF for req. It is swapped out in tests.
type Searcher func(ctx context.Context, req SearchRequest) (tq.Result, error)

// Runner executes tasks. A Runner is safe for concurrent use; all shared
// state lives in the registry, cancellation set and queue it was built with.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
	registry    *registry.Registry
	cancels     *cancel.Set
	queue       Queue
	reporter    reporter.Reporter

	probe     vmaf.ProbeFunc
	search    Searcher
	now       func() time.Time
	tempDir   string
	passGrace time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithProbe replaces the ffprobe call.
func WithProbe(p vmaf.ProbeFunc) Option {
	return func(r *Runner) { r.probe = p }
}

// WithSearcher replaces the sample based CRF search.
func WithSearcher(s Searcher) Option {
	return func(r *Runner) { r.search = s }
}

// WithClock sets the time source that seeds sample placement.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithTempDir sets where search samples are written.
func WithTempDir(dir string) Option {
	return func(r *Runner) { r.tempDir = dir }
}

// WithPassLogGrace overrides PassLogGrace.
func WithPassLogGrace(d time.Duration) Option {
	return func(r *Runner) { r.passGrace = d }
}

// New creates a Runner. queue may be nil when quality scoring is never enabled.
func New(ffmpegPath string, reg *registry.Registry, cancels *cancel.Set, queue Queue, rep reporter.Reporter, opts ...Option) *Runner {
	r := &Runner{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobe.ToolPath(ffmpegPath),
		registry:    reg,
		cancels:     cancels,
		queue:       queue,
		reporter:    reporter.OrNull(rep),
		probe:       ffprobe.GetVideoInfo,
		now:         time.Now,
		passGrace:   PassLogGrace,
	}
	r.search = r.searchCRF
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run takes t through every stage and returns how it ended. Every terminal
// status is also emitted as a progress update.
func (r *Runner) Run(ctx context.Context, t Task) Outcome {
	key := t.Input
	cfg := t.Config
	if r.isCancelled(ctx, key) {
		return r.cancelled(key, nil)
	}

	inputInfo, err := r.probe(ctx, r.ffprobePath, t.Input)
	if err != nil {
		logging.Warn("failed to probe input", "path", key, "error", err)
		inputInfo = nil
	}
	var duration float64
	if inputInfo != nil {
		duration = inputInfo.DurationSec
	}

	if b := r.bitrateBypass(t, inputInfo); b.skipped || b.err != nil {
		if b.err != nil {
			return r.fail(key, inputInfo, b.err)
		}
		r.emitSkipped(key, inputInfo)
		return Outcome{Status: media.StatusSkipped, InputInfo: inputInfo, OutputInfo: inputInfo}
	}

	var search searchResult
	if cfg.Mode == config.ModeVMAF {
		search = r.runSearch(ctx, t, inputInfo, duration)
		if search.cancelled {
			return r.cancelled(key, inputInfo)
		}
	}

	enc := r.encode(ctx, t, inputInfo, duration, search)
	switch {
	case enc.cancelled:
		return r.cancelled(key, inputInfo)
	case enc.skipped:
		return Outcome{Status: media.StatusSkipped, InputInfo: inputInfo, OutputInfo: inputInfo}
	case enc.err != nil:
		return r.fail(key, inputInfo, enc.err)
	}

	if err := r.publish(t, enc.tempOutput); err != nil {
		removeTemp(enc.tempOutput)
		r.cleanupPassLogs(enc.passLog)
		return r.fail(key, inputInfo, err)
	}

	out := r.handOff(ctx, t, inputInfo, duration, search)
	r.cleanupPassLogs(enc.passLog)
	return out
}

func (r *Runner) emit(key string, pct uint8, status media.Status, info *media.VideoInfo) {
	r.reporter.Progress(reporter.ProgressPayload{
		Path:       key,
		Progress:   pct,
		Status:     status,
		OutputInfo: info.Clone(),
	})
}

func (r *Runner) fail(key string, inputInfo *media.VideoInfo, err error) Outcome {
	logging.Error("compression failed", "path", key, "error", err)
	r.emit(key, 0, media.StatusError, nil)
	return Outcome{Status: media.StatusError, InputInfo: inputInfo, Err: err}
}

func (r *Runner) cancelled(key string, inputInfo *media.VideoInfo) Outcome {
	if r.cancels.Take(key) {
		logging.Info("compression cancelled by user", "path", key)
	} else {
		logging.Info("compression stopped", "path", key)
	}
	r.emit(key, 0, media.StatusCancelled, nil)
	return Outcome{Status: media.StatusCancelled, InputInfo: inputInfo}
}

// isCancelled reports a user cancellation of key or of the whole run.
func (r *Runner) isCancelled(ctx context.Context, key string) bool {
	return ctx.Err() != nil || r.cancels.IsCancelled(key)
}
