package vmaf

import (
	"context"
	"time"

	"github.com/five82/vcompress/internal/cancel"
	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/ffmpeg"
	"github.com/five82/vcompress/internal/ffprobe"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/segment"
	"github.com/five82/vcompress/internal/util"
)

// Job is a post-compression quality evaluation. Key is the input path the
// job is reported and cancelled under.
type Job struct {
	Key         string
	FFmpegPath  string
	FFprobePath string
	Reference   string
	Distorted   string
	Config      *config.CompressionConfig
	Duration    float64
	Info        *media.VideoInfo
}

// ProbeFunc reads stream information for a file.
type ProbeFunc func(ctx context.Context, ffprobePath, path string) (*media.VideoInfo, error)

// Evaluator scores a finished encode segment by segment and annotates the
// job's VideoInfo with the result.
type Evaluator struct {
	tracker  ffmpeg.PIDTracker
	cancels  *cancel.Set
	reporter reporter.Reporter
	probe    ProbeFunc
	now      func() time.Time
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithProbe replaces the ffprobe call used to detect the reference codec.
func WithProbe(p ProbeFunc) EvaluatorOption {
	return func(e *Evaluator) { e.probe = p }
}

// WithClock sets the time source that seeds segment jitter.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// NewEvaluator creates an evaluator sharing the process registry and
// cancellation set with the compression jobs.
func NewEvaluator(tracker ffmpeg.PIDTracker, cancels *cancel.Set, rep reporter.Reporter, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		tracker:  tracker,
		cancels:  cancels,
		reporter: reporter.OrNull(rep),
		probe:    ffprobe.GetVideoInfo,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs job to completion or cancellation. Segments that fail to
// score are left out of the average; when none succeed the info carries no
// aggregate score.
func (e *Evaluator) Evaluate(ctx context.Context, job *Job) {
	cfg := job.Config
	info := job.Info
	if info == nil {
		return
	}

	if cfg.MaxResolution.Enabled {
		logging.Info("skipping vmaf: resolution was capped", "path", job.Key)
		return
	}
	if util.SamePath(job.Reference, job.Distorted) {
		logging.Info("skipping vmaf: output is the input", "path", job.Key)
		return
	}

	modelName := ModelFilename(info.Width, info.Height, cfg.VMAFNeg)
	modelPath, ok := FindModel(job.FFmpegPath, modelName)
	if !ok {
		logging.Warn("skipping vmaf", "path", job.Key, "error", errors.NewModelNotFoundError(modelName))
		return
	}

	var windows []segment.Window
	if cfg.VMAFFullComputation {
		windows = segment.FullWindow(job.Duration)
	} else {
		windows = segment.Plan(job.Duration, cfg.Sampling(), e.now())
	}

	device := media.DeviceCPU
	if cfg.VMAFUseCUDA {
		device = media.DeviceCUDA
	}
	info.VMAFTotalSegments = media.Ptr(uint32(len(windows)))
	info.VMAFDetail = []float64{}
	info.VMAFDevice = media.Ptr(device)
	info.VMAFModel = media.Ptr(modelName)
	e.emit(job, info)

	base := Request{
		Distorted:    job.Distorted,
		Reference:    job.Reference,
		ModelPath:    modelPath,
		WindowBoth:   true,
		CustomParams: cfg.CustomVMAFParams,
	}
	if cfg.VMAFUseCUDA {
		base.RefDecoder = e.refDecoder(ctx, job)
	}

	scorer := NewScorer(job.FFmpegPath, e.tracker)
	cudaFailed := false
	var total float64

	for i := range windows {
		if e.cancels.IsCancelled(job.Key) {
			logging.Info("vmaf cancelled", "path", job.Key, "segment", i)
			return
		}

		req := base
		if !cfg.VMAFFullComputation {
			w := windows[i]
			req.Window = &w
		}

		var score float64
		scored := false
		used := media.DeviceCPU

		if cfg.VMAFUseCUDA && !cudaFailed {
			req.CUDA = true
			if score, scored = scorer.Score(ctx, job.Key, req); scored {
				used = media.DeviceCUDA
			} else {
				cudaFailed = true
				logging.Warn("cuda vmaf failed, falling back to cpu", "path", job.Key)
			}
		}

		if !scored {
			if e.cancels.IsCancelled(job.Key) {
				return
			}
			req.CUDA = false
			score, scored = scorer.Score(ctx, job.Key, req)
		}

		if !scored {
			logging.Warn("vmaf segment failed", "path", job.Key, "segment", i)
			continue
		}

		info.VMAFDetail = append(info.VMAFDetail, score)
		info.VMAFDevice = media.Ptr(used)
		total += score
		e.emit(job, info)
	}

	if n := len(info.VMAFDetail); n > 0 {
		info.VMAF = media.Ptr(total / float64(n))
		logging.Info("vmaf complete", "path", job.Key, "score", *info.VMAF, "segments", n)
	}
}

func (e *Evaluator) refDecoder(ctx context.Context, job *Job) string {
	ref, err := e.probe(ctx, job.FFprobePath, job.Reference)
	if err != nil {
		return ""
	}
	dec, _ := CUDADecoder(ref.Codec)
	return dec
}

func (e *Evaluator) emit(job *Job, info *media.VideoInfo) {
	e.reporter.Progress(reporter.ProgressPayload{
		Path:       job.Key,
		Progress:   100,
		Status:     media.StatusEvaluating,
		OutputInfo: info.Clone(),
	})
}
