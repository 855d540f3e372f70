package job

import (
	"context"
	"fmt"
	"os"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/util"
	"github.com/five82/vcompress/internal/vmaf"
)

// publish moves the verified temp output over the destination.
func (r *Runner) publish(t Task, temp string) error {
	if err := util.EnsureParentDir(t.Output); err != nil {
		return errors.NewIOError("create output directory for "+t.Output, err)
	}
	if err := os.Remove(t.Output); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("remove existing output "+t.Output, err)
	}
	if err := os.Rename(temp, t.Output); err != nil {
		return errors.NewIOError(fmt.Sprintf("rename %s to %s", temp, t.Output), err)
	}
	return nil
}

// handOff probes the published output and either attaches the search score,
// queues a quality job, or finishes.
func (r *Runner) handOff(ctx context.Context, t Task, inputInfo *media.VideoInfo, duration float64, search searchResult) Outcome {
	cfg := t.Config
	key := t.Input

	outInfo, err := r.probe(ctx, r.ffprobePath, t.Output)
	if err != nil {
		logging.Warn("failed to probe output", "path", t.Output, "error", err)
		outInfo = nil
	}

	out := Outcome{Status: media.StatusDone, InputInfo: inputInfo, OutputInfo: outInfo}
	switch cfg.Mode {
	case config.ModeCRF:
		out.CRF = media.Ptr(cfg.TargetCRF)
	case config.ModeVMAF:
		out.CRF = media.Ptr(search.crf)
	}

	switch {
	case cfg.Mode == config.ModeVMAF:
		if search.score != nil && outInfo != nil {
			device := media.DeviceCPU
			if cfg.VMAFUseCUDA {
				device = media.DeviceCUDA
			}
			outInfo.SetVMAF(*search.score, device, search.model)
			out.VMAF = media.Ptr(*search.score)
		}
		r.emit(key, 100, media.StatusDone, outInfo)

	case cfg.EnableVMAF && r.queue != nil:
		r.queue.Enqueue(&vmaf.Job{
			Key:         key,
			FFmpegPath:  r.ffmpegPath,
			FFprobePath: r.ffprobePath,
			Reference:   t.Input,
			Distorted:   t.Output,
			Config:      cfg.Clone(),
			Duration:    duration,
			Info:        outInfo.Clone(),
		})
		out.Status = media.StatusWaitingForVMAF
		r.emit(key, 100, media.StatusWaitingForVMAF, outInfo)

	default:
		r.emit(key, 100, media.StatusDone, outInfo)
	}

	logging.Info("compression finished", "path", key, "output", t.Output, "status", string(out.Status))
	return out
}
