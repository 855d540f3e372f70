package job

import (
	"fmt"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/util"
)

type bypassResult struct {
	skipped bool
	err     error
}

// bitrateBypass copies inputs that are already below the bitrate floor
// instead of re-encoding them.
func (r *Runner) bitrateBypass(t Task, info *media.VideoInfo) bypassResult {
	cfg := t.Config
	if cfg.Mode != config.ModeBitrate || cfg.MinBitrateThreshold == 0 {
		return bypassResult{}
	}
	if info == nil || info.BitrateKbps == nil || *info.BitrateKbps >= float64(cfg.MinBitrateThreshold) {
		return bypassResult{}
	}

	logging.Info("skipping low bitrate input",
		"path", t.Input, "bitrate_kbps", *info.BitrateKbps, "threshold_kbps", cfg.MinBitrateThreshold)
	if err := r.passThrough(t); err != nil {
		return bypassResult{err: err}
	}
	return bypassResult{skipped: true}
}

// passThrough copies the input to the output and reports the file skipped
// with its original bitrate and info.
func (r *Runner) passThrough(t Task) error {
	if err := util.CopyFile(t.Input, t.Output); err != nil {
		return errors.NewIOError(fmt.Sprintf("copy %s to %s", t.Input, t.Output), err)
	}
	return nil
}

func (r *Runner) emitSkipped(key string, info *media.VideoInfo) {
	var kbps *float64
	if info != nil {
		kbps = info.BitrateKbps
	}
	r.reporter.Progress(reporter.ProgressPayload{
		Path:        key,
		Progress:    100,
		Status:      media.StatusSkipped,
		BitrateKbps: kbps,
		OutputInfo:  info.Clone(),
	})
}
