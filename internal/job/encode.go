package job

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/ffmpeg"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/util"
)

type encodeResult struct {
	tempOutput string
	passLog    string
	cancelled  bool
	skipped    bool
	err        error
}

// pass describes one ffmpeg invocation and how its progress is reported.
type pass struct {
	name   string
	args   []string
	status media.Status
	// scale maps the raw percent onto the overall bar.
	scale    func(uint8) uint8
	autoSkip *autoSkip
}

func fullRange(p uint8) uint8  { return p }
func firstHalf(p uint8) uint8  { return p / 2 }
func secondHalf(p uint8) uint8 { return 50 + p/2 }

// encode runs the optional first pass and the main pass into the temp output.
func (r *Runner) encode(ctx context.Context, t Task, info *media.VideoInfo, duration float64, search searchResult) encodeResult {
	cfg := t.Config
	key := t.Input
	temp := ffmpeg.TempOutputPath(t.Output, cfg.TargetFormat)
	res := encodeResult{tempOutput: temp}

	if err := util.EnsureParentDir(temp); err != nil {
		res.err = errors.NewIOError("create output directory for "+temp, err)
		return res
	}

	base := ffmpeg.CompressArgs(cfg, t.Input, search.crf)
	twoPass := cfg.Mode == config.ModeBitrate && cfg.TwoPass

	main := pass{name: "encode", status: media.StatusProcessing, scale: fullRange}
	var initial uint8

	if twoPass {
		res.passLog = ffmpeg.PassLogPrefix(temp)
		r.emit(key, 0, media.StatusPass1, nil)
		first := pass{
			name:   "pass 1",
			args:   ffmpeg.Pass1Args(base, res.passLog),
			status: media.StatusPass1,
			scale:  firstHalf,
		}
		out, err := r.run(ctx, key, first, duration)
		switch {
		case out == runCancelled:
			r.cleanupPassLogs(res.passLog)
			res.cancelled = true
			return res
		case err != nil:
			r.cleanupPassLogs(res.passLog)
			res.err = err
			return res
		}
		r.emit(key, 50, media.StatusPass2, nil)

		main.args = ffmpeg.Pass2Args(base, res.passLog)
		main.status = media.StatusPass2
		main.scale = secondHalf
		initial = 50
	} else {
		main.args = append([]string(nil), base...)
	}
	main.args = append(main.args, temp)

	if cfg.Mode == config.ModeVMAF {
		main.status = media.FoundCRFStatus(search.crf)
		main.scale = secondHalf
		initial = 50
	}
	if cfg.Mode == config.ModeCRF && cfg.CRFAutoSkip && info != nil && info.BitrateKbps != nil {
		main.autoSkip = newAutoSkip(*info.BitrateKbps, cfg.CRFAutoSkipThreshold)
	}

	r.emit(key, initial, main.status, nil)
	out, err := r.run(ctx, key, main, duration)
	switch out {
	case runCancelled:
		removeTemp(temp)
		r.cleanupPassLogs(res.passLog)
		res.cancelled = true
		return res
	case runSkipped:
		if err := util.RemoveWithRetry(temp, 3, 100*time.Millisecond); err != nil {
			logging.Warn("failed to remove partial output", "path", temp, "error", err)
		}
		if err := r.passThrough(t); err != nil {
			res.err = err
			return res
		}
		r.emitSkipped(key, info)
		res.skipped = true
		return res
	}
	if err != nil {
		removeTemp(temp)
		r.cleanupPassLogs(res.passLog)
		res.err = err
		return res
	}

	if err := ffmpeg.Verify(ctx, r.registry, key, r.ffmpegPath, temp); err != nil {
		removeTemp(temp)
		r.cleanupPassLogs(res.passLog)
		res.err = err
		return res
	}
	return res
}

type runOutcome int

const (
	runFinished runOutcome = iota
	runCancelled
	runSkipped
)

// run spawns one ffmpeg pass, streams its progress and classifies how it ended.
func (r *Runner) run(ctx context.Context, key string, p pass, duration float64) (runOutcome, error) {
	if r.isCancelled(ctx, key) {
		return runCancelled, nil
	}

	proc, err := ffmpeg.Start(ctx, r.ffmpegPath, p.args)
	if err != nil {
		return runFinished, err
	}
	r.registry.Register(key, proc.Pid())
	defer r.registry.Unregister(key)

	logging.Debug("ffmpeg started", "path", key, "pass", p.name, "pid", proc.Pid(), "duration", duration)

	var parser ffmpeg.ProgressParser
	outcome := runFinished
	proc.Lines(func(line string) bool {
		if r.cancels.IsCancelled(key) {
			r.registry.Kill(key)
			outcome = runCancelled
			return false
		}
		if !parser.Feed(line) {
			return true
		}

		cur := parser.Current()
		if p.autoSkip.observe(cur, duration) {
			logging.Info("auto-skipping: output bitrate exceeds input",
				"path", key, "bitrate_kbps", cur.BitrateKbps, "input_kbps", p.autoSkip.inputKbps)
			proc.Kill()
			outcome = runSkipped
			return false
		}

		update := reporter.ProgressPayload{
			Path:     key,
			Progress: p.scale(cur.Percent(duration)),
			Status:   p.status,
			Speed:    media.Ptr(cur.Speed),
		}
		if p.status != media.StatusPass1 {
			update.BitrateKbps = media.Ptr(cur.BitrateKbps)
		}
		r.reporter.Progress(update)
		return true
	})

	waitErr := proc.Wait()
	if outcome != runFinished {
		return outcome, nil
	}
	if waitErr != nil {
		if r.isCancelled(ctx, key) {
			return runCancelled, nil
		}
		logging.Error("ffmpeg failed", "path", key, "pass", p.name, "stderr", proc.Tail().String())
		return runFinished, waitErr
	}
	return runFinished, nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove temp output", "path", path, "error", err)
	}
}

// cleanupPassLogs removes every file written under the pass log prefix once
// ffmpeg has had time to close them.
func (r *Runner) cleanupPassLogs(prefix string) {
	if prefix == "" {
		return
	}
	if r.passGrace > 0 {
		time.Sleep(r.passGrace)
	}
	if n := util.RemovePrefixed(filepath.Dir(prefix), filepath.Base(prefix)); n > 0 {
		logging.Debug("removed pass logs", "prefix", prefix, "count", n)
	}
}
