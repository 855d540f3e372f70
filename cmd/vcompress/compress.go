package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/five82/vcompress"
	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/discovery"
	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/metrics"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/util"
)

// compressArgs holds the parsed arguments for the compress command.
type compressArgs struct {
	inputPath  string
	outputPath string
	configFile string
	logDir     string
	noLog      bool
	logFormat  string
	verbose    bool
	jsonOutput bool
	metrics    string
	ffmpegPath string
	jobs       int

	mode          string
	crf           float64
	bitrate       uint32
	vmafTarget    float64
	videoEncoder  string
	audioEncoder  string
	format        string
	suffix        string
	twoPass       bool
	minBitrate    uint32
	autoSkip      bool
	autoSkipPct   uint32
	enableVMAF    bool
	vmafFull      bool
	vmafSegments  uint32
	vmafSegLength uint32
	vmafAuto      bool
	vmafCUDA      bool
	vmafNeg       bool
	maxWidth      uint32
	maxHeight     uint32
	threads       uint32
}

func newCompressCmd() *cobra.Command {
	var a compressArgs
	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Compress a video file or every video in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd.Flags(), &a)
			if err != nil {
				return err
			}
			return runCompress(cmd.Context(), &a, cfg)
		},
	}

	bindCompressFlags(cmd.Flags(), &a)
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func bindCompressFlags(f *pflag.FlagSet, a *compressArgs) {
	f.StringVarP(&a.inputPath, "input", "i", "", "Input video file or directory containing video files")
	f.StringVarP(&a.outputPath, "output", "o", "", "Output directory (or filename if input is a single file)")
	f.StringVar(&a.configFile, "config", "", "Config file (.toml, .yaml, .yml or .json)")
	f.StringVar(&a.logDir, "log-dir", "", "Log directory (defaults to OUTPUT/logs)")
	f.BoolVar(&a.noLog, "no-log", false, "Disable run log file creation")
	f.StringVar(&a.logFormat, "log-format", "", "Log record format: text or json (default json with --json, else text)")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output for troubleshooting")
	f.BoolVar(&a.jsonOutput, "json", false, "Emit progress as JSON lines on stdout")
	f.StringVar(&a.metrics, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&a.ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary; ffprobe is looked up next to it")
	f.IntVar(&a.jobs, "jobs", util.DefaultJobs(), "Number of files compressed at once")

	f.StringVar(&a.mode, "mode", string(config.ModeCRF), "Rate control: copy, bitrate, crf or vmaf")
	f.Float64Var(&a.crf, "crf", config.DefaultCRF, "CRF used in crf mode")
	f.Uint32Var(&a.bitrate, "bitrate", config.DefaultTargetBitrate, "Target video bitrate in kbps for bitrate mode")
	f.Float64Var(&a.vmafTarget, "vmaf-target", config.DefaultTargetVMAF, "Target VMAF score for vmaf mode")
	f.StringVar(&a.videoEncoder, "video-encoder", config.DefaultVideoEncoder, "ffmpeg video encoder")
	f.StringVar(&a.audioEncoder, "audio-encoder", config.DefaultAudioEncoder, "ffmpeg audio encoder")
	f.StringVar(&a.format, "format", config.DefaultTargetFormat, "Output container extension")
	f.StringVar(&a.suffix, "suffix", config.DefaultSuffix, "Suffix appended to output file names")
	f.BoolVar(&a.twoPass, "two-pass", false, "Two-pass encoding in bitrate mode")
	f.Uint32Var(&a.minBitrate, "min-bitrate", 0, "Copy inputs below this bitrate in kbps instead of encoding (bitrate mode)")
	f.BoolVar(&a.autoSkip, "auto-skip", false, "Abort crf encodes that are not getting smaller and copy the input")
	f.Uint32Var(&a.autoSkipPct, "auto-skip-threshold", config.DefaultAutoSkipThreshold, "Percent of the source bitrate that counts as not smaller")
	f.BoolVar(&a.enableVMAF, "enable-vmaf", false, "Score finished files with VMAF")
	f.BoolVar(&a.vmafFull, "vmaf-full", false, "Score the whole file instead of sampled segments")
	f.Uint32Var(&a.vmafSegments, "vmaf-segments", config.DefaultVMAFSegmentCount, "Number of sampled segments")
	f.Uint32Var(&a.vmafSegLength, "vmaf-segment-duration", config.DefaultVMAFSegmentDuration, "Segment length in seconds")
	f.BoolVar(&a.vmafAuto, "vmaf-auto", false, "Pick segment count and length from the duration")
	f.BoolVar(&a.vmafCUDA, "vmaf-cuda", false, "Score with libvmaf_cuda")
	f.BoolVar(&a.vmafNeg, "vmaf-neg", false, "Use the NEG VMAF model")
	f.Uint32Var(&a.maxWidth, "max-width", 0, "Scale down to fit this width")
	f.Uint32Var(&a.maxHeight, "max-height", 0, "Scale down to fit this height")
	f.Uint32Var(&a.threads, "threads", 0, "ffmpeg -threads value (0 lets ffmpeg decide)")
}

// buildConfig loads the config file, if any, and lays explicitly set flags
// over it. Flags left at their defaults never override the file.
func buildConfig(fs *pflag.FlagSet, a *compressArgs) (*config.CompressionConfig, error) {
	cfg := config.Default()
	if a.configFile != "" {
		loaded, err := config.Load(a.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if fs.Changed("mode") {
		mode, err := config.ParseMode(a.mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = mode
	} else if !cfg.Mode.Known() {
		if _, err := config.ParseMode(string(cfg.Mode)); err != nil {
			return nil, err
		}
	}
	setIfChanged(fs, "crf", &cfg.TargetCRF, a.crf)
	setIfChanged(fs, "bitrate", &cfg.TargetBitrate, a.bitrate)
	setIfChanged(fs, "vmaf-target", &cfg.TargetVMAF, a.vmafTarget)
	setIfChanged(fs, "video-encoder", &cfg.VideoEncoder, a.videoEncoder)
	setIfChanged(fs, "audio-encoder", &cfg.AudioEncoder, a.audioEncoder)
	setIfChanged(fs, "format", &cfg.TargetFormat, a.format)
	setIfChanged(fs, "suffix", &cfg.Suffix, a.suffix)
	setIfChanged(fs, "two-pass", &cfg.TwoPass, a.twoPass)
	setIfChanged(fs, "min-bitrate", &cfg.MinBitrateThreshold, a.minBitrate)
	setIfChanged(fs, "auto-skip", &cfg.CRFAutoSkip, a.autoSkip)
	setIfChanged(fs, "auto-skip-threshold", &cfg.CRFAutoSkipThreshold, a.autoSkipPct)
	setIfChanged(fs, "enable-vmaf", &cfg.EnableVMAF, a.enableVMAF)
	setIfChanged(fs, "vmaf-full", &cfg.VMAFFullComputation, a.vmafFull)
	setIfChanged(fs, "vmaf-segments", &cfg.VMAFSegmentCount, a.vmafSegments)
	setIfChanged(fs, "vmaf-segment-duration", &cfg.VMAFSegmentDuration, a.vmafSegLength)
	setIfChanged(fs, "vmaf-auto", &cfg.VMAFAutoConfig, a.vmafAuto)
	setIfChanged(fs, "vmaf-cuda", &cfg.VMAFUseCUDA, a.vmafCUDA)
	setIfChanged(fs, "vmaf-neg", &cfg.VMAFNeg, a.vmafNeg)
	setIfChanged(fs, "threads", &cfg.FFmpegThreads, a.threads)

	if fs.Changed("max-width") || fs.Changed("max-height") {
		setIfChanged(fs, "max-width", &cfg.MaxResolution.Width, a.maxWidth)
		setIfChanged(fs, "max-height", &cfg.MaxResolution.Height, a.maxHeight)
		cfg.MaxResolution.Enabled = cfg.MaxResolution.Width > 0 && cfg.MaxResolution.Height > 0
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setIfChanged[T any](fs *pflag.FlagSet, name string, dst *T, v T) {
	if fs.Changed(name) {
		*dst = v
	}
}

func runCompress(ctx context.Context, a *compressArgs, cfg *config.CompressionConfig) error {
	inputPath, err := filepath.Abs(a.inputPath)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}
	outputPath, err := filepath.Abs(a.outputPath)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	target, err := util.ResolveOutputArg(inputPath, outputPath)
	if err != nil {
		return err
	}

	logDir := a.logDir
	if logDir == "" {
		logDir = filepath.Join(target.OutputDir, "logs")
	}
	runLog, err := setupLogging(logDir, a)
	if err != nil {
		return err
	}
	defer func() { _ = runLog.Close() }()

	var tasks []vcompress.Task
	if inputInfo.IsDir() {
		tasks, err = discoverTasks(inputPath)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintf(os.Stderr, "No video files found in %s\n", inputPath)
			return nil
		}
	} else {
		task := vcompress.Task{Input: inputPath}
		if target.FilenameOverride != "" {
			task.Output = filepath.Join(target.OutputDir, target.FilenameOverride)
		}
		tasks = append(tasks, task)
		logging.Info("processing single file", "path", inputPath)
	}

	logging.Info("configuration",
		"mode", string(cfg.Mode),
		"crf", cfg.TargetCRF,
		"vmaf_target", cfg.TargetVMAF,
		"bitrate_kbps", cfg.TargetBitrate,
		"video_encoder", cfg.VideoEncoderOrDefault(),
		"enable_vmaf", cfg.EnableVMAF,
		"jobs", a.jobs,
		"log", runLog.Path())

	var rep reporter.Reporter
	if a.jsonOutput {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter(a.verbose)
	}

	c, err := vcompress.New(
		vcompress.WithConfig(cfg),
		vcompress.WithFFmpegPath(a.ffmpegPath),
		vcompress.WithJobs(a.jobs),
		vcompress.WithReporter(rep),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.metrics != "" {
		go func() {
			if err := metrics.Serve(ctx, a.metrics); err != nil {
				logging.Warn("metrics server stopped", "addr", a.metrics, "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Warn("signal received, cancelling", "signal", sig.String())
			c.CancelAll()
			cancel()
		case <-ctx.Done():
		}
	}()

	batch, err := c.CompressBatch(ctx, tasks, target.OutputDir, nil)
	c.Close()
	if err != nil {
		return err
	}
	if batch.FailedCount > 0 {
		return fmt.Errorf("%d of %d files failed", batch.FailedCount, batch.TotalFiles)
	}
	return nil
}

func logFormat(a *compressArgs) logging.Format {
	if a.logFormat != "" {
		return logging.ParseFormat(a.logFormat)
	}
	if a.jsonOutput {
		return logging.FormatJSON
	}
	return logging.FormatText
}

// discoverTasks lists the videos directly under dir. A directory without
// any is not an error and yields no tasks.
func discoverTasks(dir string) ([]vcompress.Task, error) {
	found, err := discovery.FindVideos(dir, false)
	if errors.IsNoFilesFound(err) {
		logging.Warn("no video files found", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to discover video files: %w", err)
	}
	tasks := make([]vcompress.Task, 0, len(found.Files))
	for _, f := range found.Files {
		tasks = append(tasks, vcompress.Task{Input: f})
	}
	return tasks, nil
}

// setupLogging points the global logger at the run log and, when verbose,
// stderr. It returns a nil RunLog when file logging is disabled.
func setupLogging(logDir string, a *compressArgs) (*logging.RunLog, error) {
	level := logging.LevelInfo
	if a.verbose {
		level = logging.LevelDebug
	}
	format := logFormat(a)

	var writers []io.Writer
	var runLog *logging.RunLog
	if !a.noLog {
		var err error
		runLog, err = logging.OpenRunLog(logDir, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to setup logging: %w", err)
		}
		writers = append(writers, runLog.Writer())
	}
	if a.verbose && !a.jsonOutput {
		writers = append(writers, os.Stderr)
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}
	logging.Init(level, format, w)
	return runLog, nil
}
