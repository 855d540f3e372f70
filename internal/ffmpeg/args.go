package ffmpeg

import (
	"fmt"
	"runtime"

	"github.com/five82/vcompress/internal/config"
)

// CompressArgs assembles the arguments for a full compression run, up to and
// including "-progress pipe:2". The output path (and any pass flags) are
// appended by the caller. derivedCRF is only used in vmaf mode.
func CompressArgs(cfg *config.CompressionConfig, input string, derivedCRF float64) []string {
	copyMode := cfg.CopyVideo()

	videoEnc := cfg.VideoEncoderOrDefault()
	audioEnc := cfg.AudioEncoderOrDefault()
	if copyMode {
		videoEnc = "copy"
		audioEnc = "copy"
	}

	args := []string{"-y", "-hide_banner", "-i", input, "-c:v", videoEnc}

	if !copyMode {
		switch cfg.Mode {
		case config.ModeBitrate:
			args = append(args, "-b:v", fmt.Sprintf("%dk", cfg.TargetBitrate))
		case config.ModeCRF:
			args = append(args, CRFFlag(videoEnc), FormatCRF(cfg.TargetCRF))
		case config.ModeVMAF:
			args = append(args, CRFFlag(videoEnc), FormatCRF(derivedCRF))
		}
	}

	args = append(args, "-c:a", audioEnc)

	if !copyMode && cfg.MaxResolution.Active() {
		chain := NewVideoFilterChain().AddMaxWidth(cfg.MaxResolution.Width)
		args = append(args, "-vf", chain.Build())
	}

	// Custom filters apply in every mode; they may carry muxer flags such as
	// -movflags +faststart.
	args = append(args, SplitTokens(cfg.CustomFilters)...)

	if !copyMode {
		args = append(args, SplitTokens(cfg.VideoEncoderParams())...)
		args = append(args, SplitTokens(cfg.AudioEncoderParams())...)
	}

	if cfg.FFmpegThreads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", cfg.FFmpegThreads))
	}

	return append(args, "-progress", "pipe:2")
}

// PassLogPrefix returns the two-pass statistics prefix for a temp output.
func PassLogPrefix(tempOutput string) string {
	return tempOutput + ".passlog"
}

// Pass1Args extends base with the flags for an analysis-only first pass.
func Pass1Args(base []string, passLog string) []string {
	args := append([]string(nil), base...)
	return append(args, "-pass", "1", "-passlogfile", passLog, "-an", "-f", "null", NullSink())
}

// Pass2Args extends base with the flags for the second pass.
func Pass2Args(base []string, passLog string) []string {
	args := append([]string(nil), base...)
	return append(args, "-pass", "2", "-passlogfile", passLog)
}

// NullSink is the platform null device used as the first-pass output.
func NullSink() string {
	if runtime.GOOS == "windows" {
		return "NUL"
	}
	return "/dev/null"
}

// TempOutputPath returns the in-progress path written before publishing.
func TempOutputPath(output, format string) string {
	return fmt.Sprintf("%s.tmp.%s", output, format)
}
