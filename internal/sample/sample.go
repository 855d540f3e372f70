// Package sample encodes short windows of a source at a trial CRF so they can
// be scored during a CRF search.
package sample

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/five82/vcompress/internal/config"
	"github.com/five82/vcompress/internal/ffmpeg"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/segment"
)

// FilePrefix starts the name of every sample file.
const FilePrefix = "vmaf_sample_"

// ErrSampleFailed is returned when ffmpeg could not produce the sample.
var ErrSampleFailed = errors.New("sample encode failed")

// Compressor produces sample encodes in a temp directory.
type Compressor struct {
	ffmpegPath string
	tracker    ffmpeg.PIDTracker
	tempDir    string
}

// NewCompressor creates a compressor writing to os.TempDir.
func NewCompressor(ffmpegPath string, tracker ffmpeg.PIDTracker) *Compressor {
	return &Compressor{ffmpegPath: ffmpegPath, tracker: tracker, tempDir: os.TempDir()}
}

// WithTempDir returns a copy writing samples to dir.
func (c *Compressor) WithTempDir(dir string) *Compressor {
	out := *c
	out.tempDir = dir
	return &out
}

// TempDir is where samples are written.
func (c *Compressor) TempDir() string {
	return c.tempDir
}

// OutputPath names a sample for input at crf. The source container is kept
// so the scorer decodes both sides the same way.
func (c *Compressor) OutputPath(input string, crf float64) string {
	ext := strings.TrimPrefix(filepath.Ext(input), ".")
	if ext == "" {
		ext = "mp4"
	}
	name := fmt.Sprintf("%s%s_%d.%s", FilePrefix, uuid.NewString(), int(crf), ext)
	return filepath.Join(c.tempDir, name)
}

// Args builds the sample encode command. Window bounds are rounded to whole
// seconds so the reference can be cut at the same points.
func Args(cfg *config.CompressionConfig, input, output string, w segment.Window, crf float64) []string {
	encoder := cfg.VideoEncoderOrDefault()
	args := []string{
		"-y", "-hide_banner",
		"-v", "error",
		"-ss", strconv.FormatInt(int64(math.Round(w.Start)), 10),
		"-t", strconv.FormatInt(int64(math.Round(w.Duration)), 10),
		"-i", input,
		"-c:v", encoder,
		ffmpeg.CRFFlag(encoder), ffmpeg.FormatCRF(crf),
		"-an",
	}
	for _, def := range cfg.AvailableVideoEncoders {
		if def.Value == encoder {
			args = append(args, ffmpeg.SplitTokens(def.CustomParams)...)
			break
		}
	}
	return append(args, output)
}

// Compress encodes window w of input at crf and returns the sample path. The
// ffmpeg pid is registered under key while it runs. A failed encode leaves
// no file behind.
func (c *Compressor) Compress(ctx context.Context, key, input string, w segment.Window, crf float64, cfg *config.CompressionConfig) (string, error) {
	output := c.OutputPath(input, crf)

	if _, err := ffmpeg.RunTracked(ctx, c.tracker, key, c.ffmpegPath, Args(cfg, input, output, w, crf)); err != nil {
		_ = os.Remove(output)
		logging.Warn("sample encode failed", "input", input, "crf", crf, "start", w.Start, "error", err)
		return "", fmt.Errorf("%w: %v", ErrSampleFailed, err)
	}
	return output, nil
}
