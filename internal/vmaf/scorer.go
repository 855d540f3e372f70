package vmaf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/five82/vcompress/internal/ffmpeg"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/segment"
)

// Request describes one scoring run. Distorted is input 0 and Reference is
// input 1 of the filter graph.
type Request struct {
	Distorted string
	Reference string
	ModelPath string

	// CUDA selects libvmaf_cuda with hardware decode on both inputs.
	CUDA bool
	// RefDecoder is the cuvid decoder for the reference, when one is known.
	RefDecoder string

	// Window limits the scored range. It is applied to the reference only,
	// unless WindowBoth is set, in which case both inputs are trimmed.
	Window     *segment.Window
	WindowBoth bool

	CustomParams []string
}

// Scorer runs ffmpeg's libvmaf filter. The ffmpeg pid is registered under
// the caller's key for the duration of the run so it can be killed.
type Scorer struct {
	ffmpegPath string
	tracker    ffmpeg.PIDTracker
	tempDir    string
}

// NewScorer creates a scorer. tracker may be nil.
func NewScorer(ffmpegPath string, tracker ffmpeg.PIDTracker) *Scorer {
	return &Scorer{ffmpegPath: ffmpegPath, tracker: tracker, tempDir: os.TempDir()}
}

// Args builds the ffmpeg argument list for req, logging to logPath.
func Args(req Request, logPath string) []string {
	threads := "4"
	if req.CUDA {
		threads = "1"
	}
	args := []string{"-hide_banner", "-threads", threads, "-v", "info"}

	hwaccel := func() {
		if req.CUDA {
			args = append(args, "-hwaccel", "cuda", "-hwaccel_output_format", "cuda")
		}
	}
	window := func() {
		if req.Window != nil {
			args = append(args,
				"-ss", formatSeconds(req.Window.Start),
				"-t", formatSeconds(req.Window.Duration))
		}
	}

	hwaccel()
	if req.WindowBoth {
		window()
	}
	args = append(args, "-i", req.Distorted)

	hwaccel()
	if req.CUDA && req.RefDecoder != "" {
		args = append(args, "-c:v", req.RefDecoder)
	}
	window()
	args = append(args, "-i", req.Reference)

	opts := NewOptions(req.ModelPath).WithJSONLog(logPath).AddCustom(req.CustomParams).Build()
	return append(args, "-filter_complex", FilterGraph(req.CUDA, opts), "-f", "null", "-")
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Score runs one comparison. The second return is false when ffmpeg failed
// or no score could be read; callers treat that as a missing sample.
func (s *Scorer) Score(ctx context.Context, key string, req Request) (float64, bool) {
	logPath := filepath.Join(s.tempDir, fmt.Sprintf("vmaf_log_%s.json", uuid.NewString()))
	defer os.Remove(logPath)

	stderr, err := ffmpeg.RunTracked(ctx, s.tracker, key, s.ffmpegPath, Args(req, logPath))
	if err != nil {
		logging.Warn("vmaf run failed", "distorted", req.Distorted, "cuda", req.CUDA, "error", err)
		return 0, false
	}

	if data, err := os.ReadFile(logPath); err == nil {
		if score, ok := ParseLog(data); ok {
			return score, true
		}
	}
	if score, ok := ParseStderr(stderr); ok {
		return score, true
	}

	logging.Warn("no vmaf score in output", "distorted", req.Distorted)
	return 0, false
}
