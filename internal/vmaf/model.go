// Package vmaf scores encodes against their source with ffmpeg's libvmaf
// filter and runs the post-hoc evaluation jobs queued after compression.
package vmaf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/five82/vcompress/internal/util"
)

// ModelEnv names a model file that takes precedence over every search path.
const ModelEnv = "VMAF_MODEL"

// HighResThreshold is the largest dimension above which the 4k model is used.
const HighResThreshold = 2560

// ModelFilename picks the model file for a resolution.
func ModelFilename(width, height uint32, neg bool) string {
	highRes := max(width, height) > HighResThreshold
	switch {
	case highRes && neg:
		return "vmaf_4k_v0.6.1neg.json"
	case highRes:
		return "vmaf_4k_v0.6.1.json"
	case neg:
		return "vmaf_v0.6.1neg.json"
	default:
		return "vmaf_v0.6.1.json"
	}
}

// ModelCandidates lists where a model file is looked for, in order.
func ModelCandidates(ffmpegPath, filename string) []string {
	var candidates []string
	if env := os.Getenv(ModelEnv); env != "" {
		candidates = append(candidates, env)
	}

	ffmpegDir := filepath.Dir(ffmpegPath)
	candidates = append(candidates,
		filepath.Join(ffmpegDir, "model", filename),
		filepath.Join(ffmpegDir, "..", "share", "model", filename),
	)

	if runtime.GOOS == "windows" {
		candidates = append(candidates,
			filepath.Join(`C:\Program Files\FFmpeg\share\model`, filename),
			filepath.Join(`C:\Program Files\ffmpeg\share\model`, filename),
		)
	}

	return append(candidates,
		filepath.Join("/usr/share/model", filename),
		filepath.Join("/usr/local/share/model", filename),
	)
}

// FindModel returns the first existing candidate for filename.
func FindModel(ffmpegPath, filename string) (string, bool) {
	for _, c := range ModelCandidates(ffmpegPath, filename) {
		if util.FileExists(c) {
			return c, true
		}
	}
	return "", false
}
