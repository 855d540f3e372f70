package ffmpeg

import (
	"context"
	"fmt"
	"os"

	"github.com/five82/vcompress/internal/errors"
)

// Verify checks that path is a non-empty file whose first second decodes.
// The decoding ffmpeg is registered under key with tracker, which may be nil.
func Verify(ctx context.Context, tracker PIDTracker, key, ffmpegPath, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewValidationError(fmt.Sprintf("failed to stat %s", path), err)
	}
	if info.Size() == 0 {
		return errors.NewValidationError(fmt.Sprintf("%s is empty", path), nil)
	}

	args := []string{"-v", "error", "-i", path, "-t", "1", "-f", "null", "-"}
	if _, err := RunTracked(ctx, tracker, key, ffmpegPath, args); err != nil {
		return errors.NewValidationError("integrity check failed", err)
	}
	return nil
}
