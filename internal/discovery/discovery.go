// Package discovery finds input video files for a batch.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/util"
)

// Result contains the discovered files with metadata.
type Result struct {
	Files        []string
	SkippedCount int
}

// FindVideos returns the video files in inputDir sorted by lowercase name.
// When recursive is set, subdirectories are walked as well. Hidden files and
// directories are ignored. An empty result is a NoFilesFound error.
func FindVideos(inputDir string, recursive bool) (*Result, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, errors.NewPathError(fmt.Sprintf("directory does not exist: %s", inputDir))
	}
	if !info.IsDir() {
		return nil, errors.NewPathError(fmt.Sprintf("%s is not a directory", inputDir))
	}

	result := &Result{}
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path == inputDir {
				return nil
			}
			if !recursive || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if util.IsVideoFile(path) {
			result.Files = append(result.Files, path)
		} else {
			result.SkippedCount++
		}
		return nil
	}
	if err := filepath.WalkDir(inputDir, walk); err != nil {
		return nil, errors.NewIOError(fmt.Sprintf("cannot read directory %s", inputDir), err)
	}

	if len(result.Files) == 0 {
		return nil, errors.NewNoFilesFoundError(inputDir)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})

	logging.Info("discovered video files", "dir", inputDir, "count", len(result.Files), "skipped", result.SkippedCount)
	for i := range min(5, len(result.Files)) {
		logging.Debug("discovered", "file", filepath.Base(result.Files[i]))
	}
	return result, nil
}
