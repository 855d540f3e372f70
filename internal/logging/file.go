package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// RunLog is a timestamped log file for a single CLI run.
type RunLog struct {
	file *os.File
	path string
}

// OpenRunLog creates logDir if needed and opens vcompress_run_<timestamp>.log inside it.
func OpenRunLog(logDir string, now time.Time) (*RunLog, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	name := fmt.Sprintf("vcompress_run_%s.log", now.Format("20060102_150405"))
	path := filepath.Join(logDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
	}
	return &RunLog{file: f, path: path}, nil
}

// Path returns the log file path. A nil RunLog has an empty path.
func (r *RunLog) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Writer returns the file, or io.Discard for a nil RunLog.
func (r *RunLog) Writer() io.Writer {
	if r == nil || r.file == nil {
		return io.Discard
	}
	return r.file
}

// Close closes the log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}
