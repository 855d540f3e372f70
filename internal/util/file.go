package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// VideoExtensions is the list of supported video file extensions.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".wmv":  true,
	".ts":   true,
	".avi":  true,
	".mp4":  true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".m2ts": true,
	".ogv":  true,
	".vob":  true,
	".3gp":  true,
	".asf":  true,
	".rmvb": true,
	".f4v":  true,
	".mts":  true,
	".divx": true,
	".xvid": true,
	".rm":   true,
}

// IsVideoFile checks if the given path is a valid video file.
func IsVideoFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	return VideoExtensions[ext]
}

// GetFileStem returns the filename without extension.
func GetFileStem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return uint64(info.Size()), nil
}

// EnsureDirectory creates dir and any missing parents.
func EnsureDirectory(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// EnsureParentDir creates the directory that will contain path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CanonicalPath returns an absolute, symlink-resolved form of path. When the
// path cannot be resolved the absolute (or original) path is returned.
func CanonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// SamePath reports whether a and b refer to the same file location.
func SamePath(a, b string) bool {
	return CanonicalPath(a) == CanonicalPath(b)
}

// CopyFile copies src to dst, creating the parent of dst. Copying a file onto
// itself is a no-op.
func CopyFile(src, dst string) error {
	if SamePath(src, dst) {
		return nil
	}
	if err := EnsureParentDir(dst); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// RemoveWithRetry removes path, retrying while another process may still hold
// it open. A missing file is not an error.
func RemoveWithRetry(path string, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

// RemovePrefixed removes every file in dir whose name starts with prefix and
// returns how many were removed.
func RemovePrefixed(dir, prefix string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if os.Remove(filepath.Join(dir, e.Name())) == nil {
			n++
		}
	}
	return n
}

// ResolveOutputPath builds <outputDir>/<stem><suffix>.<format> for an input file.
func ResolveOutputPath(inputPath, outputDir, suffix, format string) string {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(inputPath), ".")
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s%s.%s", GetFileStem(inputPath), suffix, format))
}

// OutputPathInfo contains resolved output path information.
type OutputPathInfo struct {
	// OutputDir is the directory where output files should be written.
	OutputDir string
	// FilenameOverride is set when the user names an output file instead of a directory.
	FilenameOverride string
}

// ResolveOutputArg resolves the output argument into a directory and optional
// filename. A single file input with an extension on the output is treated as
// a filename; anything else is a directory.
func ResolveOutputArg(inputPath, outputPath string) (OutputPathInfo, error) {
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return OutputPathInfo{}, err
	}

	ext := strings.ToLower(filepath.Ext(outputPath))
	if !inputInfo.IsDir() && ext != "" {
		if !VideoExtensions[ext] {
			return OutputPathInfo{}, fmt.Errorf("%w: unsupported output extension %s", os.ErrInvalid, ext)
		}
		return OutputPathInfo{
			OutputDir:        filepath.Dir(outputPath),
			FilenameOverride: filepath.Base(outputPath),
		}, nil
	}

	return OutputPathInfo{OutputDir: outputPath}, nil
}
