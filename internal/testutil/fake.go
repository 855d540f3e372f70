// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FakeBinary writes an executable /bin/sh script called name into a fresh
// temp dir and returns its path. Tests are skipped on Windows.
func FakeBinary(t *testing.T, name, body string) string {
	t.Helper()
	return FakeBinaryIn(t, t.TempDir(), name, body)
}

// FakeBinaryIn is FakeBinary with an explicit directory, so a fake ffmpeg
// and ffprobe can sit side by side.
func FakeBinaryIn(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteFile creates path with body, creating parent directories.
func WriteFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
