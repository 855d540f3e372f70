package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/five82/vcompress/internal/errors"
)

func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

type recordingTracker struct {
	mu         sync.Mutex
	registered map[string]int
	removed    []string
}

func (r *recordingTracker) Register(key string, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered == nil {
		r.registered = map[string]int{}
	}
	r.registered[key] = pid
}

func (r *recordingTracker) Unregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, key)
}

func TestProcessLinesAndWait(t *testing.T) {
	bin := fakeBinary(t, `echo "out_time=00:00:05.000000" >&2
echo "progress=continue" >&2
echo "boom" >&2
exit 2
`)
	p, err := Start(context.Background(), bin, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	var parser ProgressParser
	ticks := 0
	p.Lines(func(line string) bool {
		if parser.Feed(line) {
			ticks++
		}
		return true
	})
	err = p.Wait()

	if ticks != 1 || parser.Current().Seconds != 5 {
		t.Errorf("ticks=%d seconds=%v", ticks, parser.Current().Seconds)
	}
	var cmdErr *errors.CommandError
	if !errors.IsKind(err, errors.KindCommand) {
		t.Fatalf("Wait() error = %v, want KindCommand", err)
	}
	if ce, ok := err.(*errors.CoreError).Underlying.(*errors.CommandError); ok {
		cmdErr = ce
	}
	if cmdErr == nil || cmdErr.ExitCode != 2 || cmdErr.Stderr != "out_time=00:00:05.000000\nboom" {
		t.Errorf("CommandError = %+v", cmdErr)
	}
}

func TestRunTrackedRegistersPid(t *testing.T) {
	bin := fakeBinary(t, "echo 'VMAF score: 93.1' >&2\n")
	tr := &recordingTracker{}

	out, err := RunTracked(context.Background(), tr, "a.mp4", bin, nil)
	if err != nil {
		t.Fatalf("RunTracked() error = %v", err)
	}
	if out != "VMAF score: 93.1\n" {
		t.Errorf("stderr = %q", out)
	}
	if tr.registered["a.mp4"] <= 0 || len(tr.removed) != 1 {
		t.Errorf("tracker = %+v", tr)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	full := filepath.Join(dir, "full.mp4")
	if err := os.WriteFile(full, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	ok := fakeBinary(t, "exit 0\n")
	bad := fakeBinary(t, "echo 'moov atom not found' >&2; exit 1\n")

	if err := Verify(context.Background(), nil, "k", ok, empty); !errors.IsKind(err, errors.KindValidation) {
		t.Errorf("Verify(empty) = %v, want KindValidation", err)
	}
	if err := Verify(context.Background(), nil, "k", ok, full); err != nil {
		t.Errorf("Verify(full) = %v", err)
	}
	if err := Verify(context.Background(), nil, "k", bad, full); !errors.IsKind(err, errors.KindValidation) {
		t.Errorf("Verify(corrupt) = %v, want KindValidation", err)
	}
}

func TestVerifyRegistersPid(t *testing.T) {
	full := filepath.Join(t.TempDir(), "full.mp4")
	if err := os.WriteFile(full, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	tr := &recordingTracker{}

	if err := Verify(context.Background(), tr, "movie.mkv", fakeBinary(t, "exit 0\n"), full); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if tr.registered["movie.mkv"] <= 0 || len(tr.removed) != 1 {
		t.Errorf("tracker = %+v", tr)
	}
}
