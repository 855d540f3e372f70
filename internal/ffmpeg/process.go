package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/five82/vcompress/internal/errors"
	"github.com/five82/vcompress/internal/logging"
)

// TailLines is how many diagnostic stderr lines are kept for error reports.
const TailLines = 50

// PIDTracker records which OS process currently works on a key.
type PIDTracker interface {
	Register(key string, pid int)
	Unregister(key string)
}

// Process is a started ffmpeg whose stderr is consumed line by line.
type Process struct {
	cmd    *exec.Cmd
	stderr io.ReadCloser
	tail   *Tail
	name   string
}

// Start launches binary with args. stdout is discarded and stderr is
// exposed through Lines.
func Start(ctx context.Context, binary string, args []string) (*Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = io.Discard

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.NewCommandStartError(binary, fmt.Errorf("failed to get stderr pipe: %w", err))
	}

	logging.Debug("starting ffmpeg", "binary", binary, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, errors.NewCommandStartError(binary, err)
	}

	return &Process{cmd: cmd, stderr: stderr, tail: NewTail(TailLines), name: binary}, nil
}

// Pid returns the OS process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Lines calls fn for every stderr line until EOF or until fn returns false.
// Remaining output is drained so the child never blocks on a full pipe.
func (p *Process) Lines(fn func(line string) bool) {
	scanner := bufio.NewScanner(p.stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(ScanLinesCR)

	for scanner.Scan() {
		line := scanner.Text()
		p.tail.Add(line)
		if !fn(line) {
			_, _ = io.Copy(io.Discard, p.stderr)
			return
		}
	}
}

// Kill terminates the process immediately. Killing an exited process is a no-op.
func (p *Process) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// Wait waits for exit. A non-zero exit is returned as a CommandFailed error
// carrying the stderr tail.
func (p *Process) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return errors.WrapWaitError(p.name, err, p.tail.String())
	}
	return nil
}

// Tail returns the retained diagnostic stderr lines.
func (p *Process) Tail() *Tail {
	return p.tail
}

// RunTracked runs binary to completion with its pid registered under key for
// the duration, and returns the combined stderr text. Used for short helper
// invocations (samples, scoring) whose output is parsed afterwards.
func RunTracked(ctx context.Context, tracker PIDTracker, key, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	logging.Debug("running ffmpeg", "binary", binary, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return "", errors.NewCommandStartError(binary, err)
	}
	if tracker != nil {
		tracker.Register(key, cmd.Process.Pid)
		defer tracker.Unregister(key)
	}

	if err := cmd.Wait(); err != nil {
		return stderr.String(), errors.WrapWaitError(binary, err, lastLines(stderr.String(), 5))
	}
	return stderr.String(), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
