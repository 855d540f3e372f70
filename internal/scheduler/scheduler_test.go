package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/vmaf"
)

// gatedExecutor records start order and blocks each job until released.
type gatedExecutor struct {
	mu        sync.Mutex
	order     []string
	active    atomic.Int32
	maxActive atomic.Int32
	gate      chan struct{}
}

func newGatedExecutor() *gatedExecutor {
	return &gatedExecutor{gate: make(chan struct{})}
}

func (e *gatedExecutor) Evaluate(ctx context.Context, job *vmaf.Job) {
	n := e.active.Add(1)
	for {
		m := e.maxActive.Load()
		if n <= m || e.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	e.mu.Lock()
	e.order = append(e.order, job.Key)
	e.mu.Unlock()

	select {
	case <-e.gate:
	case <-ctx.Done():
	}
	job.Info.VMAF = media.Ptr(96.0)
	e.active.Add(-1)
}

func (e *gatedExecutor) release() { close(e.gate) }

func (e *gatedExecutor) started() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func newJob(key string) *vmaf.Job {
	return &vmaf.Job{Key: key, Info: &media.VideoInfo{Path: key}}
}

func doneCount(rec *reporter.Recorder, key string) int {
	n := 0
	for _, s := range rec.Statuses(key) {
		if s == media.StatusDone {
			n++
		}
	}
	return n
}

func TestFIFOAndSingleRunning(t *testing.T) {
	exec := newGatedExecutor()
	rec := reporter.NewRecorder()
	s := New(context.Background(), exec, rec)

	keys := []string{"a", "b", "c", "d"}
	for _, k := range keys {
		s.Enqueue(newJob(k))
	}

	require.Eventually(t, func() bool {
		k, ok := s.Running()
		return ok && k == "a"
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 3, s.Pending())

	exec.release()
	s.Close()
	s.Wait()

	require.Equal(t, keys, exec.started())
	require.Equal(t, int32(1), exec.maxActive.Load())
	_, running := s.Running()
	require.False(t, running)
	for _, k := range keys {
		require.Equal(t, 1, doneCount(rec, k), "key %s", k)
		last, _ := rec.Last(k)
		require.NotNil(t, last.OutputInfo.VMAF)
	}
}

func TestCancelRemovesQueuedJob(t *testing.T) {
	exec := newGatedExecutor()
	rec := reporter.NewRecorder()
	s := New(context.Background(), exec, rec)

	s.Enqueue(newJob("a"))
	s.Enqueue(newJob("b"))
	s.Enqueue(newJob("c"))
	require.Eventually(t, func() bool {
		_, ok := s.Running()
		return ok
	}, time.Second, 5*time.Millisecond)

	require.True(t, s.Cancel("b"))
	require.False(t, s.Cancel("b"), "second cancel is a no-op")
	require.False(t, s.Cancel("a"), "running job is not in the queue")
	require.Equal(t, 1, doneCount(rec, "b"))

	exec.release()
	s.Close()
	s.Wait()

	require.Equal(t, []string{"a", "c"}, exec.started())
	last, _ := rec.Last("b")
	require.Nil(t, last.OutputInfo.VMAF)
}

func TestCancelAllEmptiesQueue(t *testing.T) {
	exec := newGatedExecutor()
	rec := reporter.NewRecorder()
	s := New(context.Background(), exec, rec)

	for _, k := range []string{"a", "b", "c"} {
		s.Enqueue(newJob(k))
	}
	require.Eventually(t, func() bool {
		_, ok := s.Running()
		return ok
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, 2, s.CancelAll())
	require.Equal(t, 0, s.Pending())
	require.Equal(t, 0, s.CancelAll())

	exec.release()
	s.Close()
	s.Wait()

	require.Equal(t, []string{"a"}, exec.started())
	for _, k := range []string{"b", "c"} {
		require.Equal(t, 1, doneCount(rec, k), "key %s", k)
	}
}

func TestContextCancelDropsQueue(t *testing.T) {
	exec := newGatedExecutor()
	rec := reporter.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, exec, rec)

	s.Enqueue(newJob("a"))
	s.Enqueue(newJob("b"))
	require.Eventually(t, func() bool {
		_, ok := s.Running()
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	s.Wait()

	require.Equal(t, []string{"a"}, exec.started())
	require.Equal(t, 1, doneCount(rec, "a"))
	require.Equal(t, 1, doneCount(rec, "b"))
}

func TestEnqueueAfterClose(t *testing.T) {
	exec := newGatedExecutor()
	rec := reporter.NewRecorder()
	s := New(context.Background(), exec, rec)
	s.Close()
	s.Wait()

	s.Enqueue(newJob("late"))

	require.Empty(t, exec.started())
	require.Equal(t, 1, doneCount(rec, "late"))
}

func TestLogsCarryComponent(t *testing.T) {
	prev := logging.Global()
	t.Cleanup(func() { logging.SetGlobal(prev) })
	var buf bytes.Buffer
	logging.Init(logging.LevelDebug, logging.FormatJSON, &buf)

	s := New(context.Background(), newGatedExecutor(), nil)
	s.Close()
	s.Wait()
	s.Enqueue(newJob("late"))

	var rec map[string]any
	line, _, _ := strings.Cut(strings.TrimSpace(buf.String()), "\n")
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	require.Equal(t, "scheduler", rec["component"])
	require.Equal(t, "late", rec["path"])
}

func TestHistoryIsShared(t *testing.T) {
	s := New(context.Background(), newGatedExecutor(), nil)
	defer s.Wait()
	defer s.Close()

	s.History().Push(30, 95.1)
	require.Equal(t, 1, s.History().Len())
}
