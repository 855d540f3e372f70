// Package scheduler runs post-compression quality jobs one at a time, in the
// order they were submitted.
package scheduler

import (
	"context"
	"sync"

	"github.com/five82/vcompress/internal/logging"
	"github.com/five82/vcompress/internal/media"
	"github.com/five82/vcompress/internal/metrics"
	"github.com/five82/vcompress/internal/reporter"
	"github.com/five82/vcompress/internal/tq"
	"github.com/five82/vcompress/internal/vmaf"
)

func log() *logging.Logger { return logging.Global().WithComponent("scheduler") }

// Executor scores one job. vmaf.Evaluator satisfies it.
type Executor interface {
	Evaluate(ctx context.Context, job *vmaf.Job)
}

// Scheduler owns a FIFO queue of quality jobs and a single loop goroutine
// that executes them. At most one job runs at any instant.
type Scheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*vmaf.Job
	running *vmaf.Job
	closed  bool

	ctx      context.Context
	exec     Executor
	reporter reporter.Reporter
	history  *tq.History
	done     chan struct{}
}

// New starts a scheduler. Cancelling ctx aborts the running job and makes
// the loop discard what is still queued.
func New(ctx context.Context, exec Executor, rep reporter.Reporter) *Scheduler {
	s := &Scheduler{
		ctx:      ctx,
		exec:     exec,
		reporter: reporter.OrNull(rep),
		history:  tq.NewHistory(),
		done:     make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	context.AfterFunc(ctx, s.Close)
	go s.loop()
	return s
}

// Enqueue appends job to the queue. Jobs submitted after Close are finished
// immediately without scoring.
func (s *Scheduler) Enqueue(job *vmaf.Job) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log().Warn("scheduler closed, dropping vmaf job", "path", job.Key)
		s.finish(job)
		return
	}
	s.queue = append(s.queue, job)
	metrics.SetQueueDepth(len(s.queue))
	s.cond.Signal()
	s.mu.Unlock()
	log().Debug("vmaf job queued", "path", job.Key)
}

// Cancel removes a queued job for key. It returns false when no such job is
// waiting, including when it is already running.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	var removed *vmaf.Job
	for i, j := range s.queue {
		if j.Key == key {
			removed = j
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	metrics.SetQueueDepth(len(s.queue))
	s.mu.Unlock()

	if removed == nil {
		return false
	}
	log().Info("vmaf job removed from queue", "path", key)
	s.finish(removed)
	return true
}

// CancelAll empties the queue and returns how many jobs were removed. The
// running job is left alone.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	removed := s.queue
	s.queue = nil
	metrics.SetQueueDepth(0)
	s.mu.Unlock()

	for _, j := range removed {
		s.finish(j)
	}
	if len(removed) > 0 {
		log().Info("vmaf queue cleared", "jobs", len(removed))
	}
	return len(removed)
}

// Running returns the key of the job being scored.
func (s *Scheduler) Running() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		return "", false
	}
	return s.running.Key, true
}

// Pending returns the number of queued jobs.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// History returns the shared record of searched CRF values.
func (s *Scheduler) History() *tq.History {
	return s.history
}

// Close stops accepting jobs. Jobs already queued still run unless the
// scheduler's context is cancelled.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Wait blocks until the loop has exited, which happens after Close once
// the queue is empty.
func (s *Scheduler) Wait() {
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.running = job
		metrics.SetQueueDepth(len(s.queue))
		metrics.SetScoring(true)
		s.mu.Unlock()

		if s.ctx.Err() == nil {
			log().Info("vmaf job started", "path", job.Key)
			s.exec.Evaluate(s.ctx, job)
		}
		s.finish(job)

		s.mu.Lock()
		s.running = nil
		metrics.SetScoring(false)
		s.mu.Unlock()
	}
}

// finish reports the job Done. A job that was cancelled or never ran has no
// score on its info.
func (s *Scheduler) finish(job *vmaf.Job) {
	s.reporter.Progress(reporter.ProgressPayload{
		Path:       job.Key,
		Progress:   100,
		Status:     media.StatusDone,
		OutputInfo: job.Info.Clone(),
	})
}
