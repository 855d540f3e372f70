package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSemaphoreBlocksAtCapacity(t *testing.T) {
	s := NewSemaphore(2)
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if got := s.Available(); got != 0 {
		t.Errorf("Available() = %d, want 0", got)
	}

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := s.Acquire(timeout); err == nil {
		t.Fatal("expected Acquire to fail when no permit is free")
	}

	s.Release()
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
}

func TestSemaphoreMinimumOne(t *testing.T) {
	for _, n := range []int{0, -3} {
		if got := NewSemaphore(n).Available(); got != 1 {
			t.Errorf("NewSemaphore(%d).Available() = %d, want 1", n, got)
		}
	}
}

func TestSemaphoreExtraReleaseIsIgnored(t *testing.T) {
	s := NewSemaphore(1)
	s.Release()
	if got := s.Available(); got != 1 {
		t.Errorf("Available() = %d, want 1", got)
	}
}

func TestProgress(t *testing.T) {
	p := NewProgress(4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Done()
		}()
	}
	wg.Wait()

	if got := p.Completed(); got != 4 {
		t.Errorf("Completed() = %d, want 4", got)
	}
	if got := p.Percent(); got != 100 {
		t.Errorf("Percent() = %v, want 100", got)
	}
	if got := NewProgress(0).Percent(); got != 0 {
		t.Errorf("empty Percent() = %v, want 0", got)
	}
}
