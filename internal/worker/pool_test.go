package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// claimResult implements Result
type claimResult struct {
	claimID string
	err     error
}

func (r *claimResult) GetError() error {
	return r.err
}

// claimJob pretends to score one claim
type claimJob struct {
	claimID string
	delay   time.Duration
	fail    bool
	scored  *atomic.Int32
	running *atomic.Int32
	peak    *atomic.Int32
}

func (j *claimJob) Execute(ctx context.Context) Result {
	if j.running != nil {
		n := j.running.Add(1)
		defer j.running.Add(-1)
		for {
			p := j.peak.Load()
			if n <= p || j.peak.CompareAndSwap(p, n) {
				break
			}
		}
	}
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return &claimResult{claimID: j.claimID, err: ctx.Err()}
		}
	}
	if j.scored != nil {
		j.scored.Add(1)
	}
	if j.fail {
		return &claimResult{claimID: j.claimID, err: errors.New("geometry unreadable")}
	}
	return &claimResult{claimID: j.claimID}
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{5, 5},
		{0, 1},
		{-1, 1},
	}
	for _, tt := range tests {
		if got := NewPool(context.Background(), tt.in).workers; got != tt.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tt.in, tt.want, got)
		}
	}
}

func TestPool_RunsEveryJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var scored atomic.Int32
	for i := 0; i < 10; i++ {
		pool.Submit(&claimJob{claimID: "IFR-TMP-00000" + string(rune('0'+i)), scored: &scored})
	}
	results := pool.Wait()

	if len(results) != 10 {
		t.Errorf("expected 10 results, got %d", len(results))
	}
	if scored.Load() != 10 {
		t.Errorf("expected 10 scored claims, got %d", scored.Load())
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var running, peak, scored atomic.Int32
	for i := 0; i < 40; i++ {
		pool.Submit(&claimJob{delay: 5 * time.Millisecond, scored: &scored, running: &running, peak: &peak})
	}
	pool.Wait()

	if scored.Load() != 40 {
		t.Errorf("expected 40 scored claims, got %d", scored.Load())
	}
	if peak.Load() > workers {
		t.Errorf("expected at most %d concurrent jobs, got %d", workers, peak.Load())
	}
}

func TestPool_ErrorsStayPerJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&claimJob{claimID: "CFR-A", fail: true})
	pool.Submit(&claimJob{claimID: "CFR-B"})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
			if id := r.(*claimResult).claimID; id != "CFR-A" {
				t.Errorf("expected CFR-A to fail, got %s", id)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed job, got %d", failed)
	}
}

func TestPool_ManyMoreJobsThanBuffer(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	const count = 500
	for i := 0; i < count; i++ {
		if !pool.Submit(&claimJob{}) {
			t.Fatalf("submit %d refused", i)
		}
	}

	done := make(chan []Result)
	go func() { done <- pool.Wait() }()

	select {
	case results := <-done:
		if len(results) != count {
			t.Errorf("expected %d results, got %d", count, len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait timed out")
	}
}

func TestPool_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()
	cancel()

	// The job may be queued before the cancel is observed, either is fine
	_ = pool.Submit(&claimJob{delay: time.Second})

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait after cancel blocked")
	}
}
