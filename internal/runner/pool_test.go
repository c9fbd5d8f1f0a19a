package runner_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/signalnine/autotune/internal/runner"
)

func TestPool(t *testing.T) {
	var count atomic.Int32
	jobs := make([]runner.Job, 10)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			count.Add(1)
			return nil
		}
	}
	errs := runner.RunPool(context.Background(), 3, jobs)
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
	if count.Load() != 10 {
		t.Errorf("expected 10 jobs, got %d", count.Load())
	}
}

func TestPoolWithErrors(t *testing.T) {
	jobs := []runner.Job{
		func(context.Context) error { return nil },
		func(context.Context) error { return fmt.Errorf("fail") },
		func(context.Context) error { return nil },
	}
	errs := runner.RunPool(context.Background(), 2, jobs)
	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(errs))
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	jobs := make([]runner.Job, 8)
	for i := range jobs {
		jobs[i] = func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		}
	}
	runner.RunPool(context.Background(), 2, jobs)
	if peak.Load() > 2 {
		t.Errorf("peak concurrency %d exceeds 2", peak.Load())
	}
}

func TestPoolSkipsJobsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var count atomic.Int32
	jobs := []runner.Job{
		func(context.Context) error { count.Add(1); return nil },
		func(context.Context) error { count.Add(1); return nil },
	}
	errs := runner.RunPool(ctx, 1, jobs)
	if count.Load() != 0 {
		t.Errorf("expected no jobs to run, ran %d", count.Load())
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 cancellation errors, got %d", len(errs))
	}
}
