package transcribe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/analytics"
)

type fakeProcessor struct {
	err error
}

func (f fakeProcessor) Process(ctx context.Context, path string) (*Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: "hello from " + path, Report: analytics.Analyze("hello from "+path, nil)}, nil
}

func newTestPool(workers, queueSize int) *WorkerPool {
	return NewWorkerPool(WorkerPoolOptions{
		Processor: fakeProcessor{},
		Workers:   workers,
		QueueSize: queueSize,
		Log:       zerolog.Nop(),
	})
}

func TestNewWorkerPool(t *testing.T) {
	wp := newTestPool(4, 100)
	if wp == nil {
		t.Fatal("NewWorkerPool returned nil")
	}
	if cap(wp.jobs) != 100 {
		t.Errorf("queue capacity = %d, want 100", cap(wp.jobs))
	}
}

func TestWorkerPool_EnqueueBeforeStart(t *testing.T) {
	wp := newTestPool(2, 5)
	// Enqueue works before Start(); it just buffers.
	if !wp.Enqueue(Job{ID: "1"}) {
		t.Error("Enqueue should return true when queue has space")
	}
}

func TestWorkerPool_EnqueueFull(t *testing.T) {
	wp := newTestPool(0, 2) // 0 workers = nobody draining

	wp.Enqueue(Job{ID: "1"})
	wp.Enqueue(Job{ID: "2"})

	if wp.Enqueue(Job{ID: "3"}) {
		t.Error("Enqueue should return false when queue is full")
	}
}

func TestWorkerPool_EnqueueAfterStop(t *testing.T) {
	wp := newTestPool(1, 10)
	wp.Start()
	wp.Stop()

	if wp.Enqueue(Job{ID: "1"}) {
		t.Error("Enqueue should return false after Stop()")
	}
	// Second Stop is a no-op.
	wp.Stop()
}

func TestWorkerPool_Stats(t *testing.T) {
	wp := newTestPool(0, 10)

	wp.Enqueue(Job{ID: "1"})
	wp.Enqueue(Job{ID: "2"})

	stats := wp.Stats()
	if stats.Pending != 2 {
		t.Errorf("Pending = %d, want 2", stats.Pending)
	}
	if stats.Completed != 0 || stats.Failed != 0 {
		t.Errorf("Completed/Failed = %d/%d, want 0/0", stats.Completed, stats.Failed)
	}
	if wp.PendingJobs() != 2 {
		t.Errorf("PendingJobs = %d, want 2", wp.PendingJobs())
	}
}

func TestWorkerPool_StopDrains(t *testing.T) {
	var (
		mu      sync.Mutex
		results []string
		cleaned int
	)
	wp := NewWorkerPool(WorkerPoolOptions{
		Processor: fakeProcessor{},
		Workers:   2,
		QueueSize: 10,
		OnResult: func(job Job, res *Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				results = append(results, res.Text)
			}
		},
		Log: zerolog.Nop(),
	})
	for i := 0; i < 3; i++ {
		wp.Enqueue(Job{ID: "x", AudioPath: "a.wav", Cleanup: func(error) {
			mu.Lock()
			cleaned++
			mu.Unlock()
		}})
	}
	wp.Start()

	done := make(chan struct{})
	go func() {
		wp.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return within 5 seconds")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 3 {
		t.Errorf("results = %d, want 3", len(results))
	}
	if cleaned != 3 {
		t.Errorf("cleanup calls = %d, want 3", cleaned)
	}
	if got := wp.Stats().Completed; got != 3 {
		t.Errorf("Completed = %d, want 3", got)
	}
}

func TestWorkerPool_Failures(t *testing.T) {
	var gotErr error
	var mu sync.Mutex
	wp := NewWorkerPool(WorkerPoolOptions{
		Processor: fakeProcessor{err: ErrEmptyTranscript},
		Workers:   1,
		QueueSize: 1,
		OnResult: func(_ Job, _ *Result, err error) {
			mu.Lock()
			gotErr = err
			mu.Unlock()
		},
		Log: zerolog.Nop(),
	})
	wp.Enqueue(Job{ID: "1"})
	wp.Start()
	wp.Stop()

	if wp.FailedJobs() != 1 {
		t.Errorf("FailedJobs = %d, want 1", wp.FailedJobs())
	}
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(gotErr, ErrEmptyTranscript) {
		t.Errorf("OnResult err = %v, want ErrEmptyTranscript", gotErr)
	}
}

func TestWorkerPool_Workers(t *testing.T) {
	wp := newTestPool(4, 10)
	if wp.Workers() != 4 {
		t.Errorf("Workers = %d, want 4", wp.Workers())
	}
}
