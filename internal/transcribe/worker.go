package transcribe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Job is a recording waiting for transcription.
type Job struct {
	ID        string
	AudioPath string
	Source    string          // "upload", "watch", ...
	Cleanup   func(err error) // called after OnResult with the job's outcome
}

// QueueStats reports the current state of the transcription queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Processor turns an audio file into an analyzed transcript. *Service
// implements it.
type Processor interface {
	Process(ctx context.Context, path string) (*Result, error)
}

// ResultFunc receives every finished job. err is non-nil on failure.
type ResultFunc func(job Job, res *Result, err error)

// WorkerPoolOptions configures the transcription worker pool.
type WorkerPoolOptions struct {
	Processor  Processor
	Workers    int
	QueueSize  int
	JobTimeout time.Duration // 0 = no per-job deadline
	OnResult   ResultFunc
	Log        zerolog.Logger
}

// WorkerPool manages transcription workers.
type WorkerPool struct {
	jobs   chan Job
	opts   WorkerPoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a new transcription worker pool.
func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:   make(chan Job, opts.QueueSize),
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", cap(wp.jobs)).Msg("transcription worker pool started")
}

// Stop signals workers to drain the queue and waits for completion.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("transcription worker pool stopped")
}

// Enqueue adds a job to the queue. Returns false if the queue is full or
// the pool is stopped.
func (wp *WorkerPool) Enqueue(j Job) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return false
	}
	select {
	case wp.jobs <- j:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

func (wp *WorkerPool) PendingJobs() int     { return len(wp.jobs) }
func (wp *WorkerPool) CompletedJobs() int64 { return wp.completed.Load() }
func (wp *WorkerPool) FailedJobs() int64    { return wp.failed.Load() }

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.opts.Workers }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		res, err := wp.processJob(job)
		if err != nil {
			wp.failed.Add(1)
			log.Warn().Err(err).
				Str("job_id", job.ID).
				Str("file", job.AudioPath).
				Msg("transcription failed")
		} else {
			wp.completed.Add(1)
		}
		if wp.opts.OnResult != nil {
			wp.opts.OnResult(job, res, err)
		}
		if job.Cleanup != nil {
			job.Cleanup(err)
		}
	}
}

func (wp *WorkerPool) processJob(job Job) (*Result, error) {
	ctx := wp.ctx
	if wp.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.opts.JobTimeout)
		defer cancel()
	}
	return wp.opts.Processor.Process(ctx, job.AudioPath)
}
