package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/audio"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/metrics"
	"github.com/snarg/speech-analytics/internal/transcribe"
)

// Subdirectories handled files are moved into.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

const defaultDebounce = 500 * time.Millisecond

// Enqueuer accepts audio for background transcription. *transcribe.WorkerPool
// implements it.
type Enqueuer interface {
	Enqueue(j transcribe.Job) bool
}

// WatcherOptions configures a FileWatcher.
type WatcherOptions struct {
	Dir      string
	Ingester *Ingester
	Queue    Enqueuer // nil leaves audio files untouched
	Debounce time.Duration
	Log      zerolog.Logger
}

// FileWatcher monitors a drop directory. Transcript JSON files are analyzed
// directly; audio files are queued for transcription. Handled files move to
// processed/ or failed/ so nothing is analyzed twice.
type FileWatcher struct {
	dir      string
	ingester *Ingester
	queue    Enqueuer
	debounce time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	// Audio files handed to the queue and not finished yet.
	inflightMu sync.Mutex
	inflight   map[string]bool

	// Stats
	filesProcessed atomic.Int64
	filesFailed    atomic.Int64
	status         atomic.Value // string: "starting", "backfilling", "watching", "stopped"
}

func NewFileWatcher(opts WatcherOptions) *FileWatcher {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	fw := &FileWatcher{
		dir:            opts.Dir,
		ingester:       opts.Ingester,
		queue:          opts.Queue,
		debounce:       opts.Debounce,
		log:            opts.Log,
		debounceTimers: make(map[string]*time.Timer),
		inflight:       make(map[string]bool),
	}
	fw.status.Store("starting")
	return fw
}

// Run watches the directory until ctx is cancelled. Files already present
// are backfilled first.
func (fw *FileWatcher) Run(ctx context.Context) error {
	for _, sub := range []string{"", ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(fw.dir, sub), 0o755); err != nil {
			return fmt.Errorf("prepare watch dir: %w", err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(fw.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", fw.dir, err)
	}
	fw.watcher = w
	fw.ctx = ctx

	fw.log.Info().
		Str("watch_dir", fw.dir).
		Bool("audio", fw.queue != nil).
		Msg("file watcher initialized")

	fw.backfill()
	fw.status.Store("watching")

	fw.watchLoop(ctx)
	fw.stop()
	return nil
}

func (fw *FileWatcher) stop() {
	fw.status.Store("stopped")
	fw.watcher.Close()

	fw.debounceMu.Lock()
	for path, t := range fw.debounceTimers {
		t.Stop()
		delete(fw.debounceTimers, path)
	}
	fw.debounceMu.Unlock()

	fw.log.Info().
		Int64("files_processed", fw.filesProcessed.Load()).
		Int64("files_failed", fw.filesFailed.Load()).
		Msg("file watcher stopped")
}

// WatcherStatus is a point-in-time view of a FileWatcher.
type WatcherStatus struct {
	Status    string `json:"status"`
	Directory string `json:"directory"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
}

// Status returns the current watcher status.
func (fw *FileWatcher) Status() *WatcherStatus {
	s, _ := fw.status.Load().(string)
	return &WatcherStatus{
		Status:    s,
		Directory: fw.dir,
		Processed: fw.filesProcessed.Load(),
		Failed:    fw.filesFailed.Load(),
	}
}

func (fw *FileWatcher) FilesProcessed() int64 { return fw.filesProcessed.Load() }
func (fw *FileWatcher) FilesFailed() int64    { return fw.filesFailed.Load() }

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if kindOf(event.Name) == "" {
				continue
			}
			fw.scheduleProcess(event.Name)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess debounces file processing. This coalesces rapid
// Create+Write events and ensures the file is fully written before reading.
func (fw *FileWatcher) scheduleProcess(path string) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if t, ok := fw.debounceTimers[path]; ok {
		t.Reset(fw.debounce)
		return
	}

	fw.debounceTimers[path] = time.AfterFunc(fw.debounce, func() {
		fw.debounceMu.Lock()
		delete(fw.debounceTimers, path)
		fw.debounceMu.Unlock()

		fw.processFile(path)
	})
}

const (
	kindTranscript = "transcript"
	kindAudio      = "audio"
)

func kindOf(path string) string {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return ""
	}
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return kindTranscript
	}
	if audio.IsSupportedExtension(name) {
		return kindAudio
	}
	return ""
}

func (fw *FileWatcher) processFile(path string) {
	if fw.ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	switch kindOf(path) {
	case kindTranscript:
		fw.processTranscript(path)
	case kindAudio:
		fw.queueAudio(path)
	}
}

func (fw *FileWatcher) processTranscript(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fw.log.Warn().Err(err).Str("path", path).Msg("failed to read transcript file")
		return
	}

	_, err = fw.ingester.AnalyzeTranscript(fw.ctx, events.SourceWatch, filepath.Base(path), data)
	fw.settle(path, kindTranscript, err)
}

func (fw *FileWatcher) queueAudio(path string) {
	if fw.queue == nil {
		fw.log.Debug().Str("path", path).Msg("no transcription provider, leaving audio file")
		return
	}

	fw.inflightMu.Lock()
	if fw.inflight[path] {
		fw.inflightMu.Unlock()
		return
	}
	fw.inflight[path] = true
	fw.inflightMu.Unlock()

	job := transcribe.Job{
		ID:        uuid.NewString(),
		AudioPath: path,
		Source:    events.SourceWatch,
		Cleanup: func(err error) {
			fw.settle(path, kindAudio, err)
			fw.inflightMu.Lock()
			delete(fw.inflight, path)
			fw.inflightMu.Unlock()
		},
	}
	if !fw.queue.Enqueue(job) {
		fw.inflightMu.Lock()
		delete(fw.inflight, path)
		fw.inflightMu.Unlock()
		fw.log.Warn().Str("path", path).Msg("transcription queue full, audio file left for next scan")
		return
	}
	fw.log.Debug().Str("path", path).Str("job_id", job.ID).Msg("audio file queued")
}

// settle moves a handled file out of the watch directory and counts it.
func (fw *FileWatcher) settle(path, kind string, err error) {
	dest, status := ProcessedDir, "ok"
	if err != nil {
		dest, status = FailedDir, "error"
		fw.filesFailed.Add(1)
		fw.log.Warn().Err(err).Str("path", path).Msg("failed to ingest file")
	} else {
		fw.filesProcessed.Add(1)
	}
	metrics.FilesIngestedTotal.WithLabelValues(kind, status).Inc()

	target := filepath.Join(fw.dir, dest, filepath.Base(path))
	if _, statErr := os.Stat(target); statErr == nil {
		ext := filepath.Ext(target)
		target = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(target, ext), time.Now().UnixNano(), ext)
	}
	if mvErr := os.Rename(path, target); mvErr != nil && !errors.Is(mvErr, os.ErrNotExist) {
		fw.log.Error().Err(mvErr).Str("path", path).Str("target", target).Msg("failed to move ingested file")
	}
}

// backfill handles files that were dropped while the service was down.
func (fw *FileWatcher) backfill() {
	fw.status.Store("backfilling")
	start := time.Now()

	entries, err := os.ReadDir(fw.dir)
	if err != nil {
		fw.log.Warn().Err(err).Msg("backfill: failed to list watch dir")
		return
	}

	n := 0
	for _, e := range entries {
		if fw.ctx.Err() != nil {
			fw.log.Info().Int("processed", n).Msg("backfill interrupted by shutdown")
			return
		}
		if e.IsDir() || kindOf(e.Name()) == "" {
			continue
		}
		fw.processFile(filepath.Join(fw.dir, e.Name()))
		n++
	}

	fw.log.Info().
		Int("files", n).
		Dur("elapsed", time.Since(start)).
		Msg("backfill complete")
}
