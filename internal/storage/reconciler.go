package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// UploadReconciler scans the local archive for reports missing from the
// bucket and uploads them. Covers dropped async uploads and crash recovery.
type UploadReconciler struct {
	dir      string
	remote   remoteStore
	delay    time.Duration
	interval time.Duration
	window   time.Duration
	log      zerolog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewUploadReconciler creates a reconciler that checks for missing uploads.
func NewUploadReconciler(dir string, remote remoteStore, log zerolog.Logger) *UploadReconciler {
	return &UploadReconciler{
		dir:      dir,
		remote:   remote,
		delay:    2 * time.Minute,
		interval: 5 * time.Minute,
		window:   24 * time.Hour,
		log:      log.With().Str("component", "upload-reconciler").Logger(),
		stop:     make(chan struct{}),
	}
}

func (r *UploadReconciler) Start() { go r.loop() }
func (r *UploadReconciler) Stop()  { r.stopOnce.Do(func() { close(r.stop) }) }

func (r *UploadReconciler) loop() {
	// Delay first run to let startup uploads settle
	select {
	case <-time.After(r.delay):
	case <-r.stop:
		return
	}

	r.reconcile()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.reconcile()
		case <-r.stop:
			return
		}
	}
}

// reconcile walks {source}/{date}/ directories inside the window and
// returns how many reports were uploaded and how many failed.
func (r *UploadReconciler) reconcile() (uploaded, failed int) {
	checked := 0
	cutoff := time.Now().Add(-r.window).Truncate(24 * time.Hour)

	srcDirs, _ := os.ReadDir(r.dir)
	for _, srcDir := range srcDirs {
		if !srcDir.IsDir() {
			continue
		}
		srcPath := filepath.Join(r.dir, srcDir.Name())
		dateDirs, _ := os.ReadDir(srcPath)
		for _, dateDir := range dateDirs {
			if !dateDir.IsDir() {
				continue
			}
			dirDate, err := time.Parse(time.DateOnly, dateDir.Name())
			if err == nil && dirDate.Before(cutoff) {
				continue
			}

			datePath := filepath.Join(srcPath, dateDir.Name())
			files, _ := os.ReadDir(datePath)
			for _, f := range files {
				if f.IsDir() || isTempFile(f.Name()) {
					continue
				}
				checked++
				key := srcDir.Name() + "/" + dateDir.Name() + "/" + f.Name()

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				exists := r.remote.Exists(ctx, key)
				cancel()
				if exists {
					continue
				}

				data, readErr := os.ReadFile(filepath.Join(datePath, f.Name()))
				if readErr != nil {
					continue
				}

				ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
				if saveErr := r.remote.Save(ctx, key, data, contentTypeJSON); saveErr != nil {
					r.log.Warn().Err(saveErr).Str("key", key).Msg("reconcile upload failed")
					failed++
				} else {
					uploaded++
				}
				cancel()
			}
		}
	}

	if uploaded > 0 || failed > 0 {
		r.log.Info().
			Int("uploaded", uploaded).
			Int("failed", failed).
			Int("checked", checked).
			Msg("reconcile complete")
	}
	return uploaded, failed
}
