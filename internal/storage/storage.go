// Package storage archives analysis reports as JSON documents on local disk,
// in an S3-compatible bucket, or both.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/config"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("report not found")

const contentTypeJSON = "application/json"

// Store abstracts report storage backends.
type Store interface {
	// Save stores data. key format: {source}/{YYYY-MM-DD}/{id}.json
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// Open returns a reader for a stored report.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a report exists in any backend.
	Exists(ctx context.Context, key string) bool

	// Type returns "local", "s3", or "tiered".
	Type() string
}

// remoteStore is the part of the object store the tiered store, the
// pruner and the reconciler depend on.
type remoteStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) bool
}

// New creates a Store based on config. Returns the store and optional
// background services (uploader, pruner, reconciler) that the caller must
// Start/Stop. Returns an error if a bucket is configured but unreachable.
func New(cfg config.ArchiveConfig, log zerolog.Logger) (Store, []BackgroundService, error) {
	var services []BackgroundService

	if !cfg.ObjectStoreEnabled() {
		local := NewLocalStore(cfg.Dir)
		if cfg.Retention > 0 || cfg.MaxMB > 0 {
			services = append(services, NewPruner(cfg.Dir, cfg.Retention, cfg.MaxMB, nil, log))
		}
		return local, services, nil
	}

	objects, err := NewObjectStore(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("object store init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("object store startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("object store connection verified")

	if cfg.Dir == "" {
		return objects, nil, nil
	}

	// Tiered mode: local primary + bucket backup
	uploader := NewAsyncUploader(objects, cfg.UploadBuffer, cfg.UploadWorkers, log)
	tiered := NewTieredStore(objects, NewLocalStore(cfg.Dir), uploader, log)
	services = append(services, uploader)

	if cfg.Retention > 0 || cfg.MaxMB > 0 {
		services = append(services, NewPruner(cfg.Dir, cfg.Retention, cfg.MaxMB, objects, log))
	}
	services = append(services, NewUploadReconciler(cfg.Dir, objects, log))

	return tiered, services, nil
}

// BackgroundService is a stoppable background goroutine.
type BackgroundService interface {
	Start()
	Stop()
}
