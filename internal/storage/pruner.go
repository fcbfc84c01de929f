package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pruner evicts old reports from the local archive by age and/or total
// size. When a bucket backs the archive, a report is only removed once it
// exists in the bucket.
type Pruner struct {
	dir       string
	retention time.Duration
	maxBytes  int64
	interval  time.Duration
	remote    remoteStore
	log       zerolog.Logger
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewPruner creates a pruner. remote may be nil for a local-only archive.
func NewPruner(dir string, retention time.Duration, maxMB int64, remote remoteStore, log zerolog.Logger) *Pruner {
	return &Pruner{
		dir:       dir,
		retention: retention,
		maxBytes:  maxMB << 20,
		interval:  1 * time.Hour,
		remote:    remote,
		log:       log.With().Str("component", "archive-pruner").Logger(),
		stop:      make(chan struct{}),
	}
}

func (p *Pruner) Start() {
	go p.loop()
}

func (p *Pruner) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *Pruner) loop() {
	// Run once on startup to clear any backlog from downtime
	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.prune()
		case <-p.stop:
			return
		}
	}
}

// PruneStats summarizes one prune pass.
type PruneStats struct {
	Pruned          int
	FreedBytes      int64
	RemainingBytes  int64
	SkippedNotSaved int
}

func (p *Pruner) prune() PruneStats {
	var stats PruneStats
	if p.retention == 0 && p.maxBytes == 0 {
		return stats
	}

	cutoff := time.Now().Add(-p.retention)

	type fileEntry struct {
		path    string
		key     string
		modTime time.Time
		size    int64
	}
	var files []fileEntry
	var totalSize int64

	filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || isTempFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(p.dir, path)
		if relErr != nil {
			return nil
		}
		files = append(files, fileEntry{
			path:    path,
			key:     filepath.ToSlash(rel),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
		totalSize += info.Size()
		return nil
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		expired := p.retention > 0 && f.modTime.Before(cutoff)
		overSize := p.maxBytes > 0 && totalSize > p.maxBytes
		if !expired && !overSize {
			continue
		}

		if p.remote != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			saved := p.remote.Exists(ctx, f.key)
			cancel()
			if !saved {
				stats.SkippedNotSaved++
				p.log.Warn().Str("key", f.key).Msg("skipping prune: report not in bucket")
				continue
			}
		}
		if err := os.Remove(f.path); err == nil {
			stats.Pruned++
			stats.FreedBytes += f.size
			totalSize -= f.size
		}
	}
	stats.RemainingBytes = totalSize

	p.removeEmptyDirs()

	if stats.Pruned > 0 || stats.SkippedNotSaved > 0 {
		p.log.Info().
			Int("pruned", stats.Pruned).
			Str("freed", humanizeBytes(stats.FreedBytes)).
			Str("remaining", humanizeBytes(stats.RemainingBytes)).
			Int("skipped_not_in_bucket", stats.SkippedNotSaved).
			Msg("archive prune complete")
	}
	return stats
}

// removeEmptyDirs clears {source}/{date} directories left empty by a prune.
func (p *Pruner) removeEmptyDirs() {
	entries, _ := os.ReadDir(p.dir)
	for _, srcDir := range entries {
		if !srcDir.IsDir() {
			continue
		}
		srcPath := filepath.Join(p.dir, srcDir.Name())
		dateDirs, _ := os.ReadDir(srcPath)
		for _, dateDir := range dateDirs {
			if !dateDir.IsDir() {
				continue
			}
			datePath := filepath.Join(srcPath, dateDir.Name())
			remaining, _ := os.ReadDir(datePath)
			if len(remaining) == 0 {
				os.Remove(datePath)
			}
		}
		remaining, _ := os.ReadDir(srcPath)
		if len(remaining) == 0 {
			os.Remove(srcPath)
		}
	}
}

func humanizeBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
