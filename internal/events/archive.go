package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type reportStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
}

// ArchivePublisher stores every event as a JSON document under ArchiveKey.
type ArchivePublisher struct {
	store reportStore
	log   zerolog.Logger
}

func NewArchivePublisher(store reportStore, log zerolog.Logger) *ArchivePublisher {
	return &ArchivePublisher{store: store, log: log}
}

// ArchiveKey is the storage key of an event: {source}/{YYYY-MM-DD}/{id}.json,
// dated by the event's UTC creation day.
func ArchiveKey(e Event) string {
	return ArchiveKeyFor(e.Source, e.CreatedAt, e.ID)
}

// ArchiveKeyFor builds an archive key from its parts.
func ArchiveKeyFor(source string, day time.Time, id string) string {
	return fmt.Sprintf("%s/%s/%s.json", source, day.UTC().Format(time.DateOnly), id)
}

func (p *ArchivePublisher) Name() string { return "archive" }

func (p *ArchivePublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := ArchiveKey(e)
	if err := p.store.Save(ctx, key, payload, "application/json"); err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	p.log.Debug().Str("key", key).Str("event_id", e.ID).Msg("event archived")
	return nil
}

func (p *ArchivePublisher) Close() error { return nil }
