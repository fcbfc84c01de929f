package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/metrics"
)

// Multi publishes every event to all of its backends. A failing backend
// does not stop delivery to the others.
type Multi struct {
	pubs []Publisher
	log  zerolog.Logger
}

func NewMulti(log zerolog.Logger, pubs ...Publisher) *Multi {
	return &Multi{pubs: pubs, log: log}
}

func (m *Multi) Name() string { return "multi" }

// Backends lists the names of the configured backends.
func (m *Multi) Backends() []string {
	names := make([]string, len(m.pubs))
	for i, p := range m.pubs {
		names[i] = p.Name()
	}
	return names
}

func (m *Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.Publish(ctx, e); err != nil {
			metrics.EventsPublishedTotal.WithLabelValues(p.Name(), "error").Inc()
			m.log.Warn().Err(err).Str("backend", p.Name()).Str("event_id", e.ID).Msg("event publish failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(p.Name(), "ok").Inc()
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes a one-line summary of each event.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	ev := p.log.Info().
		Str("event_id", e.ID).
		Str("type", e.Type).
		Str("source", e.Source)
	if e.Subject != "" {
		ev = ev.Str("subject", e.Subject)
	}
	if e.Report != nil {
		q := e.Report.QualityAssessment
		ev = ev.
			Str("quality", q.QualityLevel).
			Float64("quality_factor", q.QualityFactor).
			Float64("accuracy", e.Report.Accuracy.Score).
			Int("words", e.Report.Statistics.TotalWords)
	}
	if e.Error != "" {
		ev = ev.Str("error", e.Error)
	}
	ev.Msg("analysis event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
