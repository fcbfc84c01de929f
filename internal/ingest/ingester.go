// Package ingest feeds transcripts that arrive outside the HTTP API into the
// analytics engine: files dropped into a watch directory, MQTT messages and
// finished background transcriptions. Every outcome is published as an event.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/metrics"
	"github.com/snarg/speech-analytics/internal/transcribe"
)

const publishTimeout = 5 * time.Second

// ErrMissingText is returned for JSON documents without a "text" field.
var ErrMissingText = errors.New("transcript has no text field")

// Analyzer scores a transcript.
type Analyzer interface {
	Analyze(text string, meta *analytics.Metadata) *analytics.Report
}

type inputDoc struct {
	Text *string `json:"text"`
	analytics.Metadata
}

// DecodeInput parses a transcript in the input contract. Payloads that are
// not a JSON object are taken as the raw transcript text.
func DecodeInput(data []byte) (analytics.Input, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return analytics.Input{Text: string(trimmed)}, nil
	}

	var doc inputDoc
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return analytics.Input{}, fmt.Errorf("decode transcript: %w", err)
	}
	if doc.Text == nil {
		return analytics.Input{}, ErrMissingText
	}
	return analytics.Input{Text: *doc.Text, Metadata: doc.Metadata}, nil
}

// Options configures an Ingester.
type Options struct {
	Analyzer  Analyzer
	Publisher events.Publisher
	Log       zerolog.Logger
}

// Ingester analyzes transcripts from non-HTTP sources and publishes the results.
type Ingester struct {
	analyzer  Analyzer
	publisher events.Publisher
	log       zerolog.Logger
}

func New(opts Options) *Ingester {
	if opts.Analyzer == nil {
		opts.Analyzer = analytics.New()
	}
	return &Ingester{
		analyzer:  opts.Analyzer,
		publisher: opts.Publisher,
		log:       opts.Log,
	}
}

// AnalyzeTranscript decodes data, analyzes it and publishes the result.
// subject names where it came from (file name or topic).
func (in *Ingester) AnalyzeTranscript(ctx context.Context, source, subject string, data []byte) (events.Event, error) {
	input, err := DecodeInput(data)
	if err != nil {
		return events.Event{}, err
	}

	meta := input.Metadata
	report := in.analyzer.Analyze(input.Text, &meta)
	metrics.ObserveReport(source, report)

	e := events.NewAnalysisEvent(source, subject, input.Text, report, &meta)
	in.publish(ctx, e)

	in.log.Debug().
		Str("source", source).
		Str("subject", subject).
		Str("event_id", e.ID).
		Int("words", report.Statistics.TotalWords).
		Str("quality", report.QualityAssessment.QualityLevel).
		Msg("transcript analyzed")
	return e, nil
}

// HandleMessage analyzes a transcript received over MQTT. It has the
// mqttclient.MessageHandler signature.
func (in *Ingester) HandleMessage(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if _, err := in.AnalyzeTranscript(ctx, events.SourceMQTT, topic, payload); err != nil {
		in.log.Warn().Err(err).Str("topic", topic).Int("payload_size", len(payload)).Msg("dropping mqtt transcript")
		in.publish(ctx, events.NewFailureEvent(events.SourceMQTT, topic, err))
	}
}

// OnTranscribed publishes the outcome of a background transcription job.
// It has the transcribe.ResultFunc signature.
func (in *Ingester) OnTranscribed(job transcribe.Job, res *transcribe.Result, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	subject := filepath.Base(job.AudioPath)
	if err != nil {
		in.publish(ctx, events.NewFailureEvent(job.Source, subject, err))
		return
	}

	metrics.ObserveReport(job.Source, res.Report)
	meta := res.Metadata
	in.publish(ctx, events.NewAnalysisEvent(job.Source, subject, res.Text, res.Report, &meta))
}

func (in *Ingester) publish(ctx context.Context, e events.Event) {
	if in.publisher == nil {
		return
	}
	_ = in.publisher.Publish(ctx, e)
}
