// Package events fans finished analyses out to subscribers: the in-memory
// bus behind the SSE stream, MQTT, Kafka and the log.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/snarg/speech-analytics/internal/analytics"
)

// Event types.
const (
	TypeAnalysis            = "analysis"
	TypeTranscriptionFailed = "transcription_failed"
)

// Sources an event can come from.
const (
	SourceAPI    = "api"
	SourceUpload = "upload"
	SourceStream = "stream"
	SourceWatch  = "watch"
	SourceMQTT   = "mqtt"
)

// Event is one published analysis, or a failed attempt at one.
type Event struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	Source       string              `json:"source"`
	Subject      string              `json:"subject,omitempty"` // file name or topic the input came from
	Text         string              `json:"text,omitempty"`
	QualityLevel string              `json:"qualityLevel,omitempty"`
	Report       *analytics.Report   `json:"analytics,omitempty"`
	Metadata     *analytics.Metadata `json:"metadata,omitempty"`
	Error        string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// NewAnalysisEvent wraps a report in an event with a fresh id.
func NewAnalysisEvent(source, subject, text string, r *analytics.Report, meta *analytics.Metadata) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      TypeAnalysis,
		Source:    source,
		Subject:   subject,
		Text:      text,
		Report:    r,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if r != nil {
		e.QualityLevel = r.QualityAssessment.QualityLevel
	}
	return e
}

// NewFailureEvent records an input that could not be analyzed.
func NewFailureEvent(source, subject string, err error) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      TypeTranscriptionFailed,
		Source:    source,
		Subject:   subject,
		Error:     err.Error(),
		CreatedAt: time.Now().UTC(),
	}
}

// Publisher delivers events to one backend.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Name() string
	Close() error
}
