package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"os"
	"sync"
	"testing"

	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/config"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/transcribe"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:       ":0",
		MaxUploadMB:    1,
		MaxTextBytes:   1 << 20,
		RateLimitRPS:   0,
		MetricsEnabled: true,
	}
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Name() string { return "fake" }
func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// fakeTranscriber returns a fixed transcript and remembers the file it saw.
type fakeTranscriber struct {
	configured bool
	text       string
	language   string
	err        error

	lastPath string
	lastSize int64
}

func (f *fakeTranscriber) Configured() bool     { return f.configured }
func (f *fakeTranscriber) ProviderName() string { return "fake" }

func (f *fakeTranscriber) Process(_ context.Context, path string) (*transcribe.Result, error) {
	f.lastPath = path
	if info, err := os.Stat(path); err == nil {
		f.lastSize = info.Size()
	}
	if f.err != nil {
		return nil, f.err
	}
	conf := 0.9
	meta := analytics.Metadata{OverallConfidence: &conf}
	return &transcribe.Result{
		Text:     f.text,
		Language: f.language,
		FileSize: f.lastSize,
		Duration: 3.5,
		Provider: "fake",
		Metadata: meta,
		Report:   analytics.Analyze(f.text, &meta),
	}, nil
}

// buildUpload creates a multipart body with one file part.
func buildUpload(t *testing.T, field, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	} else {
		writer.WriteField("note", "no file")
	}
	writer.Close()
	return body, writer.FormDataContentType()
}
