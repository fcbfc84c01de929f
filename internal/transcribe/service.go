package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/audio"
	"github.com/snarg/speech-analytics/internal/metrics"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Provider        Provider // nil disables transcription
	Engine          *analytics.Engine
	Language        string
	Temperature     float64
	PreprocessAudio bool
	Timeout         time.Duration
	Retry           RetryPolicy
	Log             zerolog.Logger
}

// Result is a transcribed and analyzed recording.
type Result struct {
	Text     string
	Language string
	FileSize int64
	Duration float64
	Provider string
	Model    string
	Metadata analytics.Metadata
	Report   *analytics.Report
	Elapsed  time.Duration
}

// Service runs a recording through validation, optional preprocessing,
// the provider and the analytics engine.
type Service struct {
	provider Provider
	engine   *analytics.Engine
	opts     ServiceOptions
	log      zerolog.Logger
}

func NewService(opts ServiceOptions) *Service {
	if opts.Engine == nil {
		opts.Engine = analytics.New()
	}
	return &Service{
		provider: opts.Provider,
		engine:   opts.Engine,
		opts:     opts,
		log:      opts.Log,
	}
}

// Configured reports whether a provider is available.
func (s *Service) Configured() bool { return s.provider != nil }

// ProviderName returns the provider name, or "none".
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// Process transcribes and analyzes the audio file at path. The file is
// left in place; the caller owns it.
func (s *Service) Process(ctx context.Context, path string) (*Result, error) {
	if s.provider == nil {
		return nil, ErrProviderNotConfigured
	}
	start := time.Now()

	size, err := audio.Validate(path)
	if err != nil {
		return nil, err
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	transcribePath := path
	if s.opts.PreprocessAudio {
		processed, cleanup, err := Preprocess(ctx, path)
		if err != nil {
			s.log.Warn().Err(err).Str("file", path).Msg("preprocessing failed, using original audio")
		} else {
			transcribePath = processed
			defer cleanup()
		}
	}

	resp, err := s.transcribe(ctx, transcribePath)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, ErrEmptyTranscript
	}
	resp.Text = text

	meta := BuildMetadata(resp, size)
	report := s.engine.Analyze(text, &meta)

	res := &Result{
		Text:     text,
		Language: resp.Language,
		FileSize: size,
		Duration: resp.Duration,
		Provider: s.provider.Name(),
		Model:    s.provider.Model(),
		Metadata: meta,
		Report:   report,
		Elapsed:  time.Since(start),
	}

	s.log.Debug().
		Str("file", path).
		Str("provider", res.Provider).
		Int("words", report.Statistics.TotalWords).
		Str("quality", report.QualityAssessment.QualityLevel).
		Dur("elapsed", res.Elapsed).
		Msg("transcription analyzed")
	return res, nil
}

func (s *Service) transcribe(ctx context.Context, path string) (*Response, error) {
	name := s.provider.Name()
	opts := TranscribeOpts{Language: s.opts.Language, Temperature: s.opts.Temperature}

	var resp *Response
	attempt := 0
	err := s.opts.Retry.Do(ctx, func() error {
		attempt++
		callStart := time.Now()
		r, err := s.provider.Transcribe(ctx, path, opts)
		metrics.TranscriptionDuration.WithLabelValues(name).Observe(time.Since(callStart).Seconds())
		if err != nil {
			metrics.TranscriptionsTotal.WithLabelValues(name, "error").Inc()
			s.log.Warn().Err(err).Str("provider", name).Int("attempt", attempt).Msg("transcription attempt failed")
			return err
		}
		metrics.TranscriptionsTotal.WithLabelValues(name, "ok").Inc()
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return resp, nil
}
