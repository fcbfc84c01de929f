package transcribe

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeProvider struct {
	responses []*Response
	errs      []error
	calls     int
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func newTestService(p Provider) *Service {
	return NewService(ServiceOptions{
		Provider: p,
		Retry:    fastRetry(),
		Log:      zerolog.Nop(),
	})
}

func TestServiceProcess(t *testing.T) {
	p := &fakeProvider{
		errs: []error{&StatusError{StatusCode: 503}},
		responses: []*Response{nil, {
			Text:       "The committee reviewed the proposal. Everyone agreed on the budget.",
			Language:   "en",
			Confidence: ptr(0.9),
			Duration:   4,
		}},
	}
	path := writeAudio(t, 64_000)

	res, err := newTestService(p).Process(context.Background(), path)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (one retry)", p.calls)
	}
	if res.FileSize != 64_000 {
		t.Errorf("FileSize = %d", res.FileSize)
	}
	if res.Report == nil || res.Report.Statistics.TotalWords != 10 {
		t.Fatalf("Report = %+v", res.Report)
	}
	if res.Report.Accuracy.Source != "api" {
		t.Errorf("accuracy source = %q, want api", res.Report.Accuracy.Source)
	}
	if res.Provider != "fake" || res.Model != "fake-1" {
		t.Errorf("Provider/Model = %s/%s", res.Provider, res.Model)
	}
}

func TestServiceProcessErrors(t *testing.T) {
	t.Run("not_configured", func(t *testing.T) {
		s := newTestService(nil)
		if s.Configured() || s.ProviderName() != "none" {
			t.Error("service without provider should report unconfigured")
		}
		_, err := s.Process(context.Background(), "x.wav")
		if !errors.Is(err, ErrProviderNotConfigured) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("tiny_file", func(t *testing.T) {
		p := &fakeProvider{responses: []*Response{{Text: "hi"}}}
		_, err := newTestService(p).Process(context.Background(), writeAudio(t, 10))
		if !errors.Is(err, ErrAudioTooSmall) {
			t.Errorf("err = %v, want ErrAudioTooSmall", err)
		}
		if p.calls != 0 {
			t.Error("provider should not be called for invalid files")
		}
	})

	t.Run("empty_transcript", func(t *testing.T) {
		p := &fakeProvider{responses: []*Response{{Text: "   "}}}
		_, err := newTestService(p).Process(context.Background(), writeAudio(t, 4096))
		if !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("err = %v, want ErrEmptyTranscript", err)
		}
	})

	t.Run("permanent_provider_error", func(t *testing.T) {
		p := &fakeProvider{errs: []error{&StatusError{StatusCode: 400}}, responses: []*Response{nil}}
		_, err := newTestService(p).Process(context.Background(), writeAudio(t, 4096))
		if !errors.Is(err, ErrUnsupportedAudio) {
			t.Errorf("err = %v, want ErrUnsupportedAudio", err)
		}
		if p.calls != 1 {
			t.Errorf("calls = %d, want 1", p.calls)
		}
	})
}
