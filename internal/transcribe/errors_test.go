package transcribe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		code      int
		want      error
		retryable bool
	}{
		{429, ErrRateLimited, true},
		{500, ErrUnavailable, true},
		{503, ErrUnavailable, true},
		{400, ErrUnsupportedAudio, false},
		{415, ErrUnsupportedAudio, false},
		{401, ErrTranscriptionFailed, false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &StatusError{Provider: "whisper", StatusCode: tt.code})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: errors.Is(%v) = false", tt.code, tt.want)
		}
		if got := Retryable(err); got != tt.retryable {
			t.Errorf("status %d: Retryable = %v, want %v", tt.code, got, tt.retryable)
		}
	}
}

func TestRetryableTransportError(t *testing.T) {
	if !Retryable(errors.New("connection reset by peer")) {
		t.Error("unclassified errors should be retried")
	}
	if Retryable(context.Canceled) {
		t.Error("context.Canceled should not be retried")
	}
	if Retryable(nil) {
		t.Error("nil should not be retried")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrProviderNotConfigured, "Transcription service configuration error"},
		{ErrAudioEmpty, "Audio file is empty"},
		{ErrAudioTooSmall, "Audio file too small - may be corrupted"},
		{&StatusError{StatusCode: 429}, "Too many requests - please wait and try again"},
		{&StatusError{StatusCode: 502}, "Transcription service temporarily unavailable"},
		{&StatusError{StatusCode: 400}, "Invalid audio format - try different audio source"},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), "Transcription timed out - try shorter audio clip"},
		{ErrEmptyTranscript, "No transcription text returned - audio may be silent or unclear"},
		{errors.New("boom"), "Transcription failed - please try again with clearer audio"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}
}

func TestRetryPolicy(t *testing.T) {
	t.Run("retries_transient", func(t *testing.T) {
		calls := 0
		err := fastRetry().Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return &StatusError{StatusCode: 503}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("stops_on_permanent", func(t *testing.T) {
		calls := 0
		err := fastRetry().Do(context.Background(), func() error {
			calls++
			return &StatusError{StatusCode: 400}
		})
		if !errors.Is(err, ErrUnsupportedAudio) {
			t.Errorf("err = %v, want ErrUnsupportedAudio", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("gives_up", func(t *testing.T) {
		p := fastRetry()
		p.MaxElapsedTime = 20 * time.Millisecond
		err := p.Do(context.Background(), func() error {
			return &StatusError{StatusCode: 503}
		})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})
}
