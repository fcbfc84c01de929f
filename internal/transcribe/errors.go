package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/snarg/speech-analytics/internal/audio"
)

var (
	ErrProviderNotConfigured = errors.New("transcription provider not configured")
	ErrEmptyTranscript       = errors.New("no transcription text returned")
	ErrTranscriptionFailed   = errors.New("transcription failed")
	ErrUnsupportedAudio      = errors.New("unsupported audio format")
	ErrRateLimited           = errors.New("transcription rate limited")
	ErrUnavailable           = errors.New("transcription service unavailable")

	ErrAudioNotFound = audio.ErrNotFound
	ErrAudioEmpty    = audio.ErrEmpty
	ErrAudioTooSmall = audio.ErrTooSmall
)

// StatusError is a non-2xx answer from an HTTP transcription backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap classifies the status so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrUnavailable
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnsupportedMediaType:
		return ErrUnsupportedAudio
	default:
		return ErrTranscriptionFailed
	}
}

// Retryable reports whether a provider call that failed with err is worth
// repeating.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrUnavailable):
		return true
	case errors.Is(err, ErrUnsupportedAudio),
		errors.Is(err, ErrTranscriptionFailed),
		errors.Is(err, ErrProviderNotConfigured),
		errors.Is(err, ErrAudioNotFound),
		errors.Is(err, ErrAudioEmpty),
		errors.Is(err, ErrAudioTooSmall),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	// Transport errors (connection refused, reset) carry no classification.
	return true
}

// UserMessage turns a transcription error into the short text shown to
// end users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProviderNotConfigured):
		return "Transcription service configuration error"
	case errors.Is(err, ErrAudioEmpty):
		return "Audio file is empty"
	case errors.Is(err, ErrAudioTooSmall):
		return "Audio file too small - may be corrupted"
	case errors.Is(err, ErrAudioNotFound):
		return "Audio file processing error"
	case errors.Is(err, ErrEmptyTranscript):
		return "No transcription text returned - audio may be silent or unclear"
	case errors.Is(err, ErrRateLimited):
		return "Too many requests - please wait and try again"
	case errors.Is(err, ErrUnsupportedAudio):
		return "Invalid audio format - try different audio source"
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(err.Error(), "timeout"):
		return "Transcription timed out - try shorter audio clip"
	case errors.Is(err, ErrUnavailable):
		return "Transcription service temporarily unavailable"
	default:
		return "Transcription failed - please try again with clearer audio"
	}
}
