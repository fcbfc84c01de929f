package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "assemblyai", "whisper"
	Model() string // model identifier for logs and metadata
}

// TranscribeOpts are per-request options. Zero values leave the
// provider's default in place.
type TranscribeOpts struct {
	Language    string
	Temperature float64
	Prompt      string
}

// Response is the common transcription result from any provider.
// Confidence fields are nil when the provider does not report them.
type Response struct {
	Text               string
	Language           string
	LanguageConfidence *float64
	Confidence         *float64
	Duration           float64 // audio duration in seconds
	Words              []Word  // nil if provider doesn't support word timestamps
}

// Word is a timestamped word from any STT provider.
type Word struct {
	Word       string
	Start      float64 // seconds
	End        float64 // seconds
	Confidence *float64
}
