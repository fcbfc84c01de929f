package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
)

// AssemblyAIClient transcribes through the official AssemblyAI SDK.
// Implements the Provider interface.
type AssemblyAIClient struct {
	client      *aai.Client
	speechModel string
}

// NewAssemblyAIClient creates a client. speechModel is e.g. "nano" or "best".
func NewAssemblyAIClient(apiKey, speechModel string) *AssemblyAIClient {
	return &AssemblyAIClient{
		client:      aai.NewClient(apiKey),
		speechModel: speechModel,
	}
}

func (ac *AssemblyAIClient) Name() string  { return "assemblyai" }
func (ac *AssemblyAIClient) Model() string { return ac.speechModel }

// Transcribe uploads the file and waits for the transcript to complete.
func (ac *AssemblyAIClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	params := &aai.TranscriptOptionalParams{
		LanguageCode: aai.TranscriptLanguageCode(lang),
		Punctuate:    aai.Bool(true),
		FormatText:   aai.Bool(true),
	}
	if ac.speechModel != "" {
		params.SpeechModel = aai.SpeechModel(ac.speechModel)
	}

	transcript, err := ac.client.Transcripts.TranscribeFromReader(ctx, f, params)
	if err != nil {
		return nil, fmt.Errorf("assemblyai transcribe: %w", err)
	}
	return responseFromTranscript(transcript)
}

// responseFromTranscript converts a finished SDK transcript. Word times
// arrive in milliseconds.
func responseFromTranscript(t aai.Transcript) (*Response, error) {
	if t.Status == aai.TranscriptStatusError {
		msg := "unknown transcription error"
		if t.Error != nil {
			msg = *t.Error
		}
		return nil, fmt.Errorf("%w: assemblyai: %s", ErrTranscriptionFailed, msg)
	}

	resp := &Response{
		Language:   string(t.LanguageCode),
		Confidence: t.Confidence,
	}
	if t.Text != nil {
		resp.Text = strings.TrimSpace(*t.Text)
	}
	if t.AudioDuration != nil {
		resp.Duration = float64(*t.AudioDuration)
	}

	for _, w := range t.Words {
		word := Word{Confidence: w.Confidence}
		if w.Text != nil {
			word.Word = *w.Text
		}
		if w.Start != nil {
			word.Start = float64(*w.Start) / 1000
		}
		if w.End != nil {
			word.End = float64(*w.End) / 1000
		}
		resp.Words = append(resp.Words, word)
	}
	return resp, nil
}
