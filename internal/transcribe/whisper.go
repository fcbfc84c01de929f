package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint.
// Implements the Provider interface.
type WhisperClient struct {
	url     string
	model   string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

// whisperResponse is the verbose_json body. Servers built on faster-whisper
// add per-word probability and language_probability; OpenAI omits both.
type whisperResponse struct {
	Text                string           `json:"text"`
	Language            string           `json:"language"`
	LanguageProbability *float64         `json:"language_probability"`
	Duration            float64          `json:"duration"`
	Words               []whisperWord    `json:"words"`
	Segments            []whisperSegment `json:"segments"`
}

type whisperWord struct {
	Word        string   `json:"word"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Probability *float64 `json:"probability"`
}

type whisperSegment struct {
	Words []whisperWord `json:"words"`
}

// NewWhisperClient creates a new Whisper HTTP client. apiKey may be empty
// for self-hosted servers.
func NewWhisperClient(url, model, apiKey string, timeout time.Duration) *WhisperClient {
	return &WhisperClient{
		url:     url,
		model:   model,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (wc *WhisperClient) Name() string  { return "whisper" }
func (wc *WhisperClient) Model() string { return wc.model }

// Transcribe sends an audio file as multipart/form-data and requests
// word-level timestamps.
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	if wc.model != "" {
		w.WriteField("model", wc.model)
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	w.WriteField("language", lang)
	w.WriteField("temperature", fmt.Sprintf("%.2f", opts.Temperature))
	w.WriteField("response_format", "verbose_json")
	w.WriteField("timestamp_granularities[]", "word")
	if opts.Prompt != "" {
		w.WriteField("prompt", opts.Prompt)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if wc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+wc.apiKey)
	}

	resp, err := wc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: wc.Name(), StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result whisperResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.toResponse(), nil
}

func (r *whisperResponse) toResponse() *Response {
	src := r.Words
	if len(src) == 0 {
		for _, seg := range r.Segments {
			src = append(src, seg.Words...)
		}
	}

	var words []Word
	for _, ww := range src {
		words = append(words, Word{
			Word:       strings.TrimSpace(ww.Word),
			Start:      ww.Start,
			End:        ww.End,
			Confidence: ww.Probability,
		})
	}
	return &Response{
		Text:               strings.TrimSpace(r.Text),
		Language:           r.Language,
		LanguageConfidence: r.LanguageProbability,
		Duration:           r.Duration,
		Words:              words,
	}
}
