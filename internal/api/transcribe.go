package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/audio"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/metrics"
	"github.com/snarg/speech-analytics/internal/transcribe"
)

const (
	audioField      = "audio"
	defaultLanguage = "auto-detected"
	multipartMemory = 32 << 20
)

// Transcriber turns a recording on disk into an analyzed transcript.
type Transcriber interface {
	Configured() bool
	ProviderName() string
	Process(ctx context.Context, path string) (*transcribe.Result, error)
}

// TranscriptionResponse is returned by the transcription endpoints.
type TranscriptionResponse struct {
	ID        string                `json:"id"`
	Text      string                `json:"text"`
	Analytics *analytics.Report     `json:"analytics"`
	Metadata  TranscriptionMetadata `json:"metadata"`
}

// TranscriptionMetadata describes the upload. The stream endpoint only
// reports the language.
type TranscriptionMetadata struct {
	FileSize *int64   `json:"fileSize,omitempty"`
	FileName string   `json:"fileName,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	Language string   `json:"language"`
	Provider string   `json:"provider,omitempty"`
}

// TranscribeHandler accepts recorded audio, transcribes it and returns the
// analytics report.
type TranscribeHandler struct {
	stt       Transcriber
	publisher events.Publisher
	maxUpload int64
	log       zerolog.Logger
}

func NewTranscribeHandler(stt Transcriber, publisher events.Publisher, maxUpload int64, log zerolog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		stt:       stt,
		publisher: publisher,
		maxUpload: maxUpload,
		log:       log.With().Str("handler", "transcribe").Logger(),
	}
}

// Routes registers the transcription endpoints.
func (h *TranscribeHandler) Routes(r chi.Router) {
	r.Post("/transcribe/upload", h.Upload)
	r.Post("/transcribe/stream", h.Stream)
}

// Upload handles POST /transcribe/upload: a complete recording file.
func (h *TranscribeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, events.SourceUpload)
}

// Stream handles POST /transcribe/stream: a chunk recorded in the browser.
func (h *TranscribeHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, events.SourceStream)
}

func (h *TranscribeHandler) handle(w http.ResponseWriter, r *http.Request, source string) {
	log := hlog.FromRequest(r)

	if h.stt == nil || !h.stt.Configured() {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrUnavailable,
			transcribe.UserMessage(transcribe.ErrProviderNotConfigured))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge,
				fmt.Sprintf("File upload error: file exceeds %d MB", h.maxUpload>>20))
			return
		}
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "File upload error: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(audioField)
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !audio.Accept(header.Filename, contentType) {
		WriteErrorWithCode(w, http.StatusUnsupportedMediaType, ErrUnsupportedMedia, fmt.Sprintf(
			"File upload error: Invalid file type. Supported formats: WAV, WebM, OGG, MP4, MP3, M4A. Received: %s with extension %s",
			contentType, filepath.Ext(header.Filename)))
		return
	}

	path, err := saveUpload(file, audio.ExtensionFor(header.Filename, contentType))
	if err != nil {
		log.Error().Err(err).Msg("failed to store upload")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "Audio file processing error")
		return
	}
	defer os.Remove(path)

	log.Info().
		Str("source", source).
		Str("file_name", header.Filename).
		Str("content_type", contentType).
		Int64("size", header.Size).
		Msg("transcribing upload")

	res, err := h.stt.Process(r.Context(), path)
	if err != nil {
		status, code := transcriptionStatus(err)
		log.Warn().Err(err).Str("source", source).Int("status", status).Msg("transcription failed")
		publish(r.Context(), h.publisher, events.NewFailureEvent(source, header.Filename, err))

		msg := transcribe.UserMessage(err)
		if source == events.SourceStream {
			WriteJSON(w, status, ErrorResponse{Error: "Stream transcription failed", Detail: msg, Code: code})
			return
		}
		WriteErrorWithCode(w, status, code, msg)
		return
	}

	metrics.ObserveReport(source, res.Report)
	meta := res.Metadata
	e := events.NewAnalysisEvent(source, header.Filename, res.Text, res.Report, &meta)
	publish(r.Context(), h.publisher, e)

	resp := TranscriptionResponse{
		ID:        e.ID,
		Text:      res.Text,
		Analytics: res.Report,
		Metadata: TranscriptionMetadata{
			Language: res.Language,
			Provider: res.Provider,
		},
	}
	if resp.Metadata.Language == "" {
		resp.Metadata.Language = defaultLanguage
	}
	if source == events.SourceUpload {
		size := res.FileSize
		resp.Metadata.FileSize = &size
		resp.Metadata.FileName = header.Filename
		if res.Duration > 0 {
			d := res.Duration
			resp.Metadata.Duration = &d
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

func saveUpload(src multipart.File, ext string) (string, error) {
	f, err := os.CreateTemp("", "speech-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

// transcriptionStatus maps a transcription failure to an HTTP status and code.
func transcriptionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, transcribe.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable, ErrUnavailable
	case errors.Is(err, transcribe.ErrAudioEmpty),
		errors.Is(err, transcribe.ErrAudioTooSmall),
		errors.Is(err, transcribe.ErrAudioNotFound):
		return http.StatusBadRequest, ErrBadRequest
	case errors.Is(err, transcribe.ErrUnsupportedAudio):
		return http.StatusUnsupportedMediaType, ErrUnsupportedMedia
	case errors.Is(err, transcribe.ErrEmptyTranscript):
		return http.StatusUnprocessableEntity, ErrNoTranscript
	case errors.Is(err, transcribe.ErrRateLimited):
		return http.StatusTooManyRequests, ErrRateLimited
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrTimeout
	case errors.Is(err, transcribe.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrUnavailable
	default:
		return http.StatusBadGateway, ErrUpstream
	}
}
