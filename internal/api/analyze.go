package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/metrics"
)

const publishTimeout = 5 * time.Second

// Analyzer scores a transcript.
type Analyzer interface {
	Analyze(text string, meta *analytics.Metadata) *analytics.Report
}

// AnalyzeRequest is the transcript contract accepted by POST /analyze.
// Text must be present but may be empty.
type AnalyzeRequest struct {
	Text               *string           `json:"text" validate:"required"`
	Confidence         *float64          `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	WordConfidenceAvg  *float64          `json:"wordConfidenceAvg,omitempty" validate:"omitempty,gte=0,lte=1"`
	WordDistribution   *WordDistribution `json:"wordDistribution,omitempty"`
	LanguageConfidence *float64          `json:"languageConfidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	DurationSeconds    *float64          `json:"durationSeconds,omitempty" validate:"omitempty,gte=0"`
	UncertainWords     []UncertainWord   `json:"uncertainWords,omitempty" validate:"omitempty,max=100,dive"`
}

type WordDistribution struct {
	Excellent int `json:"excellent" validate:"gte=0"`
	Good      int `json:"good" validate:"gte=0"`
	Fair      int `json:"fair" validate:"gte=0"`
	Poor      int `json:"poor" validate:"gte=0"`
}

type UncertainWord struct {
	Text       string  `json:"text" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Start      int64   `json:"start" validate:"gte=0"`
	End        int64   `json:"end" validate:"gte=0"`
}

// Metadata converts the request into engine metadata.
func (req *AnalyzeRequest) Metadata() *analytics.Metadata {
	meta := &analytics.Metadata{
		OverallConfidence:  req.Confidence,
		WordConfidenceAvg:  req.WordConfidenceAvg,
		LanguageConfidence: req.LanguageConfidence,
		DurationSeconds:    req.DurationSeconds,
	}
	if d := req.WordDistribution; d != nil {
		meta.WordDistribution = &analytics.Distribution{
			Excellent: d.Excellent,
			Good:      d.Good,
			Fair:      d.Fair,
			Poor:      d.Poor,
		}
		meta.LowConfidenceWords = d.Poor
	}
	for _, w := range req.UncertainWords {
		meta.UncertainWords = append(meta.UncertainWords, analytics.WordConfidence{
			Text:       w.Text,
			Confidence: w.Confidence,
			Start:      w.Start,
			End:        w.End,
		})
	}
	return meta
}

// AnalysisResponse is returned by POST /analyze.
type AnalysisResponse struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Analytics *analytics.Report `json:"analytics"`
}

type AnalyzeHandler struct {
	analyzer     Analyzer
	publisher    events.Publisher
	validate     *validator.Validate
	maxTextBytes int64
	log          zerolog.Logger
}

func NewAnalyzeHandler(analyzer Analyzer, publisher events.Publisher, maxTextBytes int64, log zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:     analyzer,
		publisher:    publisher,
		validate:     newValidator(),
		maxTextBytes: maxTextBytes,
		log:          log.With().Str("handler", "analyze").Logger(),
	}
}

// Routes registers the analyze endpoint.
func (h *AnalyzeHandler) Routes(r chi.Router) {
	r.Post("/analyze", h.Analyze)
}

// Analyze handles POST /api/v1/analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	// Room for JSON escaping of the text plus the metadata fields.
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxTextBytes+64<<10)

	var req AnalyzeRequest
	if err := DecodeJSON(r, &req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "request body too large")
			return
		}
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Detail: describeValidation(err),
			Code:   ErrValidation,
		})
		return
	}
	if int64(len(*req.Text)) > h.maxTextBytes {
		WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, ErrPayloadTooLarge,
			fmt.Sprintf("text exceeds %d bytes", h.maxTextBytes))
		return
	}

	text := *req.Text
	meta := req.Metadata()
	report := h.analyzer.Analyze(text, meta)
	metrics.ObserveReport(events.SourceAPI, report)

	e := events.NewAnalysisEvent(events.SourceAPI, "", text, report, meta)
	publish(r.Context(), h.publisher, e)

	WriteJSON(w, http.StatusOK, AnalysisResponse{ID: e.ID, Text: text, Analytics: report})
}

// publish delivers e without tying it to the request lifetime. Failures are
// logged by the publisher and never fail the request.
func publish(ctx context.Context, pub events.Publisher, e events.Event) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	_ = pub.Publish(ctx, e)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "AnalyzeRequest.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", field, fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be <= %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must have at most %s items", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
