package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-analytics/internal/analytics"
	"github.com/snarg/speech-analytics/internal/events"
)

func newTestAnalyzeHandler(pub *fakePublisher, maxText int64) *AnalyzeHandler {
	return NewAnalyzeHandler(analytics.New(), pub, maxText, zerolog.Nop())
}

func postAnalyze(h *AnalyzeHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)
	return rec
}

func TestAnalyze_Success(t *testing.T) {
	pub := &fakePublisher{}
	h := newTestAnalyzeHandler(pub, 1<<20)

	rec := postAnalyze(h, `{
		"text": "We will ship the release on Friday. The team is ready.",
		"confidence": 0.92,
		"wordDistribution": {"excellent": 9, "good": 2, "fair": 0, "poor": 0},
		"wordConfidenceAvg": 0.93
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp AnalysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected non-empty id")
	}
	if resp.Analytics == nil || resp.Analytics.Statistics.TotalWords != 11 {
		t.Fatalf("analytics = %+v, want 11 words", resp.Analytics)
	}
	if resp.Analytics.Accuracy.Source != analytics.SourceWordLevel {
		t.Errorf("accuracy source = %q, want word-level", resp.Analytics.Accuracy.Source)
	}

	got := pub.published()
	if len(got) != 1 {
		t.Fatalf("published %d events, want 1", len(got))
	}
	if got[0].ID != resp.ID || got[0].Source != events.SourceAPI {
		t.Errorf("event = %+v, want id %s from api", got[0], resp.ID)
	}
}

func TestAnalyze_EmptyTextYieldsEmptyReport(t *testing.T) {
	h := newTestAnalyzeHandler(&fakePublisher{}, 1<<20)
	rec := postAnalyze(h, `{"text": ""}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp AnalysisResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Analytics.QualityAssessment.AdjustmentReason != analytics.ReasonNoText {
		t.Errorf("reason = %q, want %q", resp.Analytics.QualityAssessment.AdjustmentReason, analytics.ReasonNoText)
	}
}

func TestAnalyze_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"missing_text", `{"confidence": 0.5}`, "text is required"},
		{"confidence_above_one", `{"text": "hi", "confidence": 1.5}`, "confidence must be <= 1"},
		{"negative_duration", `{"text": "hi", "durationSeconds": -2}`, "durationSeconds must be >= 0"},
		{"negative_bucket", `{"text": "hi", "wordDistribution": {"excellent": -1}}`, "wordDistribution.excellent must be >= 0"},
		{"uncertain_word_confidence", `{"text": "hi", "uncertainWords": [{"text": "hi", "confidence": 2}]}`, "uncertainWords[0].confidence must be <= 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAnalyzeHandler(&fakePublisher{}, 1<<20)
			rec := postAnalyze(h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body ErrorResponse
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Code != ErrValidation {
				t.Errorf("code = %q, want %q", body.Code, ErrValidation)
			}
			if !strings.Contains(body.Detail, tt.wantDetail) {
				t.Errorf("detail = %q, want it to contain %q", body.Detail, tt.wantDetail)
			}
		})
	}
}

func TestAnalyze_MalformedBody(t *testing.T) {
	h := newTestAnalyzeHandler(&fakePublisher{}, 1<<20)
	rec := postAnalyze(h, `{bad`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyze_TextTooLarge(t *testing.T) {
	t.Run("over_text_limit", func(t *testing.T) {
		h := newTestAnalyzeHandler(&fakePublisher{}, 10)
		rec := postAnalyze(h, `{"text": "this sentence is longer than ten bytes"}`)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("over_body_limit", func(t *testing.T) {
		h := newTestAnalyzeHandler(&fakePublisher{}, 10)
		rec := postAnalyze(h, `{"text": "`+strings.Repeat("a", 80<<10)+`"}`)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})
}

func TestAnalyzeRequestMetadata(t *testing.T) {
	text := "hello"
	conf := 0.8
	req := AnalyzeRequest{
		Text:             &text,
		Confidence:       &conf,
		WordDistribution: &WordDistribution{Excellent: 3, Poor: 2},
		UncertainWords:   []UncertainWord{{Text: "hello", Confidence: 0.3, Start: 100, End: 400}},
	}
	meta := req.Metadata()

	if meta.OverallConfidence == nil || *meta.OverallConfidence != 0.8 {
		t.Errorf("OverallConfidence = %v, want 0.8", meta.OverallConfidence)
	}
	if meta.WordDistribution.Total() != 5 {
		t.Errorf("distribution total = %d, want 5", meta.WordDistribution.Total())
	}
	if meta.LowConfidenceWords != 2 {
		t.Errorf("LowConfidenceWords = %d, want 2", meta.LowConfidenceWords)
	}
	if len(meta.UncertainWords) != 1 || meta.UncertainWords[0].End != 400 {
		t.Errorf("UncertainWords = %+v", meta.UncertainWords)
	}
}
