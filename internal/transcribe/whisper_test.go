package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAudio(t *testing.T, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotForm = map[string]string{
			"model":           r.FormValue("model"),
			"language":        r.FormValue("language"),
			"response_format": r.FormValue("response_format"),
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": " Hello world. ",
			"language": "en",
			"language_probability": 0.97,
			"duration": 2.5,
			"words": [
				{"word": " Hello", "start": 0.0, "end": 0.4, "probability": 0.91},
				{"word": " world.", "start": 0.5, "end": 0.9}
			]
		}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "large-v3", "key", 5*time.Second)
	resp, err := wc.Transcribe(context.Background(), writeAudio(t, 512), TranscribeOpts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if gotForm["model"] != "large-v3" || gotForm["language"] != "en" || gotForm["response_format"] != "verbose_json" {
		t.Errorf("form = %v", gotForm)
	}
	if resp.Text != "Hello world." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.LanguageConfidence == nil || *resp.LanguageConfidence != 0.97 {
		t.Errorf("LanguageConfidence = %v, want 0.97", resp.LanguageConfidence)
	}
	if len(resp.Words) != 2 {
		t.Fatalf("Words = %d, want 2", len(resp.Words))
	}
	if resp.Words[0].Word != "Hello" || resp.Words[0].Confidence == nil || *resp.Words[0].Confidence != 0.91 {
		t.Errorf("Words[0] = %+v", resp.Words[0])
	}
	if resp.Words[1].Confidence != nil {
		t.Errorf("Words[1].Confidence = %v, want nil", *resp.Words[1].Confidence)
	}
	if wc.Name() != "whisper" || wc.Model() != "large-v3" {
		t.Errorf("Name/Model = %s/%s", wc.Name(), wc.Model())
	}
}

func TestWhisperClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "", "", 5*time.Second)
	_, err := wc.Transcribe(context.Background(), writeAudio(t, 512), TranscribeOpts{})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || se.Body != "overloaded" {
		t.Errorf("StatusError = %+v", se)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("503 should classify as ErrUnavailable")
	}
}

func TestWhisperResponse_SegmentWords(t *testing.T) {
	r := whisperResponse{
		Text: "a b",
		Segments: []whisperSegment{
			{Words: []whisperWord{{Word: "a"}}},
			{Words: []whisperWord{{Word: "b"}}},
		},
	}
	if got := len(r.toResponse().Words); got != 2 {
		t.Errorf("Words = %d, want 2", got)
	}
}
