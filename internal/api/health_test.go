package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snarg/speech-analytics/internal/ingest"
)

type fakeConn bool

func (c fakeConn) IsConnected() bool { return bool(c) }

type fakeLive struct {
	queue   *QueueStatus
	watcher *ingest.WatcherStatus
}

func (f fakeLive) QueueStatus() *QueueStatus            { return f.queue }
func (f fakeLive) WatcherStatus() *ingest.WatcherStatus { return f.watcher }

func getHealth(t *testing.T, h *HealthHandler) HealthResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("JSON decode: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	start := time.Now().Add(-time.Minute)

	t.Run("text_only", func(t *testing.T) {
		resp := getHealth(t, NewHealthHandler(nil, nil, nil, []string{"log"}, "v1.0.0", start))
		if resp.Status != "healthy" {
			t.Errorf("Status = %q, want healthy", resp.Status)
		}
		if resp.Checks["transcription"] != CheckNotConfigured || resp.Checks["mqtt"] != CheckNotConfigured {
			t.Errorf("Checks = %v", resp.Checks)
		}
		if resp.Provider != "none" {
			t.Errorf("Provider = %q, want none", resp.Provider)
		}
		if resp.UptimeSeconds < 59 {
			t.Errorf("UptimeSeconds = %d, want >= 59", resp.UptimeSeconds)
		}
	})

	t.Run("mqtt_down_degrades", func(t *testing.T) {
		stt := &fakeTranscriber{configured: true}
		resp := getHealth(t, NewHealthHandler(stt, fakeConn(false), nil, nil, "dev", start))
		if resp.Status != "degraded" {
			t.Errorf("Status = %q, want degraded", resp.Status)
		}
		if resp.Checks["transcription"] != CheckOK || resp.Provider != "fake" {
			t.Errorf("transcription check = %q provider = %q", resp.Checks["transcription"], resp.Provider)
		}
	})

	t.Run("live_components", func(t *testing.T) {
		live := fakeLive{
			queue:   &QueueStatus{Pending: 2, Completed: 5},
			watcher: &ingest.WatcherStatus{Status: "watching", Directory: "/inbox", Processed: 4},
		}
		resp := getHealth(t, NewHealthHandler(nil, fakeConn(true), live, nil, "dev", start))
		if resp.Checks["file_watcher"] != "watching" || resp.Checks["mqtt"] != CheckOK {
			t.Errorf("Checks = %v", resp.Checks)
		}
		if resp.Queue == nil || resp.Queue.Pending != 2 {
			t.Errorf("Queue = %+v", resp.Queue)
		}
	})
}
