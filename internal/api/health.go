package api

import (
	"net/http"
	"time"

	"github.com/snarg/speech-analytics/internal/ingest"
)

// Check results.
const (
	CheckOK            = "ok"
	CheckDisconnected  = "disconnected"
	CheckNotConfigured = "not_configured"
)

type HealthResponse struct {
	Status        string                `json:"status"`
	Version       string                `json:"version"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	Checks        map[string]string     `json:"checks"`
	Provider      string                `json:"provider"`
	EventBackends []string              `json:"event_backends,omitempty"`
	Queue         *QueueStatus          `json:"queue,omitempty"`
	Watcher       *ingest.WatcherStatus `json:"watcher,omitempty"`
}

// QueueStatus is the transcription worker pool as seen by health.
type QueueStatus struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// ConnStatus is anything with a connection that can drop, such as the MQTT client.
type ConnStatus interface {
	IsConnected() bool
}

// LiveStatus reports the background components. Nil results mean the
// component is not running.
type LiveStatus interface {
	QueueStatus() *QueueStatus
	WatcherStatus() *ingest.WatcherStatus
}

// HealthHandler serves GET /health. mqtt must be a nil interface, not a
// typed nil, when MQTT is disabled.
type HealthHandler struct {
	stt       Transcriber
	mqtt      ConnStatus
	live      LiveStatus
	backends  []string
	version   string
	startTime time.Time
}

func NewHealthHandler(stt Transcriber, mqtt ConnStatus, live LiveStatus, backends []string, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		stt:       stt,
		mqtt:      mqtt,
		live:      live,
		backends:  backends,
		version:   version,
		startTime: startTime,
	}
}

// ServeHTTP reports "healthy", or "degraded" when an optional dependency is
// down. Text analysis works without any of them, so health never fails hard.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"analytics": CheckOK}
	status := "healthy"
	provider := "none"

	if h.stt != nil && h.stt.Configured() {
		checks["transcription"] = CheckOK
		provider = h.stt.ProviderName()
	} else {
		checks["transcription"] = CheckNotConfigured
	}

	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = CheckOK
		} else {
			checks["mqtt"] = CheckDisconnected
			status = "degraded"
		}
	} else {
		checks["mqtt"] = CheckNotConfigured
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
		Provider:      provider,
		EventBackends: h.backends,
	}

	if h.live != nil {
		resp.Queue = h.live.QueueStatus()
		if ws := h.live.WatcherStatus(); ws != nil {
			checks["file_watcher"] = ws.Status
			resp.Watcher = ws
		} else {
			checks["file_watcher"] = CheckNotConfigured
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}
