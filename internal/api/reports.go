package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/snarg/speech-analytics/internal/events"
	"github.com/snarg/speech-analytics/internal/storage"
)

// ReportStore reads archived events.
type ReportStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type ReportsHandler struct {
	store ReportStore
}

func NewReportsHandler(store ReportStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

func (h *ReportsHandler) Routes(r chi.Router) {
	r.Get("/reports/{source}/{date}/{id}", h.GetReport)
}

// GetReport returns one archived event as stored.
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrUnavailable, "report archive not configured")
		return
	}

	source := chi.URLParam(r, "source")
	if !knownSource(source) {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "unknown source")
		return
	}
	day, err := time.Parse(time.DateOnly, chi.URLParam(r, "date"))
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "date must be YYYY-MM-DD")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrBadRequest, "invalid report id")
		return
	}

	rc, err := h.store.Open(r.Context(), events.ArchiveKeyFor(source, day, id.String()))
	if errors.Is(err, storage.ErrNotFound) {
		WriteErrorWithCode(w, http.StatusNotFound, ErrNotFound, "report not found")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to open archived report")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "failed to read report")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

func knownSource(s string) bool {
	switch s {
	case events.SourceAPI, events.SourceUpload, events.SourceStream, events.SourceWatch, events.SourceMQTT:
		return true
	}
	return false
}
