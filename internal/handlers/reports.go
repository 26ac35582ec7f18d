package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/presenze/apiserver/internal/storage"
)

// ReportHandler serves the exported presence report.
type ReportHandler struct {
	store     storage.ObjectStorage
	objectKey string
}

func NewReportHandler(store storage.ObjectStorage, objectKey string) *ReportHandler {
	return &ReportHandler{store: store, objectKey: objectKey}
}

// ReportRouter registers report routes on the given router.
func ReportRouter(r chi.Router, store storage.ObjectStorage, objectKey string) {
	handler := NewReportHandler(store, objectKey)
	r.Get("/presence", handler.GetPresence)
}

// GetPresence streams the latest exported CSV. 404 until the exporter
// has produced one.
func (h *ReportHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	reader, err := h.store.Get(r.Context(), h.objectKey)
	if err != nil {
		writeError(w, http.StatusNotFound, "no presence report available yet")
		return
	}
	defer reader.Close()

	// The report is small; buffering it keeps backends that only fail on
	// first read (MinIO) from producing a half-written 200.
	data, err := io.ReadAll(reader)
	if err != nil {
		writeError(w, http.StatusNotFound, "no presence report available yet")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
