package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/presenze/apiserver/internal/services"
	"github.com/presenze/apiserver/internal/store"
)

var (
	errInvalidEntryID  = errors.New("entry id must be a positive integer")
	errInvalidFromDate = errors.New("from is not a valid date")
	errInvalidToDate   = errors.New("to is not a valid date")
)

// EntryHandler provides HTTP handlers for access-log entries.
type EntryHandler struct {
	entryService *services.EntryService
}

func NewEntryHandler(entryService *services.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

// EntryRouter registers log routes on the given router. Mutations go
// through authMiddleware when one is provided; reads stay open.
func EntryRouter(r chi.Router, entryService *services.EntryService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewEntryHandler(entryService)

	r.Get("/", handler.ListEntries)
	r.Get("/{entryID}", handler.GetEntry)
	if authMiddleware != nil {
		r.With(authMiddleware).Post("/", handler.CreateEntry)
		r.With(authMiddleware).Delete("/{entryID}", handler.DeleteEntry)
	} else {
		r.Post("/", handler.CreateEntry)
		r.Delete("/{entryID}", handler.DeleteEntry)
	}
}

func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEntryFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.entryService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.entryService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var eventTime time.Time
	if strings.TrimSpace(req.EventTime) != "" {
		parsed, err := parseTime(req.EventTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "event_time is not a valid timestamp")
			return
		}
		eventTime = parsed
	}

	entry, err := h.entryService.Create(r.Context(), req.Barcode, req.Direction, eventTime)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseEntryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.entryService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "entry deleted"})
}

type CreateEntryRequest struct {
	Barcode   string `json:"barcode"`
	Direction string `json:"direction"`
	EventTime string `json:"event_time"`
}

func parseEntryID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "entryID"))
	if err != nil || id < 1 {
		return 0, errInvalidEntryID
	}
	return id, nil
}

func parseEntryFilter(r *http.Request) (store.EntryFilter, error) {
	var filter store.EntryFilter
	query := r.URL.Query()

	filter.Barcode = query.Get("barcode")

	if raw := query.Get("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return store.EntryFilter{}, errInvalidFromDate
		}
		filter.From = &t
	}
	if raw := query.Get("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return store.EntryFilter{}, errInvalidToDate
		}
		filter.To = &t
	}
	return filter, nil
}
