package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/sheetbridge/internal/application"
	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
)

// SubmitCount accepts a stock-count batch from the form and upserts it into
// the count sheet. Repeated submissions of the same batch update rows in
// place instead of appending duplicates.
func (h *Handler) SubmitCount(w http.ResponseWriter, r *http.Request) {
	var req CountSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records := make([]model.CountRecord, 0, len(req.Items))
	for _, item := range req.Items {
		records = append(records, model.CountRecord{
			Actor:    strings.TrimSpace(req.Nama),
			Date:     strings.TrimSpace(req.TanggalRekap),
			Shift:    strings.TrimSpace(req.Shift),
			ItemCode: strings.TrimSpace(item.PLU),
			ItemName: strings.TrimSpace(item.NamaBarang),
			OnHand:   item.OH,
			Physical: item.Fisik,
		})
	}

	result, err := h.upsertSvc.SubmitBatch(r.Context(), records)
	if err != nil {
		h.writeMappedCountError(w, err)
		return
	}

	failed := make([]FailureDetail, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, FailureDetail{PLU: f.Record.ItemCode, Error: f.Err.Error()})
	}

	message := fmt.Sprintf("%d item(s) processed", len(records))
	if len(failed) > 0 {
		message = fmt.Sprintf("%d of %d item(s) processed", len(records)-len(failed), len(records))
	}

	writeJSON(w, http.StatusOK, SubmissionResponse{
		Success: len(failed) == 0,
		Message: message,
		Details: SubmissionDetails{
			Appended:   result.Appended,
			Updated:    result.Updated,
			Failed:     failed,
			TotalItems: len(records),
			Kasir:      strings.TrimSpace(req.Nama),
			Tanggal:    application.NormalizeDate(req.TanggalRekap),
			Shift:      strings.TrimSpace(req.Shift),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// writeMappedCountError handles the batch-level validation errors before
// falling back to the shared mapping.
func (h *Handler) writeMappedCountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrEmptyBatch):
		writeError(w, http.StatusBadRequest, "items must not be empty")
	case errors.Is(err, model.ErrIncompleteRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.writeMappedError(w, "submit count", err)
	}
}

// Catalog returns the countable-item list the form populates itself from.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.refSvc.Catalog(r.Context())
	if err != nil {
		h.writeMappedError(w, "read catalog", err)
		return
	}

	writeJSON(w, http.StatusOK, CatalogResponse{
		Success:   true,
		Data:      items,
		Count:     len(items),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Roster returns the crew roster for the shift selector.
func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	members, err := h.refSvc.Roster(r.Context())
	if err != nil {
		h.writeMappedError(w, "read roster", err)
		return
	}

	writeJSON(w, http.StatusOK, RosterResponse{
		Success:   true,
		Data:      members,
		Count:     len(members),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Submissions returns recent journaled submission outcomes, newest first.
func (h *Handler) Submissions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "submission journal not configured")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.journal.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list submissions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	data := make([]JournalEntryResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, toJournalEntryResponse(entry))
	}

	writeJSON(w, http.StatusOK, JournalResponse{Success: true, Data: data, Count: len(data)})
}
