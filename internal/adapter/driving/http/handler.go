package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/sheetbridge/internal/adapter/driven/googleauth"
	"github.com/ericfisherdev/sheetbridge/internal/adapter/driven/sheets"
	"github.com/ericfisherdev/sheetbridge/internal/application"
	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	sheets    driven.SheetClient
	upsertSvc *application.UpsertService
	refSvc    *application.ReferenceService
	healthSvc *application.HealthService
	journal   driven.SubmissionJournal
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. The journal
// may be nil when no database is configured.
func NewHandler(
	sheetClient driven.SheetClient,
	upsertSvc *application.UpsertService,
	refSvc *application.ReferenceService,
	healthSvc *application.HealthService,
	journal driven.SubmissionJournal,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sheets:    sheetClient,
		upsertSvc: upsertSvc,
		refSvc:    refSvc,
		healthSvc: healthSvc,
		journal:   journal,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with CORS, logging, and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sheets", h.ReadSheet)
	mux.HandleFunc("GET /api/sheets/list", h.ListSheets)
	mux.HandleFunc("POST /api/sheets/append", h.AppendRows)
	mux.HandleFunc("PUT /api/sheets/update", h.UpdateRow)
	mux.HandleFunc("POST /api/sheets/find", h.FindRow)
	mux.HandleFunc("DELETE /api/sheets/delete", h.DeleteRow)

	mux.HandleFunc("POST /api/so-rawan", h.SubmitCount)
	mux.HandleFunc("GET /api/list-so", h.Catalog)
	mux.HandleFunc("GET /api/absensi", h.Roster)
	mux.HandleFunc("GET /api/submissions", h.Submissions)

	mux.HandleFunc("GET /health", h.Health)

	// Recovery innermost so panics are caught before logging; CORS outermost
	// so preflights and error responses both carry the headers.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = corsMiddleware(wrapped)

	return wrapped
}

// ReadSheet returns a sheet's rows, header first. A range parameter of the
// form "A5:K20" windows the returned rows by sheet position; limit/offset
// window by data-row offset.
func (h *Handler) ReadSheet(w http.ResponseWriter, r *http.Request) {
	sheetName := strings.TrimSpace(r.URL.Query().Get("sheetName"))
	if sheetName == "" {
		writeError(w, http.StatusBadRequest, "sheetName is required")
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	header, rows, pageInfo, err := h.sheets.ReadRows(r.Context(), sheetName, page)
	if err != nil {
		h.writeMappedError(w, "read sheet", err)
		return
	}

	values := make([][]string, 0, len(rows)+1)
	if header.Len() > 0 {
		values = append(values, header.Columns())
	}
	for _, row := range rows {
		values = append(values, row)
	}

	writeJSON(w, http.StatusOK, ValuesResponse{Success: true, Values: values, Page: pageInfo})
}

// ListSheets returns the names of all sheet tabs.
func (h *Handler) ListSheets(w http.ResponseWriter, r *http.Request) {
	names, err := h.sheets.ListSheets(r.Context())
	if err != nil {
		h.writeMappedError(w, "list sheets", err)
		return
	}

	writeJSON(w, http.StatusOK, SheetListResponse{Success: true, Sheets: names, Count: len(names)})
}

// AppendRows appends one or more rows to a sheet.
func (h *Handler) AppendRows(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SheetName) == "" {
		writeError(w, http.StatusBadRequest, "sheetName is required")
		return
	}

	rows, err := rowsFromValues(req.Values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, row := range rows {
		if err := h.sheets.AppendRow(r.Context(), req.SheetName, row); err != nil {
			h.writeMappedError(w, "append row", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: strconv.Itoa(len(rows)) + " row(s) appended",
	})
}

// UpdateRow rewrites a row addressed by an A1 range, or patches named
// columns of the first row matching a key.
func (h *Handler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SheetName) == "" {
		writeError(w, http.StatusBadRequest, "sheetName is required")
		return
	}

	switch {
	case req.Range != "":
		startRow, _, err := parseRangeRows(req.Range)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.sheets.UpdateRowByIndex(r.Context(), req.SheetName, startRow, model.Row(req.Values)); err != nil {
			h.writeMappedError(w, "update row by range", err)
			return
		}

	case req.KeyColumn != "":
		if len(req.Updates) == 0 {
			writeError(w, http.StatusBadRequest, "updates must not be empty")
			return
		}
		if err := h.sheets.UpdateRowByKey(r.Context(), req.SheetName, req.KeyColumn, req.KeyValue, req.Updates); err != nil {
			h.writeMappedError(w, "update row by key", err)
			return
		}

	default:
		writeError(w, http.StatusBadRequest, "either range or keyColumn is required")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "row updated"})
}

// FindRow returns the first row whose key column matches the key value.
func (h *Handler) FindRow(w http.ResponseWriter, r *http.Request) {
	var req FindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SheetName) == "" || strings.TrimSpace(req.KeyColumn) == "" {
		writeError(w, http.StatusBadRequest, "sheetName and keyColumn are required")
		return
	}

	rowIndex, row, err := h.sheets.FindRowByKey(r.Context(), req.SheetName, req.KeyColumn, req.KeyValue)
	if err != nil {
		h.writeMappedError(w, "find row", err)
		return
	}

	writeJSON(w, http.StatusOK, FindResponse{Success: true, RowIndex: rowIndex, Data: row})
}

// DeleteRow removes a row by its 1-based sheet position.
func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SheetName) == "" {
		writeError(w, http.StatusBadRequest, "sheetName is required")
		return
	}

	if err := h.sheets.DeleteRow(r.Context(), req.SheetName, req.RowIndex); err != nil {
		h.writeMappedError(w, "delete row", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "row deleted"})
}

// Health reports liveness of the service and reachability of the backend.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.healthSvc.Check(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "unavailable",
			Message:   err.Error(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeMappedError translates adapter and domain errors into HTTP statuses.
// Raw transport errors never reach the client.
func (h *Handler) writeMappedError(w http.ResponseWriter, op string, err error) {
	var (
		schemaErr   *model.SchemaError
		exchangeErr *googleauth.ExchangeError
		remoteErr   *sheets.RemoteError
	)

	switch {
	case errors.Is(err, driven.ErrSheetNotFound):
		writeError(w, http.StatusNotFound, "sheet not found")
	case errors.Is(err, driven.ErrRowNotFound):
		writeError(w, http.StatusNotFound, "row not found")
	case errors.Is(err, driven.ErrInvalidField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrHeaderMissing):
		writeError(w, http.StatusBadRequest, "sheet has no header row")
	case errors.As(err, &schemaErr):
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, schemaErr.Error())
	case errors.As(err, &exchangeErr):
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusBadGateway, "credential exchange with the spreadsheet backend failed")
	case errors.As(err, &remoteErr):
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "spreadsheet backend error")
	default:
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// rowsFromValues decodes the polymorphic values field: either a single row
// (array of strings) or a batch (array of arrays).
func rowsFromValues(raw json.RawMessage) ([]model.Row, error) {
	if len(raw) == 0 {
		return nil, errors.New("values is required")
	}

	var batch [][]string
	if err := json.Unmarshal(raw, &batch); err == nil {
		if len(batch) == 0 {
			return nil, errors.New("values must not be empty")
		}
		rows := make([]model.Row, 0, len(batch))
		for _, r := range batch {
			rows = append(rows, model.Row(r))
		}
		return rows, nil
	}

	var single []string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []model.Row{model.Row(single)}, nil
	}

	return nil, errors.New("values must be an array of cells or an array of rows")
}

// pageFromQuery builds the pagination window from limit/offset or an A1
// range. Returns nil when neither is present.
func pageFromQuery(r *http.Request) (*model.Page, error) {
	q := r.URL.Query()

	if rangeRef := strings.TrimSpace(q.Get("range")); rangeRef != "" {
		startRow, endRow, err := parseRangeRows(rangeRef)
		if err != nil {
			return nil, err
		}
		// Sheet row 2 is the first data row.
		offset := startRow - 2
		if offset < 0 {
			offset = 0
		}
		return &model.Page{Limit: endRow - startRow + 1, Offset: offset}, nil
	}

	limitStr, offsetStr := q.Get("limit"), q.Get("offset")
	if limitStr == "" && offsetStr == "" {
		return nil, nil
	}

	page := &model.Page{}
	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return nil, errors.New("invalid limit")
		}
		page.Limit = limit
	}
	if offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return nil, errors.New("invalid offset")
		}
		page.Offset = offset
	}

	return page, nil
}

// parseRangeRows extracts the 1-based start and end rows from an A1 range
// like "A5:K20" or a single cell reference like "B7".
func parseRangeRows(rangeRef string) (int, int, error) {
	parts := strings.SplitN(rangeRef, ":", 2)

	startRow, err := rowOfCellRef(parts[0])
	if err != nil {
		return 0, 0, err
	}

	endRow := startRow
	if len(parts) == 2 {
		if endRow, err = rowOfCellRef(parts[1]); err != nil {
			return 0, 0, err
		}
	}

	if endRow < startRow {
		return 0, 0, errors.New("invalid range: end row before start row")
	}

	return startRow, endRow, nil
}

// rowOfCellRef returns the row number of a cell reference like "K20".
func rowOfCellRef(ref string) (int, error) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	row, err := strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, errors.New("invalid range: " + ref)
	}
	return row, nil
}
