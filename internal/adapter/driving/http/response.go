package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ValuesResponse is the sheet read response: header first, then data rows.
type ValuesResponse struct {
	Success bool            `json:"success"`
	Values  [][]string      `json:"values"`
	Page    *model.PageInfo `json:"page,omitempty"`
}

// SheetListResponse lists the sheet tabs of the spreadsheet.
type SheetListResponse struct {
	Success bool     `json:"success"`
	Sheets  []string `json:"sheets"`
	Count   int      `json:"count"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FindResponse carries the located row and its 1-based sheet position.
type FindResponse struct {
	Success  bool     `json:"success"`
	RowIndex int      `json:"rowIndex"`
	Data     []string `json:"data"`
}

// AppendRequest is the JSON body for the append endpoint. Values holds
// either a single row or an array of rows; see rowsFromValues.
type AppendRequest struct {
	SheetName string          `json:"sheetName"`
	Values    json.RawMessage `json:"values"`
}

// UpdateRequest is the JSON body for the update endpoint. Exactly one of
// the two modes applies: Range+Values rewrites a row by position, or
// KeyColumn+KeyValue+Updates patches named columns of a matched row.
type UpdateRequest struct {
	SheetName string            `json:"sheetName"`
	Range     string            `json:"range"`
	Values    []string          `json:"values"`
	KeyColumn string            `json:"keyColumn"`
	KeyValue  string            `json:"keyValue"`
	Updates   map[string]string `json:"updates"`
}

// FindRequest is the JSON body for the find endpoint.
type FindRequest struct {
	SheetName string `json:"sheetName"`
	KeyColumn string `json:"keyColumn"`
	KeyValue  string `json:"keyValue"`
}

// DeleteRequest is the JSON body for the delete endpoint. RowIndex is the
// 1-based sheet row; the header occupies row 1.
type DeleteRequest struct {
	SheetName string `json:"sheetName"`
	RowIndex  int    `json:"rowIndex"`
}

// CountItemRequest is one counted item inside a stock-count submission.
// Selisih is accepted for wire compatibility but recomputed server-side.
type CountItemRequest struct {
	PLU        string `json:"plu"`
	NamaBarang string `json:"namaBarang"`
	OH         int    `json:"oh"`
	Fisik      int    `json:"fisik"`
	Selisih    int    `json:"selisih"`
}

// CountSubmissionRequest is the JSON body of the stock-count submission.
type CountSubmissionRequest struct {
	Nama         string             `json:"nama"`
	TanggalRekap string             `json:"tanggal_rekap"`
	Shift        string             `json:"shift"`
	Items        []CountItemRequest `json:"items"`
}

// SubmissionDetails summarizes one accepted stock-count batch.
type SubmissionDetails struct {
	Appended   int             `json:"appended"`
	Updated    int             `json:"updated"`
	Failed     []FailureDetail `json:"failed"`
	TotalItems int             `json:"totalItems"`
	Kasir      string          `json:"kasir"`
	Tanggal    string          `json:"tanggal"`
	Shift      string          `json:"shift"`
	Timestamp  string          `json:"timestamp"`
}

// FailureDetail reports one record that could not be written.
type FailureDetail struct {
	PLU   string `json:"plu"`
	Error string `json:"error"`
}

// SubmissionResponse is the stock-count submission response.
type SubmissionResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Details SubmissionDetails `json:"details"`
}

// CatalogResponse lists the countable items.
type CatalogResponse struct {
	Success   bool                `json:"success"`
	Data      []model.CatalogItem `json:"data"`
	Count     int                 `json:"count"`
	Timestamp string              `json:"timestamp"`
}

// RosterResponse lists the crew on shift.
type RosterResponse struct {
	Success   bool               `json:"success"`
	Data      []model.CrewMember `json:"data"`
	Count     int                `json:"count"`
	Timestamp string             `json:"timestamp"`
}

// JournalEntryResponse is one journaled submission outcome.
type JournalEntryResponse struct {
	ID        int64  `json:"id"`
	BatchID   string `json:"batchId"`
	Key       string `json:"key"`
	Actor     string `json:"actor"`
	Date      string `json:"date"`
	Shift     string `json:"shift"`
	ItemCode  string `json:"itemCode"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// JournalResponse lists recent journaled outcomes, newest first.
type JournalResponse struct {
	Success bool                   `json:"success"`
	Data    []JournalEntryResponse `json:"data"`
	Count   int                    `json:"count"`
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toJournalEntryResponse(e model.SubmissionEntry) JournalEntryResponse {
	return JournalEntryResponse{
		ID:        e.ID,
		BatchID:   e.BatchID,
		Key:       e.Key,
		Actor:     e.Actor,
		Date:      e.Date,
		Shift:     e.Shift,
		ItemCode:  e.ItemCode,
		Outcome:   string(e.Outcome),
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
