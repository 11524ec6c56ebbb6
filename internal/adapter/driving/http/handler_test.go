package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/sheetbridge/internal/adapter/driving/http"
	"github.com/ericfisherdev/sheetbridge/internal/application"
	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

// --- Mock implementations ---

// mockSheetClient is an in-memory SheetClient over named sheets. The first
// row of each sheet is the header.
type mockSheetClient struct {
	sheets map[string][]model.Row
	err    error // injected on every call when set
}

func (m *mockSheetClient) sheet(name string) ([]model.Row, error) {
	if m.err != nil {
		return nil, m.err
	}
	rows, ok := m.sheets[name]
	if !ok {
		return nil, driven.ErrSheetNotFound
	}
	return rows, nil
}

func (m *mockSheetClient) ListSheets(_ context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	names := make([]string, 0, len(m.sheets))
	for name := range m.sheets {
		names = append(names, name)
	}
	return names, nil
}

func (m *mockSheetClient) ReadRows(_ context.Context, sheet string, page *model.Page) (*model.Header, []model.Row, *model.PageInfo, error) {
	rows, err := m.sheet(sheet)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(rows) == 0 {
		return model.NewHeader(nil), nil, nil, nil
	}

	data := rows[1:]
	var info *model.PageInfo
	if page != nil {
		total := len(data)
		start := min(page.Offset, total)
		end := total
		if page.Limit > 0 {
			end = min(start+page.Limit, total)
		}
		data = data[start:end]
		info = &model.PageInfo{Total: total, Limit: page.Limit, Offset: page.Offset, HasMore: end < total}
	}
	return model.NewHeader(rows[0]), data, info, nil
}

func (m *mockSheetClient) AppendRow(_ context.Context, sheet string, values model.Row) error {
	rows, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return driven.ErrHeaderMissing
	}
	m.sheets[sheet] = append(rows, values.PadTo(len(rows[0])))
	return nil
}

func (m *mockSheetClient) UpdateRowByIndex(_ context.Context, sheet string, rowIndex int, values model.Row) error {
	rows, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	if rowIndex < 2 || rowIndex > len(rows) {
		return driven.ErrRowNotFound
	}
	m.sheets[sheet][rowIndex-1] = values.PadTo(len(rows[0]))
	return nil
}

func (m *mockSheetClient) UpdateRowByKey(ctx context.Context, sheet, keyColumn, keyValue string, updates map[string]string) error {
	rows, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	header := model.NewHeader(rows[0])
	for column := range updates {
		if _, ok := header.Index(column); !ok {
			return driven.ErrInvalidField
		}
	}
	rowIndex, row, err := m.FindRowByKey(ctx, sheet, keyColumn, keyValue)
	if err != nil {
		return err
	}
	for column, value := range updates {
		idx, _ := header.Index(column)
		row = row.PadTo(len(rows[0]))
		row[idx] = value
	}
	m.sheets[sheet][rowIndex-1] = row
	return nil
}

func (m *mockSheetClient) FindRowByKey(_ context.Context, sheet, keyColumn, keyValue string) (int, model.Row, error) {
	rows, err := m.sheet(sheet)
	if err != nil {
		return 0, nil, err
	}
	if len(rows) == 0 {
		return 0, nil, driven.ErrHeaderMissing
	}
	idx, ok := model.NewHeader(rows[0]).Index(keyColumn)
	if !ok {
		return 0, nil, driven.ErrInvalidField
	}
	for i, row := range rows[1:] {
		if strings.TrimSpace(row.Cell(idx)) == strings.TrimSpace(keyValue) {
			return i + 2, row, nil
		}
	}
	return 0, nil, driven.ErrRowNotFound
}

func (m *mockSheetClient) DeleteRow(_ context.Context, sheet string, rowIndex int) error {
	rows, err := m.sheet(sheet)
	if err != nil {
		return err
	}
	if rowIndex < 2 || rowIndex > len(rows) {
		return driven.ErrRowNotFound
	}
	m.sheets[sheet] = append(rows[:rowIndex-1], rows[rowIndex:]...)
	return nil
}

type mockJournal struct {
	entries []model.SubmissionEntry
	err     error
}

func (m *mockJournal) RecordBatch(_ context.Context, entries []model.SubmissionEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *mockJournal) ListRecent(_ context.Context, limit int) ([]model.SubmissionEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

var soRawanHeader = model.Row{
	"ID", "Timestamp", "Nama Kasir", "Tanggal Rekap", "Shift",
	"PLU", "Nama Barang", "OH", "Fisik", "Selisih", "Pengirim",
}

func newMockSheets() *mockSheetClient {
	return &mockSheetClient{sheets: map[string][]model.Row{
		"SoRawan": {soRawanHeader},
		"List_so": {
			{"PLU", "Nama Barang"},
			{"10022", "Rokok B"},
			{"10021", "Rokok A"},
		},
		"Absensi": {
			{"NIK", "Nama", "Jabatan"},
			{"2011001", "Budi", "Kasir"},
		},
	}}
}

func setupMux(sheets driven.SheetClient, journal driven.SubmissionJournal) http.Handler {
	logger := slog.New(slog.DiscardHandler)
	upsertSvc := application.NewUpsertService(sheets, journal, "SoRawan", logger)
	refSvc := application.NewReferenceService(sheets, "List_so", "Absensi")
	healthSvc := application.NewHealthService(sheets)
	h := httphandler.NewHandler(sheets, upsertSvc, refSvc, healthSvc, journal, logger)
	return httphandler.NewServeMux(h, logger)
}

func doRequest(t *testing.T, mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// --- Tabular endpoint tests ---

func TestReadSheet(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sheets?sheetName=List_so", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.ValuesResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)
	require.Len(t, resp.Values, 3)
	assert.Equal(t, []string{"PLU", "Nama Barang"}, resp.Values[0])
	assert.Equal(t, []string{"10022", "Rokok B"}, resp.Values[1])
}

func TestReadSheet_MissingSheetName(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sheets", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadSheet_UnknownSheet(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sheets?sheetName=Nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadSheet_Pagination(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sheets?sheetName=List_so&limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.ValuesResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Values, 2, "header plus one data row")
	assert.Equal(t, []string{"10021", "Rokok A"}, resp.Values[1])
	require.NotNil(t, resp.Page)
	assert.Equal(t, 2, resp.Page.Total)
	assert.False(t, resp.Page.HasMore)
}

func TestReadSheet_RangeWindow(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	// Sheet rows 2..2 of List_so, that is the first data row only.
	rec := doRequest(t, mux, http.MethodGet, "/api/sheets?sheetName=List_so&range=A2:B2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.ValuesResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Values, 2)
	assert.Equal(t, []string{"10022", "Rokok B"}, resp.Values[1])
}

func TestReadSheet_InvalidRange(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sheets?sheetName=List_so&range=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSheets(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/sheets/list", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.SheetListResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Count)
	assert.ElementsMatch(t, []string{"SoRawan", "List_so", "Absensi"}, resp.Sheets)
}

func TestAppendRows_SingleRow(t *testing.T) {
	sheets := newMockSheets()
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/sheets/append",
		`{"sheetName":"List_so","values":["10023","Rokok C"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, sheets.sheets["List_so"], 4)
}

func TestAppendRows_Batch(t *testing.T) {
	sheets := newMockSheets()
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/sheets/append",
		`{"sheetName":"List_so","values":[["10023","Rokok C"],["10024","Rokok D"]]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.MessageResponse
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp.Message, "2")
	assert.Len(t, sheets.sheets["List_so"], 5)
}

func TestAppendRows_BadValues(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/sheets/append",
		`{"sheetName":"List_so","values":"not an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRow_ByRange(t *testing.T) {
	sheets := newMockSheets()
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodPut, "/api/sheets/update",
		`{"sheetName":"List_so","range":"A2:B2","values":["10022","Rokok B Baru"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Rokok B Baru", sheets.sheets["List_so"][1].Cell(1))
}

func TestUpdateRow_ByKey(t *testing.T) {
	sheets := newMockSheets()
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodPut, "/api/sheets/update",
		`{"sheetName":"List_so","keyColumn":"PLU","keyValue":"10021","updates":{"Nama Barang":"Rokok A Baru"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Rokok A Baru", sheets.sheets["List_so"][2].Cell(1))
}

func TestUpdateRow_UnknownColumn(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPut, "/api/sheets/update",
		`{"sheetName":"List_so","keyColumn":"PLU","keyValue":"10021","updates":{"Harga":"12000"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRow_NoMode(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPut, "/api/sheets/update",
		`{"sheetName":"List_so","values":["x"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRow_RowNotFound(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPut, "/api/sheets/update",
		`{"sheetName":"List_so","keyColumn":"PLU","keyValue":"99999","updates":{"Nama Barang":"x"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindRow(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/sheets/find",
		`{"sheetName":"List_so","keyColumn":"PLU","keyValue":"10021"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.FindResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.RowIndex)
	assert.Equal(t, []string{"10021", "Rokok A"}, resp.Data)
}

func TestFindRow_NotFound(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/sheets/find",
		`{"sheetName":"List_so","keyColumn":"PLU","keyValue":"99999"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindRow_AfterAppend(t *testing.T) {
	sheets := newMockSheets()
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/sheets/find",
		`{"sheetName":"SoRawan","keyColumn":"ID","keyValue":"cafe0123"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, mux, http.MethodPost, "/api/sheets/append",
		`{"sheetName":"SoRawan","values":["cafe0123","2026-08-30T09:00:00Z","Budi"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, mux, http.MethodPost, "/api/sheets/find",
		`{"sheetName":"SoRawan","keyColumn":"ID","keyValue":"cafe0123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.FindResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 2, resp.RowIndex)
}

func TestDeleteRow(t *testing.T) {
	sheets := newMockSheets()
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodDelete, "/api/sheets/delete",
		`{"sheetName":"List_so","rowIndex":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, sheets.sheets["List_so"], 2)
}

func TestDeleteRow_OutOfRange(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodDelete, "/api/sheets/delete",
		`{"sheetName":"List_so","rowIndex":99}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Stock-count endpoint tests ---

const countBody = `{
	"nama": "Budi",
	"tanggal_rekap": "30-08-2026",
	"shift": "1",
	"items": [
		{"plu": "10021", "namaBarang": "Rokok A", "oh": 5, "fisik": 4, "selisih": 99},
		{"plu": "10022", "namaBarang": "Rokok B", "oh": 3, "fisik": 3, "selisih": 0}
	]
}`

func TestSubmitCount(t *testing.T) {
	sheets := newMockSheets()
	journal := &mockJournal{}
	mux := setupMux(sheets, journal)

	rec := doRequest(t, mux, http.MethodPost, "/api/so-rawan", countBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.SubmissionResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Details.Appended)
	assert.Equal(t, 0, resp.Details.Updated)
	assert.Empty(t, resp.Details.Failed)
	assert.Equal(t, "Budi", resp.Details.Kasir)
	assert.Equal(t, "2026-08-30", resp.Details.Tanggal, "day-first dates are canonicalized")

	require.Len(t, sheets.sheets["SoRawan"], 3)
	// The wire selisih of 99 is discarded and recomputed.
	assert.Equal(t, "-1", sheets.sheets["SoRawan"][1].Cell(9))
	assert.Len(t, journal.entries, 2)
}

func TestSubmitCount_Idempotent(t *testing.T) {
	sheets := newMockSheets()
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/so-rawan", countBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, mux, http.MethodPost, "/api/so-rawan", countBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.SubmissionResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 0, resp.Details.Appended)
	assert.Equal(t, 2, resp.Details.Updated)
	assert.Len(t, sheets.sheets["SoRawan"], 3, "resubmission must not duplicate rows")
}

func TestSubmitCount_EmptyItems(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/so-rawan",
		`{"nama":"Budi","tanggal_rekap":"2026-08-30","shift":"1","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitCount_IncompleteRecord(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodPost, "/api/so-rawan",
		`{"nama":"","tanggal_rekap":"2026-08-30","shift":"1","items":[{"plu":"10021","namaBarang":"Rokok A","oh":1,"fisik":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalog(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/list-so", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.CatalogResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Rokok A", resp.Data[0].Name, "sorted by name")
}

func TestRoster(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/absensi", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.RosterResponse
	decodeJSON(t, rec, &resp)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Budi", resp.Data[0].Name)
	assert.Equal(t, "Kasir", resp.Data[0].Role)
}

func TestSubmissions(t *testing.T) {
	sheets := newMockSheets()
	journal := &mockJournal{}
	mux := setupMux(sheets, journal)

	rec := doRequest(t, mux, http.MethodPost, "/api/so-rawan", countBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, mux, http.MethodGet, "/api/submissions?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.JournalResponse
	decodeJSON(t, rec, &resp)
	assert.True(t, resp.Success)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "appended", resp.Data[0].Outcome)
	assert.Equal(t, "Budi", resp.Data[0].Actor)
}

func TestSubmissions_InvalidLimit(t *testing.T) {
	mux := setupMux(newMockSheets(), &mockJournal{})

	rec := doRequest(t, mux, http.MethodGet, "/api/submissions?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissions_NoJournal(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/api/submissions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Health and middleware tests ---

func TestHealth(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httphandler.HealthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHealth_BackendDown(t *testing.T) {
	sheets := newMockSheets()
	sheets.err = errors.New("connection refused")
	mux := setupMux(sheets, nil)

	rec := doRequest(t, mux, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp httphandler.HealthResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Contains(t, resp.Message, "unreachable")
}

func TestCORSPreflight(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodOptions, "/api/so-rawan", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSHeadersOnResponses(t *testing.T) {
	mux := setupMux(newMockSheets(), nil)

	rec := doRequest(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
