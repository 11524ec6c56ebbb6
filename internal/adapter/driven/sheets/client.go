// Package sheets implements the SheetClient port against the Google Sheets
// v4 values API using plain HTTP, authenticated through a TokenSource.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"

	// readRange covers every column the count sheets use, with headroom.
	readRange = "A:ZZ"

	maxErrorBody = 4 << 10
)

// RemoteError reports a backend response the client could not translate into
// a more specific error. Transient by assumption; the caller may retry the
// whole operation, the client itself never does.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sheets api %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Compile-time interface satisfaction check.
var _ driven.SheetClient = (*Client)(nil)

// Client talks to one spreadsheet. Spreadsheet metadata (sheet titles and
// numeric IDs) is resolved lazily and cached with a TTL; every mutating
// operation invalidates the cached handle.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	tokens        driven.TokenSource
	handles       *handleCache
}

// NewClient creates a Client for the given spreadsheet with an in-memory
// caching transport on the outbound connection for conditional-request
// reuse.
func NewClient(tokens driven.TokenSource, spreadsheetID string, handleTTL time.Duration) *Client {
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   30 * time.Second,
	}
	return NewClientWithHTTPClient(httpClient, defaultBaseURL, tokens, spreadsheetID, handleTTL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, tokens driven.TokenSource, spreadsheetID string, handleTTL time.Duration) *Client {
	c := &Client{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		spreadsheetID: spreadsheetID,
		tokens:        tokens,
	}
	c.handles = newHandleCache(handleTTL, c.fetchHandle)
	return c
}

// ListSheets returns the sheet titles in tab order.
func (c *Client) ListSheets(ctx context.Context) ([]string, error) {
	handle, err := c.handles.get(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(handle.titles))
	copy(titles, handle.titles)
	return titles, nil
}

// ReadRows returns the header and data rows of a sheet. An empty sheet is
// not an error: it yields an empty header and no rows. When page is non-nil
// the data rows are windowed and a PageInfo describes the window.
func (c *Client) ReadRows(ctx context.Context, sheet string, page *model.Page) (*model.Header, []model.Row, *model.PageInfo, error) {
	values, err := c.readValues(ctx, sheet, readRange)
	if err != nil {
		return nil, nil, nil, err
	}

	if len(values) == 0 {
		return model.NewHeader(nil), []model.Row{}, pageInfoFor(page, 0), nil
	}

	header := model.NewHeader(values[0])
	rows := make([]model.Row, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, model.Row(v))
	}

	if page == nil {
		return header, rows, nil, nil
	}

	info := pageInfoFor(page, len(rows))
	start := min(info.Offset, len(rows))
	end := min(start+info.Limit, len(rows))
	return header, rows[start:end], info, nil
}

// AppendRow appends one data row, aligned positionally to the header:
// shorter rows are padded with empty strings, longer rows truncated.
func (c *Client) AppendRow(ctx context.Context, sheet string, values model.Row) error {
	header, err := c.readHeader(ctx, sheet)
	if err != nil {
		return err
	}
	if header.Len() == 0 {
		return fmt.Errorf("appending to %s: %w", sheet, driven.ErrHeaderMissing)
	}

	aligned := values.PadTo(header.Len())

	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s:append", c.spreadsheetID, rangeRef(sheet, "A1"))
	query := url.Values{"valueInputOption": {"RAW"}, "insertDataOption": {"INSERT_ROWS"}}
	body := map[string]any{"values": [][]string{aligned}}

	if err := c.call(ctx, http.MethodPost, path, query, body, nil, "append"); err != nil {
		return err
	}

	c.handles.invalidate()
	return nil
}

// UpdateRowByIndex overwrites the data row at the given 1-based sheet row
// number. Row 1 is the header; valid data rows are 2 through the last
// populated row.
func (c *Client) UpdateRowByIndex(ctx context.Context, sheet string, rowIndex int, values model.Row) error {
	all, err := c.readValues(ctx, sheet, readRange)
	if err != nil {
		return err
	}
	if len(all) == 0 || len(all[0]) == 0 {
		return fmt.Errorf("updating %s: %w", sheet, driven.ErrHeaderMissing)
	}
	if rowIndex < 2 || rowIndex > len(all) {
		return fmt.Errorf("updating %s row %d: %w", sheet, rowIndex, driven.ErrRowNotFound)
	}

	header := model.NewHeader(all[0])
	aligned := values.PadTo(header.Len())

	cellRange := fmt.Sprintf("A%d:%s%d", rowIndex, columnLetter(header.Len()-1), rowIndex)
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s", c.spreadsheetID, rangeRef(sheet, cellRange))
	query := url.Values{"valueInputOption": {"RAW"}}
	body := map[string]any{"values": [][]string{aligned}}

	if err := c.call(ctx, http.MethodPut, path, query, body, nil, "update"); err != nil {
		return err
	}

	c.handles.invalidate()
	return nil
}

// UpdateRowByKey updates named columns on the first row whose keyColumn cell
// equals keyValue. Unknown update columns fail with ErrInvalidField before
// anything is written.
func (c *Client) UpdateRowByKey(ctx context.Context, sheet, keyColumn, keyValue string, updates map[string]string) error {
	all, err := c.readValues(ctx, sheet, readRange)
	if err != nil {
		return err
	}
	if len(all) == 0 || len(all[0]) == 0 {
		return fmt.Errorf("updating %s: %w", sheet, driven.ErrHeaderMissing)
	}

	header := model.NewHeader(all[0])

	for col := range updates {
		if _, ok := header.Index(col); !ok {
			return fmt.Errorf("updating %s: column %q: %w", sheet, col, driven.ErrInvalidField)
		}
	}

	rowIndex, row, err := findInValues(header, all, keyColumn, keyValue)
	if err != nil {
		return fmt.Errorf("updating %s by %s=%q: %w", sheet, keyColumn, keyValue, err)
	}

	merged := row.PadTo(header.Len())
	for col, val := range updates {
		i, _ := header.Index(col)
		merged[i] = val
	}

	return c.UpdateRowByIndex(ctx, sheet, rowIndex, merged)
}

// FindRowByKey returns the sheet row number and cells of the first row whose
// keyColumn cell equals keyValue, both sides trimmed. Duplicate keys are not
// an error; the first occurrence wins.
func (c *Client) FindRowByKey(ctx context.Context, sheet, keyColumn, keyValue string) (int, model.Row, error) {
	all, err := c.readValues(ctx, sheet, readRange)
	if err != nil {
		return 0, nil, err
	}
	if len(all) == 0 || len(all[0]) == 0 {
		return 0, nil, fmt.Errorf("searching %s: %w", sheet, driven.ErrHeaderMissing)
	}

	header := model.NewHeader(all[0])
	rowIndex, row, err := findInValues(header, all, keyColumn, keyValue)
	if err != nil {
		return 0, nil, fmt.Errorf("searching %s for %s=%q: %w", sheet, keyColumn, keyValue, err)
	}
	return rowIndex, row, nil
}

// DeleteRow removes the data row at the given 1-based sheet row number via a
// batchUpdate deleteDimension request, which needs the numeric sheet ID from
// the cached handle.
func (c *Client) DeleteRow(ctx context.Context, sheet string, rowIndex int) error {
	all, err := c.readValues(ctx, sheet, readRange)
	if err != nil {
		return err
	}
	if rowIndex < 2 || rowIndex > len(all) {
		return fmt.Errorf("deleting %s row %d: %w", sheet, rowIndex, driven.ErrRowNotFound)
	}

	handle, err := c.handles.get(ctx)
	if err != nil {
		return err
	}
	sheetID, ok := handle.sheetID(sheet)
	if !ok {
		return fmt.Errorf("deleting from %s: %w", sheet, driven.ErrSheetNotFound)
	}

	path := fmt.Sprintf("/v4/spreadsheets/%s:batchUpdate", c.spreadsheetID)
	body := map[string]any{
		"requests": []any{
			map[string]any{
				"deleteDimension": map[string]any{
					"range": map[string]any{
						"sheetId":    sheetID,
						"dimension":  "ROWS",
						"startIndex": rowIndex - 1, // batchUpdate indices are 0-based, end exclusive
						"endIndex":   rowIndex,
					},
				},
			},
		},
	}

	if err := c.call(ctx, http.MethodPost, path, nil, body, nil, "delete"); err != nil {
		return err
	}

	c.handles.invalidate()
	return nil
}

// findInValues scans data rows for the first trimmed-equal match in keyColumn.
func findInValues(header *model.Header, all [][]string, keyColumn, keyValue string) (int, model.Row, error) {
	keyIdx, ok := header.Index(keyColumn)
	if !ok {
		return 0, nil, fmt.Errorf("column %q: %w", keyColumn, driven.ErrInvalidField)
	}

	want := strings.TrimSpace(keyValue)
	for i, raw := range all[1:] {
		row := model.Row(raw)
		if strings.TrimSpace(row.Cell(keyIdx)) == want {
			return i + 2, row, nil // +2: skip header, convert to 1-based
		}
	}

	return 0, nil, driven.ErrRowNotFound
}

// readHeader loads only the first row of a sheet.
func (c *Client) readHeader(ctx context.Context, sheet string) (*model.Header, error) {
	values, err := c.readValues(ctx, sheet, "1:1")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return model.NewHeader(nil), nil
	}
	return model.NewHeader(values[0]), nil
}

// readValues fetches a raw cell range. The values API omits the field
// entirely for an empty range.
func (c *Client) readValues(ctx context.Context, sheet, cellRange string) ([][]string, error) {
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s", c.spreadsheetID, rangeRef(sheet, cellRange))

	var out struct {
		Values [][]string `json:"values"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &out, "read"); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// fetchHandle resolves spreadsheet metadata for the handle cache.
func (c *Client) fetchHandle(ctx context.Context) (*spreadsheetHandle, error) {
	path := fmt.Sprintf("/v4/spreadsheets/%s", c.spreadsheetID)
	query := url.Values{"fields": {"sheets.properties"}}

	var out struct {
		Sheets []struct {
			Properties struct {
				SheetID int64  `json:"sheetId"`
				Title   string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	if err := c.call(ctx, http.MethodGet, path, query, nil, &out, "metadata"); err != nil {
		return nil, err
	}

	handle := &spreadsheetHandle{
		titles:   make([]string, 0, len(out.Sheets)),
		sheetIDs: make(map[string]int64, len(out.Sheets)),
	}
	for _, s := range out.Sheets {
		handle.titles = append(handle.titles, s.Properties.Title)
		handle.sheetIDs[lowerTrim(s.Properties.Title)] = s.Properties.SheetID
	}
	return handle, nil
}

// call performs one authenticated API round-trip and translates non-2xx
// responses into the port error taxonomy.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any, op string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheets api %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.translateError(op, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", op, err)
		}
	}
	return nil
}

// translateError maps backend failure responses onto the port sentinels.
// The values API reports an unknown sheet as a 400 "Unable to parse range".
func (c *Client) translateError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := strings.TrimSpace(string(raw))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("sheets api %s: %w", op, driven.ErrSheetNotFound)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(body, "Unable to parse range"):
		return fmt.Errorf("sheets api %s: %w", op, driven.ErrSheetNotFound)
	default:
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}
}

// pageInfoFor normalizes a page request against the total data row count.
func pageInfoFor(page *model.Page, total int) *model.PageInfo {
	if page == nil {
		return nil
	}

	limit := page.Limit
	if limit <= 0 {
		limit = total
	}
	offset := max(page.Offset, 0)

	return &model.PageInfo{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// rangeRef builds the URL path segment for "Sheet!Range" in A1 notation.
func rangeRef(sheet, cellRange string) string {
	return url.PathEscape(sheet + "!" + cellRange)
}

// columnLetter converts a 0-based column index to its A1 letter ("A", "K", "AA").
func columnLetter(i int) string {
	letters := ""
	for i >= 0 {
		letters = string(rune('A'+i%26)) + letters
		i = i/26 - 1
	}
	return letters
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
