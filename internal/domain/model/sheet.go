package model

import (
	"fmt"
	"strings"
)

// Row is an ordered sequence of string cells, positionally aligned to the
// header of its sheet. A row may be shorter than the header; missing trailing
// cells are treated as empty strings, never as absent.
type Row []string

// Cell returns the cell at index i, or "" when the row is shorter than i+1.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// PadTo returns a copy of the row padded with empty strings to length n,
// or truncated to n when the row is longer. The receiver is never modified.
func (r Row) PadTo(n int) Row {
	out := make(Row, n)
	copy(out, r)
	return out
}

// Header is a validated column-name-to-index map built once per sheet access.
// Lookup is exact match on the trimmed column name (case-insensitive), never
// substring scanning, so a renamed or missing column surfaces as a
// SchemaError instead of a silent wrong index.
type Header struct {
	columns []string
	index   map[string]int
}

// NewHeader builds a Header from the first row of a sheet. Duplicate column
// names keep the first occurrence, matching spreadsheet lookup behavior.
func NewHeader(cells Row) *Header {
	h := &Header{
		columns: make([]string, len(cells)),
		index:   make(map[string]int, len(cells)),
	}
	for i, c := range cells {
		name := strings.TrimSpace(c)
		h.columns[i] = name
		key := strings.ToLower(name)
		if _, exists := h.index[key]; !exists && name != "" {
			h.index[key] = i
		}
	}
	return h
}

// Len returns the number of columns.
func (h *Header) Len() int { return len(h.columns) }

// Columns returns the trimmed column names in sheet order.
func (h *Header) Columns() []string {
	out := make([]string, len(h.columns))
	copy(out, h.columns)
	return out
}

// Index returns the zero-based column index for the given name.
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Require verifies that every named column is present, returning a
// *SchemaError listing all missing columns otherwise.
func (h *Header) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := h.Index(n); !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// SchemaError reports required columns absent from a sheet header.
type SchemaError struct {
	Sheet   string
	Missing []string
}

func (e *SchemaError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("sheet %q is missing required columns: %s", e.Sheet, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Page requests a window of data rows from a read.
type Page struct {
	Limit  int
	Offset int
}

// PageInfo describes the window a paginated read actually returned.
// Total counts data rows only, the header row excluded.
type PageInfo struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}
