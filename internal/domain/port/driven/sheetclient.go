package driven

import (
	"context"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
)

// SheetClient defines the driven port for the remote spreadsheet backend.
// All sheets live inside the single spreadsheet the client was built for.
// Row indices are 1-based sheet row numbers: row 1 is the header, data
// starts at row 2.
type SheetClient interface {
	// ListSheets returns the names of all sheets in the spreadsheet.
	ListSheets(ctx context.Context) ([]string, error)

	// ReadRows returns the header and data rows of a sheet, optionally
	// windowed by page. An empty sheet yields an empty header and no rows
	// without error. The returned PageInfo is nil when page is nil.
	ReadRows(ctx context.Context, sheet string, page *model.Page) (*model.Header, []model.Row, *model.PageInfo, error)

	// AppendRow appends values as a new data row. Values are aligned
	// positionally to the header: shorter rows are padded with empty
	// strings, longer rows are truncated. Fails with ErrHeaderMissing when
	// the sheet has no header row.
	AppendRow(ctx context.Context, sheet string, values model.Row) error

	// UpdateRowByIndex overwrites the data row at the given sheet row
	// number. Fails with ErrRowNotFound when rowIndex does not address an
	// existing data row.
	UpdateRowByIndex(ctx context.Context, sheet string, rowIndex int, values model.Row) error

	// UpdateRowByKey finds the first row whose keyColumn cell equals
	// keyValue (exact match after trimming) and applies the column→value
	// updates to it. Fails with ErrRowNotFound when no row matches and
	// ErrInvalidField when an update names an unknown column.
	UpdateRowByKey(ctx context.Context, sheet, keyColumn, keyValue string, updates map[string]string) error

	// FindRowByKey returns the sheet row number and cells of the first row
	// whose keyColumn cell equals keyValue after trimming. Duplicate keys
	// are not an error; only the first occurrence is visible.
	FindRowByKey(ctx context.Context, sheet, keyColumn, keyValue string) (int, model.Row, error)

	// DeleteRow removes the data row at the given sheet row number.
	DeleteRow(ctx context.Context, sheet string, rowIndex int) error
}
