package driven

import "errors"

// Sentinel errors shared across SheetClient implementations. Adapters
// translate backend responses into these before they reach the application
// layer; no raw transport error crosses the port boundary.
var (
	// ErrSheetNotFound indicates the named sheet does not exist in the
	// spreadsheet.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrRowNotFound indicates a row index outside the data range or a key
	// lookup that matched nothing.
	ErrRowNotFound = errors.New("row not found")

	// ErrHeaderMissing indicates a write against a sheet with no header row.
	ErrHeaderMissing = errors.New("sheet has no header row")

	// ErrInvalidField indicates an update naming a column the sheet header
	// does not declare.
	ErrInvalidField = errors.New("unknown column in update")
)
