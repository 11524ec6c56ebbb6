package driven

import (
	"context"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
)

// SubmissionJournal records the per-record outcome of each submitted batch.
// It is an audit trail: writes are best-effort and a journal failure must
// never fail the submission that produced it.
type SubmissionJournal interface {
	// RecordBatch persists all entries of one batch.
	RecordBatch(ctx context.Context, entries []model.SubmissionEntry) error

	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.SubmissionEntry, error)
}
