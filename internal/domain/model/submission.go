package model

import "time"

// SubmissionOutcome is the final state of one record within a batch.
type SubmissionOutcome string

const (
	OutcomeAppended SubmissionOutcome = "appended"
	OutcomeUpdated  SubmissionOutcome = "updated"
	OutcomeFailed   SubmissionOutcome = "failed"
)

// SubmissionEntry is one journaled per-record outcome. The journal is an
// audit trail only; it is never consulted on the upsert path.
type SubmissionEntry struct {
	ID        int64
	BatchID   string
	Key       string
	Actor     string
	Date      string
	Shift     string
	ItemCode  string
	Outcome   SubmissionOutcome
	Detail    string
	CreatedAt time.Time
}
