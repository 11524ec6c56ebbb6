package model

import (
	"errors"
	"strings"
)

// ErrEmptyBatch is returned when a submission contains no records.
var ErrEmptyBatch = errors.New("batch contains no records")

// ErrIncompleteRecord is returned when a record is missing one of the
// business-key fields required to derive its idempotency key.
var ErrIncompleteRecord = errors.New("record is missing required fields")

// CountRecord is one stock-count line: a counter (actor) reported the
// physical quantity for one item during one shift on one date.
// The (Actor, Shift, Date, ItemCode) tuple is the record's business key.
type CountRecord struct {
	Actor    string
	Date     string
	Shift    string
	ItemCode string
	ItemName string
	OnHand   int
	Physical int
}

// Variance is always recomputed from OnHand and Physical; a client-supplied
// variance is never trusted.
func (r CountRecord) Variance() int {
	return r.Physical - r.OnHand
}

// Validate checks the fields required before a record may be upserted.
func (r CountRecord) Validate() error {
	if strings.TrimSpace(r.Actor) == "" ||
		strings.TrimSpace(r.Date) == "" ||
		strings.TrimSpace(r.Shift) == "" ||
		strings.TrimSpace(r.ItemCode) == "" {
		return ErrIncompleteRecord
	}
	return nil
}

// RecordFailure pairs a record with the error that kept it out of the sheet.
type RecordFailure struct {
	Record CountRecord
	Err    error
}

// BatchResult tallies the per-record outcomes of one submission. A batch
// always completes; individual failures land in Failed without aborting the
// remaining records.
type BatchResult struct {
	Appended int
	Updated  int
	Failed   []RecordFailure
}
