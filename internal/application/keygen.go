package application

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
)

// keySeparator joins the business-key fields before hashing. Fixed forever:
// changing it would silently orphan every key already written to the sheet.
const keySeparator = "|"

// dateLayouts are the input formats the form and its older variants have
// been observed to submit, tried in order.
var dateLayouts = []string{
	"2006-01-02", // HTML date input
	"02-01-2006", // DD-MM-YYYY, manual entry
	"02/01/2006",
	"2006/01/02",
}

// ComputeIdempotencyKey derives the deterministic row key for a
// (actor, shift, date, itemCode) tuple. All fields are normalized first so
// formatting drift between producer and consumer cannot split one logical
// record into two keys. The same function serves both the write path that
// mints keys and the read path that searches for them.
func ComputeIdempotencyKey(actor, shift, date, itemCode string) string {
	joined := strings.Join([]string{
		normalizeField(actor),
		normalizeField(shift),
		NormalizeDate(date),
		normalizeField(itemCode),
	}, keySeparator)

	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:8])
}

// RecordKey computes the idempotency key of a count record.
func RecordKey(r model.CountRecord) string {
	return ComputeIdempotencyKey(r.Actor, r.Shift, r.Date, r.ItemCode)
}

// NormalizeDate canonicalizes a form-entered date to ISO 2006-01-02.
// Day-first layouts are preferred over month-first since the form's locale
// writes DD-MM-YYYY. Unparseable input falls back to the trimmed raw string,
// which is still deterministic for identical inputs.
func NormalizeDate(raw string) string {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return trimmed
}

// normalizeField trims and collapses internal whitespace runs to single
// spaces, so "Budi  Santoso" and "Budi Santoso " hash identically.
func normalizeField(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
