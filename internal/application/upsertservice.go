// Package application holds the services driving the stock-count workflows:
// batch upsert, reference-data reads, and backend health.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

// Column names of the count sheet. The ID column holds the idempotency key.
const (
	ColID        = "ID"
	ColTimestamp = "Timestamp"
	ColActor     = "Nama Kasir"
	ColDate      = "Tanggal Rekap"
	ColShift     = "Shift"
	ColPLU       = "PLU"
	ColItemName  = "Nama Barang"
	ColOnHand    = "OH"
	ColPhysical  = "Fisik"
	ColVariance  = "Selisih"
	ColSource    = "Pengirim"
)

// submissionSource marks rows written through this API, as opposed to rows
// entered in the spreadsheet by hand.
const submissionSource = "Website"

// UpsertService turns a batch of count records into sheet rows, collapsing
// repeated submissions of the same logical record into a single row keyed by
// its idempotency key.
type UpsertService struct {
	sheets    driven.SheetClient
	journal   driven.SubmissionJournal // nil disables journaling
	sheetName string
	logger    *slog.Logger
	now       func() time.Time
}

// NewUpsertService creates an UpsertService writing to the named sheet.
// journal may be nil; journaling is best-effort either way.
func NewUpsertService(sheets driven.SheetClient, journal driven.SubmissionJournal, sheetName string, logger *slog.Logger) *UpsertService {
	return &UpsertService{
		sheets:    sheets,
		journal:   journal,
		sheetName: sheetName,
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitBatch upserts each record independently, in input order. A record's
// find-then-write pair completes before the next record starts, so related
// rows land in submission order. Individual failures are collected in the
// result and never abort the rest of the batch; the call itself fails only
// on batch-level preconditions (empty batch, incomplete records) or when the
// caller's context is canceled between records.
func (s *UpsertService) SubmitBatch(ctx context.Context, records []model.CountRecord) (*model.BatchResult, error) {
	if len(records) == 0 {
		return nil, model.ErrEmptyBatch
	}
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	batchID := uuid.NewString()
	result := &model.BatchResult{}
	entries := make([]model.SubmissionEntry, 0, len(records))

	for _, rec := range records {
		// Stop issuing remote calls for records not yet started once the
		// caller has gone away. In-flight calls completed; no rollback.
		if err := ctx.Err(); err != nil {
			s.recordOutcomes(ctx, entries)
			return result, err
		}

		key := RecordKey(rec)
		outcome, err := s.upsertOne(ctx, key, rec)

		entry := model.SubmissionEntry{
			BatchID:  batchID,
			Key:      key,
			Actor:    rec.Actor,
			Date:     NormalizeDate(rec.Date),
			Shift:    rec.Shift,
			ItemCode: rec.ItemCode,
			Outcome:  outcome,
		}

		switch outcome {
		case model.OutcomeAppended:
			result.Appended++
		case model.OutcomeUpdated:
			result.Updated++
		case model.OutcomeFailed:
			result.Failed = append(result.Failed, model.RecordFailure{Record: rec, Err: err})
			entry.Detail = err.Error()
			s.logger.Warn("record upsert failed",
				"key", key,
				"actor", rec.Actor,
				"plu", rec.ItemCode,
				"error", err,
			)
		}

		entries = append(entries, entry)
	}

	s.recordOutcomes(ctx, entries)

	s.logger.Info("batch submitted",
		"batch_id", batchID,
		"records", len(records),
		"appended", result.Appended,
		"updated", result.Updated,
		"failed", len(result.Failed),
	)

	return result, nil
}

// upsertOne runs the find-then-write pair for one record.
func (s *UpsertService) upsertOne(ctx context.Context, key string, rec model.CountRecord) (model.SubmissionOutcome, error) {
	rowIndex, _, err := s.sheets.FindRowByKey(ctx, s.sheetName, ColID, key)
	switch {
	case err == nil:
		if err := s.sheets.UpdateRowByIndex(ctx, s.sheetName, rowIndex, s.buildRow(key, rec)); err != nil {
			return model.OutcomeFailed, err
		}
		return model.OutcomeUpdated, nil

	case isNotFound(err):
		if err := s.sheets.AppendRow(ctx, s.sheetName, s.buildRow(key, rec)); err != nil {
			return model.OutcomeFailed, err
		}
		return model.OutcomeAppended, nil

	default:
		return model.OutcomeFailed, err
	}
}

// buildRow lays a record out in count-sheet column order with a fresh
// timestamp. Variance is recomputed here, never copied from input.
func (s *UpsertService) buildRow(key string, rec model.CountRecord) model.Row {
	return model.Row{
		key,
		s.now().UTC().Format(time.RFC3339),
		rec.Actor,
		NormalizeDate(rec.Date),
		rec.Shift,
		rec.ItemCode,
		rec.ItemName,
		strconv.Itoa(rec.OnHand),
		strconv.Itoa(rec.Physical),
		strconv.Itoa(rec.Variance()),
		submissionSource,
	}
}

// recordOutcomes journals the batch. Best-effort: a journal failure is
// logged, never surfaced to the submitter.
func (s *UpsertService) recordOutcomes(ctx context.Context, entries []model.SubmissionEntry) {
	if s.journal == nil || len(entries) == 0 {
		return
	}
	if err := s.journal.RecordBatch(context.WithoutCancel(ctx), entries); err != nil {
		s.logger.Error("journaling batch failed", "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, driven.ErrRowNotFound)
}
