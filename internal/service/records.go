package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"droptrack/internal/amqp"
	"droptrack/internal/core"
	"droptrack/internal/store"
)

// Records is the aggregation service over the record store: it applies
// field defaults on save, annotates derived net points on every read and
// publishes change events after mutations.
type Records struct {
	store  store.Store
	events *amqp.Client
}

func NewRecords(st store.Store, events *amqp.Client) *Records {
	return &Records{store: st, events: events}
}

// Save builds a record from a raw payload (defaults applied), validates it
// and upserts. The same date fully overwrites; there is no partial patch.
func (s *Records) Save(ctx context.Context, payload map[string]json.RawMessage) (core.DailyRecord, error) {
	r, err := core.BuildRecord(payload)
	if err != nil {
		return core.DailyRecord{}, err
	}
	if err := r.Validate(); err != nil {
		return core.DailyRecord{}, err
	}

	saved, err := s.store.Upsert(ctx, r)
	if err != nil {
		return core.DailyRecord{}, fmt.Errorf("save record: %w", err)
	}

	// Event publication is best effort; the record is already durable.
	if err := s.events.PublishRecordEvent(ctx, amqp.EventRecordSaved, saved.Date.String()); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record saved event",
			"date", saved.Date.String(), "error", err)
	}

	return saved.WithNet(), nil
}

// Get returns the record for one date, or nil when the date is empty.
func (s *Records) Get(ctx context.Context, d core.Date) (*core.DailyRecord, error) {
	r, err := s.store.GetByDate(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if r == nil {
		return nil, nil
	}
	annotated := r.WithNet()
	return &annotated, nil
}

// MonthlyStats returns the records of one calendar month ordered by date
// ascending, each with net points recomputed.
func (s *Records) MonthlyStats(ctx context.Context, year, month int) ([]core.DailyRecord, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", core.ErrInvalidDate, month)
	}
	records, err := s.store.ListMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("monthly stats %d-%02d: %w", year, month, err)
	}
	return annotate(records), nil
}

// ByCreation returns records created within [startMs, endMs], both
// millisecond epochs carrying UTC+8 wall-clock readings.
func (s *Records) ByCreation(ctx context.Context, startMs, endMs int64) ([]core.DailyRecord, error) {
	start := core.ShiftedUTC(startMs)
	end := core.ShiftedUTC(endMs)
	records, err := s.store.ListByCreatedRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("records by creation: %w", err)
	}
	return annotate(records), nil
}

// Delete removes one date permanently. Absent dates yield core.ErrNotFound.
func (s *Records) Delete(ctx context.Context, d core.Date) error {
	existed, err := s.store.DeleteByDate(ctx, d)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if !existed {
		return core.ErrNotFound
	}

	if err := s.events.PublishRecordEvent(ctx, amqp.EventRecordDeleted, d.String()); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record deleted event",
			"date", d.String(), "error", err)
	}

	return nil
}

// All returns every record, newest date first.
func (s *Records) All(ctx context.Context) ([]core.DailyRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return annotate(records), nil
}

func annotate(records []core.DailyRecord) []core.DailyRecord {
	out := make([]core.DailyRecord, len(records))
	for i, r := range records {
		out[i] = r.WithNet()
	}
	return out
}
