package worker

import (
	"context"
	"fmt"
	"log/slog"

	"droptrack/internal/amqp"
	"droptrack/internal/core"
	applog "droptrack/internal/log"
	"droptrack/internal/store"

	"github.com/shopspring/decimal"
)

// Source delivers record change events until the context ends.
type Source interface {
	ConsumeRecordEvents(ctx context.Context, handler func(*amqp.RecordEvent) error) error
}

// MonthSummary is the recomputed state of one calendar month.
type MonthSummary struct {
	Year      int
	Month     int
	Days      int
	Income    decimal.Decimal
	Loss      decimal.Decimal
	NetPoints int
}

// SummaryWorker drains record change events and logs fresh month totals for
// every affected month, keeping an audit trail of ledger activity behind the
// API.
type SummaryWorker struct {
	store store.Store
}

func NewSummaryWorker(st store.Store) *SummaryWorker {
	return &SummaryWorker{store: st}
}

// Run consumes events from source until ctx is done.
func (w *SummaryWorker) Run(ctx context.Context, source Source) error {
	return source.ConsumeRecordEvents(ctx, func(e *amqp.RecordEvent) error {
		return w.HandleEvent(ctx, e)
	})
}

// HandleEvent recomputes the month containing the event's date. An event
// with an unparseable date is dropped rather than requeued; store failures
// propagate so the delivery is retried.
func (w *SummaryWorker) HandleEvent(ctx context.Context, e *amqp.RecordEvent) error {
	d, err := core.ParseDate(e.Date)
	if err != nil {
		slog.WarnContext(ctx, "Dropping event with invalid date",
			"event", e.Event, applog.FieldDate, e.Date, "error", err)
		return nil
	}

	summary, err := w.Summarize(ctx, d.Year(), d.Month())
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Month summary updated",
		"event", e.Event,
		applog.FieldDate, e.Date,
		applog.FieldYear, summary.Year,
		applog.FieldMonth, summary.Month,
		"days", summary.Days,
		applog.FieldIncome, summary.Income.String(),
		applog.FieldLoss, summary.Loss.String(),
		applog.FieldNetPoints, summary.NetPoints)
	return nil
}

// Summarize totals one month straight from the store.
func (w *SummaryWorker) Summarize(ctx context.Context, year, month int) (MonthSummary, error) {
	records, err := w.store.ListMonth(ctx, year, month)
	if err != nil {
		return MonthSummary{}, fmt.Errorf("summarize %04d-%02d: %w", year, month, err)
	}

	summary := MonthSummary{Year: year, Month: month, Days: len(records)}
	for _, r := range records {
		summary.Income = summary.Income.Add(r.Income)
		summary.Loss = summary.Loss.Add(r.Loss)
		summary.NetPoints += r.Net()
	}
	return summary, nil
}
