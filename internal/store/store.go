package store

import (
	"context"
	"fmt"
	"time"

	"droptrack/internal/core"
)

// Store is the durable record store, keyed uniquely by date. A date with no
// record is empty, not an error: GetByDate returns nil without error.
type Store interface {
	// Upsert inserts the record or fully overwrites the mutable fields of an
	// existing record for the same date. Timestamps are assigned server-side.
	Upsert(ctx context.Context, r core.DailyRecord) (core.DailyRecord, error)

	GetByDate(ctx context.Context, d core.Date) (*core.DailyRecord, error)

	// DeleteByDate removes the record and reports whether one existed.
	DeleteByDate(ctx context.Context, d core.Date) (bool, error)

	// ListMonth returns the records of one calendar month (month 1-12),
	// ordered by date ascending.
	ListMonth(ctx context.Context, year, month int) ([]core.DailyRecord, error)

	// ListByCreatedRange returns records whose creation instant falls in
	// [start, end], both UTC.
	ListByCreatedRange(ctx context.Context, start, end time.Time) ([]core.DailyRecord, error)

	// ListAll returns every record, newest date first.
	ListAll(ctx context.Context) ([]core.DailyRecord, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string // "memory", "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string
}

// Open builds the configured backend, running its migrations.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(opts.SQLitePath)
	case "postgres":
		return OpenPostgres(opts.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// monthBounds returns the first day of the month and the first day of the
// following month, the half-open range [first, next) covering the month.
func monthBounds(year, month int) (core.Date, core.Date) {
	first := core.NewDate(year, month, 1)
	next := core.NewDate(year, month+1, 1)
	return first, next
}
