package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"droptrack/internal/core"

	_ "modernc.org/sqlite"
)

// Timestamps are stored as UTC text in this layout so that lexicographic
// comparison matches chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLite is the default single-file Store backend.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const sqliteColumns = "id, date, volume, points_balance, points_trading, points_consumed, loss, income, created_at, updated_at"

func (s *SQLite) Upsert(ctx context.Context, r core.DailyRecord) (core.DailyRecord, error) {
	now := time.Now().UTC().Format(sqliteTimeLayout)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO records (date, volume, points_balance, points_trading, points_consumed, loss, income, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			volume = excluded.volume,
			points_balance = excluded.points_balance,
			points_trading = excluded.points_trading,
			points_consumed = excluded.points_consumed,
			loss = excluded.loss,
			income = excluded.income,
			updated_at = excluded.updated_at
		RETURNING `+sqliteColumns,
		r.Date.String(), r.Volume.String(), r.PointsBalance, r.PointsTrading, r.PointsConsumed,
		r.Loss.String(), r.Income.String(), now, now)

	saved, err := scanSQLiteRecord(row)
	if err != nil {
		return core.DailyRecord{}, fmt.Errorf("upsert record %s: %w", r.Date, err)
	}
	return saved, nil
}

func (s *SQLite) GetByDate(ctx context.Context, d core.Date) (*core.DailyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sqliteColumns+" FROM records WHERE date = ?", d.String())
	r, err := scanSQLiteRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", d, err)
	}
	return &r, nil
}

func (s *SQLite) DeleteByDate(ctx context.Context, d core.Date) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE date = ?", d.String())
	if err != nil {
		return false, fmt.Errorf("delete record %s: %w", d, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record %s: %w", d, err)
	}
	return n > 0, nil
}

func (s *SQLite) ListMonth(ctx context.Context, year, month int) ([]core.DailyRecord, error) {
	first, next := monthBounds(year, month)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM records WHERE date >= ? AND date < ? ORDER BY date",
		first.String(), next.String())
	if err != nil {
		return nil, fmt.Errorf("list month %d-%02d: %w", year, month, err)
	}
	return collectSQLiteRecords(rows)
}

func (s *SQLite) ListByCreatedRange(ctx context.Context, start, end time.Time) ([]core.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM records WHERE created_at >= ? AND created_at <= ? ORDER BY created_at",
		start.UTC().Format(sqliteTimeLayout), end.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("list by created range: %w", err)
	}
	return collectSQLiteRecords(rows)
}

func (s *SQLite) ListAll(ctx context.Context) ([]core.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sqliteColumns+" FROM records ORDER BY date DESC")
	if err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	return collectSQLiteRecords(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (core.DailyRecord, error) {
	var (
		r                  core.DailyRecord
		date               string
		createdAt, updated string
	)
	err := row.Scan(&r.ID, &date, &r.Volume, &r.PointsBalance, &r.PointsTrading,
		&r.PointsConsumed, &r.Loss, &r.Income, &createdAt, &updated)
	if err != nil {
		return r, err
	}
	if r.Date, err = core.ParseDate(date); err != nil {
		return r, fmt.Errorf("stored date %q: %w", date, err)
	}
	if r.CreatedAt, err = time.ParseInLocation(sqliteTimeLayout, createdAt, time.UTC); err != nil {
		return r, fmt.Errorf("stored created_at %q: %w", createdAt, err)
	}
	if r.UpdatedAt, err = time.ParseInLocation(sqliteTimeLayout, updated, time.UTC); err != nil {
		return r, fmt.Errorf("stored updated_at %q: %w", updated, err)
	}
	return r, nil
}

func collectSQLiteRecords(rows *sql.Rows) ([]core.DailyRecord, error) {
	defer rows.Close()

	var out []core.DailyRecord
	for rows.Next() {
		r, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
