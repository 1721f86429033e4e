package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"droptrack/internal/core"

	_ "github.com/lib/pq"
)

// Postgres is the Store backend for a shared deployment.
type Postgres struct {
	db *sql.DB
}

func OpenPostgres(url string) (*Postgres, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

const pgColumns = "id, date, volume, points_balance, points_trading, points_consumed, loss, income, created_at, updated_at"

func (p *Postgres) Upsert(ctx context.Context, r core.DailyRecord) (core.DailyRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO records (date, volume, points_balance, points_trading, points_consumed, loss, income)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			volume = EXCLUDED.volume,
			points_balance = EXCLUDED.points_balance,
			points_trading = EXCLUDED.points_trading,
			points_consumed = EXCLUDED.points_consumed,
			loss = EXCLUDED.loss,
			income = EXCLUDED.income,
			updated_at = CURRENT_TIMESTAMP
		RETURNING `+pgColumns,
		r.Date.String(), r.Volume, r.PointsBalance, r.PointsTrading, r.PointsConsumed, r.Loss, r.Income)

	saved, err := scanPGRecord(row)
	if err != nil {
		return core.DailyRecord{}, fmt.Errorf("upsert record %s: %w", r.Date, err)
	}
	return saved, nil
}

func (p *Postgres) GetByDate(ctx context.Context, d core.Date) (*core.DailyRecord, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT "+pgColumns+" FROM records WHERE date = $1", d.String())
	r, err := scanPGRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", d, err)
	}
	return &r, nil
}

func (p *Postgres) DeleteByDate(ctx context.Context, d core.Date) (bool, error) {
	res, err := p.db.ExecContext(ctx, "DELETE FROM records WHERE date = $1", d.String())
	if err != nil {
		return false, fmt.Errorf("delete record %s: %w", d, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record %s: %w", d, err)
	}
	return n > 0, nil
}

func (p *Postgres) ListMonth(ctx context.Context, year, month int) ([]core.DailyRecord, error) {
	first, next := monthBounds(year, month)
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+pgColumns+" FROM records WHERE date >= $1 AND date < $2 ORDER BY date",
		first.String(), next.String())
	if err != nil {
		return nil, fmt.Errorf("list month %d-%02d: %w", year, month, err)
	}
	return collectPGRecords(rows)
}

func (p *Postgres) ListByCreatedRange(ctx context.Context, start, end time.Time) ([]core.DailyRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+pgColumns+" FROM records WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at",
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("list by created range: %w", err)
	}
	return collectPGRecords(rows)
}

func (p *Postgres) ListAll(ctx context.Context) ([]core.DailyRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+pgColumns+" FROM records ORDER BY date DESC")
	if err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	return collectPGRecords(rows)
}

func scanPGRecord(row rowScanner) (core.DailyRecord, error) {
	var (
		r    core.DailyRecord
		date time.Time
	)
	err := row.Scan(&r.ID, &date, &r.Volume, &r.PointsBalance, &r.PointsTrading,
		&r.PointsConsumed, &r.Loss, &r.Income, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func collectPGRecords(rows *sql.Rows) ([]core.DailyRecord, error) {
	defer rows.Close()

	var out []core.DailyRecord
	for rows.Next() {
		r, err := scanPGRecord(rows)
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
