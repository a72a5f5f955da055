// Package postgres writes crawl rows into a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
)

// DefaultTable receives rows when no table is configured.
const DefaultTable = "booking_rows"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for booking rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Sink inserts one row per extracted booking.
type Sink struct {
	pool  execCloser
	table string
	query string
}

// New connects a pool and returns a Sink writing to cfg.Table.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("output.postgres_dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sink, err := NewWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

// NewWithPool builds a Sink over an existing pool.
func NewWithPool(pool execCloser, table string) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{pool: pool, table: table, query: insertQuery(table)}, nil
}

// Table reports the destination table.
func (s *Sink) Table() string { return s.table }

func insertQuery(table string) string {
	return fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	booking_id,
	booking_date,
	scraped_on,
	raw_key,
	age_at_booking,
	bail_amount,
	charges,
	court_date,
	court_location,
	gender,
	inmate_hash,
	height,
	housing_location,
	race,
	weight,
	incomplete
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`, table)
}

// Write inserts the row.
func (s *Sink) Write(ctx context.Context, row crawler.OutputRow) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	r := row.Record
	if r.BookingID == "" {
		return fmt.Errorf("booking id is required")
	}
	args := []any{
		row.RunID,
		r.BookingID,
		r.BookingDate,
		row.ScrapedOn,
		row.RawKey,
		r.AgeAtBooking,
		r.BailAmount,
		r.Charges,
		r.CourtDate,
		r.CourtLocation,
		r.Gender,
		r.InmateHash,
		r.Height,
		r.HousingLocation,
		r.Race,
		r.Weight,
		row.Incomplete,
	}
	if _, err := s.pool.Exec(ctx, s.query, args...); err != nil {
		return fmt.Errorf("insert booking %s: %w", r.BookingID, err)
	}
	return nil
}

// Close releases the pool.
func (s *Sink) Close(context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
