package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"coachdesk/internal/metrics"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQuery is the threshold above which a call is logged at WARN.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sql.DB, observing every call in Prometheus and the perf ring
// and logging calls slower than the threshold.
type TimedDB struct {
	db        *sql.DB
	ring      *metrics.Ring
	threshold time.Duration
}

// NewTimedDB wraps db. ring may be nil; threshold <= 0 uses DefaultSlowQuery.
// PRE: db is a valid database connection
// POST: Returns a TimedDB that satisfies SQLDB
func NewTimedDB(db *sql.DB, ring *metrics.Ring, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, ring: ring, threshold: threshold}
}

// RawDB returns the underlying *sql.DB for migrations and shutdown.
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

// observe records one call. op is "exec:INSERT", "query:SELECT" and so on.
func (t *TimedDB) observe(op string, start time.Time) {
	elapsed := time.Since(start)
	metrics.ObserveQuery(op, elapsed)

	if elapsed >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", float64(elapsed.Microseconds())/1000)
	}
	if t.ring != nil {
		t.ring.Record(metrics.Sample{Kind: metrics.SampleQuery, Name: op, Duration: elapsed, At: start})
	}
}

// ExecContext runs a statement with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.db.ExecContext(ctx, query, args...)
	t.observe(opName("exec", query), start)
	return res, err
}

// QueryContext runs a query with timing. The time covers the first row only.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(opName("query", query), start)
	return rows, err
}

// QueryRowContext runs a single-row query with timing.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(opName("query", query), start)
	return row
}

// BeginTx starts a transaction. Statements inside the transaction are not timed individually.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe("begin", start)
	return tx, err
}

// PingContext verifies the connection is alive.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Close closes the underlying database.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// opName keeps label cardinality low: the call kind plus the statement's leading keyword.
func opName(kind, query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return kind
	}
	return kind + ":" + strings.ToUpper(fields[0])
}
