// Package sqlite stores benchmark records in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/oriys/searchgate/internal/reqmetrics"
)

var (
	errFailedOpenDB   = errors.New("failed to open database")
	errFailedToInit   = errors.New("failed to initialize schema")
	errFailedToInsert = errors.New("failed to insert")
	errFailedToQuery  = errors.New("failed to query")
	errFailedToScan   = errors.New("failed to scan")
)

// timestampLayout is fixed-width ISO-8601 in UTC so that text comparison
// orders timestamps correctly.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

const (
	createSchemaSQL = `
	CREATE TABLE IF NOT EXISTS benchmark_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint TEXT NOT NULL,
		wall_ms REAL NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_benchmark_records_time_endpoint
		ON benchmark_records(timestamp, endpoint);
	`

	insertRecordSQL = `
	INSERT INTO benchmark_records (endpoint, wall_ms, timestamp)
	VALUES (?, ?, ?)`

	aggregateSQL = `
	SELECT endpoint, AVG(wall_ms), COUNT(*)
	FROM benchmark_records
	WHERE timestamp >= ?
	GROUP BY endpoint
	ORDER BY COUNT(*) DESC, endpoint ASC`
)

// Backend is a reqmetrics.Backend over a SQLite file.
type Backend struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path. The schema is created by
// Setup.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	return &Backend{db: db, now: time.Now}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Setup(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("%w: %w", errFailedToInit, err)
	}
	return nil
}

func (b *Backend) Write(ctx context.Context, doc reqmetrics.Document) error {
	_, err := b.db.ExecContext(ctx, insertRecordSQL,
		doc.Endpoint,
		doc.WallMS,
		doc.Timestamp.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}
	return nil
}

func (b *Backend) Aggregate(ctx context.Context, interval reqmetrics.Interval) ([]reqmetrics.EndpointMetric, error) {
	since := b.now().Add(-interval.Duration()).UTC().Format(timestampLayout)

	rows, err := b.db.QueryContext(ctx, aggregateSQL, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	result := []reqmetrics.EndpointMetric{}
	for rows.Next() {
		var (
			metric reqmetrics.EndpointMetric
			avg    sql.NullFloat64
		)
		if err := rows.Scan(&metric.Endpoint, &avg, &metric.RequestsCount); err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToScan, err)
		}
		if avg.Valid {
			v := avg.Float64
			metric.AverageResponseTime = &v
		}
		metric.Interval = interval.String()
		result = append(result, metric)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}

	return result, nil
}
