// File: internal/store/store.go
// Description: PostgreSQL report store over a pgx pool. The DBPool interface
// abstracts pgxpool.Pool so tests can run against a mock.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts the pgxpool.Pool for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS guardian_reports (
    id          TEXT PRIMARY KEY,
    report_date TEXT NOT NULL,
    executed_at TIMESTAMPTZ NOT NULL,
    status      TEXT NOT NULL,
    payload     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS guardian_reports_executed_at_idx
    ON guardian_reports (executed_at DESC);

CREATE TABLE IF NOT EXISTS guardian_alerts (
    id               TEXT NOT NULL,
    severity         TEXT NOT NULL,
    category         TEXT NOT NULL,
    message          TEXT NOT NULL,
    occurrence_count INT NOT NULL,
    escalated_at     TIMESTAMPTZ NOT NULL,
    payload          JSONB NOT NULL
);
`

// PostgresStore persists reports and escalated alerts in PostgreSQL.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgresStore connects a pool for the given URL, verifies the
// connection, and ensures the schema exists.
func NewPostgresStore(ctx context.Context, logger *zap.Logger, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	s, err := NewWithPool(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return s, nil
}

// NewWithPool creates a store over an existing pool and verifies the
// connection. The caller owns schema setup.
func NewWithPool(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveReport inserts one immutable daily report.
func (s *PostgresStore) SaveReport(ctx context.Context, report *schemas.DailyReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", report.ID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO guardian_reports (id, report_date, executed_at, status, payload)
         VALUES ($1, $2, $3, $4, $5)`,
		report.ID, report.Date, report.ExecutedAt.UTC(), string(report.Status), payload)
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.ID, err)
	}
	return nil
}

// LatestReports returns up to n reports ordered by execution time descending.
func (s *PostgresStore) LatestReports(ctx context.Context, n int) ([]schemas.DailyReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM guardian_reports ORDER BY executed_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []schemas.DailyReport
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		var report schemas.DailyReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("failed to decode stored report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return reports, nil
}

// SaveAlert inserts one escalated alert.
func (s *PostgresStore) SaveAlert(ctx context.Context, alert *schemas.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert %s: %w", alert.ID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO guardian_alerts (id, severity, category, message, occurrence_count, escalated_at, payload)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		alert.ID, string(alert.Severity), string(alert.Category), alert.Message,
		alert.OccurrenceCount, time.Now().UTC(), payload)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
