// File: internal/store/open.go
// Description: Store selection. Postgres when configured and reachable, the
// file store otherwise, console-only logging as the last resort. Opening a
// store never fails the caller.
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/config"
)

// Open selects the best available ReportStore for the configuration.
func Open(ctx context.Context, logger *zap.Logger, cfg config.DatabaseConfig) schemas.ReportStore {
	if cfg.URL != "" {
		pg, err := NewPostgresStore(ctx, logger, cfg.URL)
		if err == nil {
			logger.Info("Using PostgreSQL report store")
			return pg
		}
		logger.Warn("Database unavailable; falling back to file store", zap.Error(err))
	}

	fs, err := NewFileStore(logger, cfg.DataDir)
	if err == nil {
		logger.Info("Using append-only file report store", zap.String("dir", fs.dir))
		return fs
	}
	logger.Warn("File store unavailable; degrading to console-only persistence", zap.Error(err))

	return NewConsoleStore(logger)
}

// ConsoleStore is the degraded persistence of last resort: everything is
// logged, nothing survives the process, and no operation ever fails.
type ConsoleStore struct {
	logger *zap.Logger
}

// NewConsoleStore creates the console-only store.
func NewConsoleStore(logger *zap.Logger) *ConsoleStore {
	return &ConsoleStore{logger: logger.Named("console-store")}
}

// SaveReport logs the report summary and discards it.
func (s *ConsoleStore) SaveReport(_ context.Context, report *schemas.DailyReport) error {
	s.logger.Info("Report (not persisted)",
		zap.String("id", report.ID),
		zap.String("status", string(report.Status)),
		zap.Int("errors", len(report.Errors)))
	return nil
}

// LatestReports always returns nothing; console persistence keeps no state.
func (s *ConsoleStore) LatestReports(context.Context, int) ([]schemas.DailyReport, error) {
	return nil, nil
}

// SaveAlert logs the alert and discards it.
func (s *ConsoleStore) SaveAlert(_ context.Context, alert *schemas.Alert) error {
	s.logger.Warn("Alert (not persisted)",
		zap.String("id", alert.ID),
		zap.String("severity", string(alert.Severity)),
		zap.String("message", alert.Message))
	return nil
}

// Close is a no-op.
func (s *ConsoleStore) Close() {}
