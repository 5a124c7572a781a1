package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "popxf/internal/errors"
	"popxf/models"
	"popxf/ports"
)

const scanRunsSchema = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id UUID PRIMARY KEY,
	mode TEXT NOT NULL,
	observables INT NOT NULL,
	points INT NOT NULL,
	tainted INT NOT NULL,
	failed INT NOT NULL,
	summaries JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// ScanLedgerImpl implements ports.ScanLedger for PostgreSQL
type ScanLedgerImpl struct {
	db *sqlx.DB
}

// NewScanLedger creates a new PostgreSQL scan ledger
func NewScanLedger(db *sqlx.DB) *ScanLedgerImpl {
	return &ScanLedgerImpl{db: db}
}

var _ ports.ScanLedger = (*ScanLedgerImpl)(nil)

// EnsureSchema creates the scan_runs table when missing
func (l *ScanLedgerImpl) EnsureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, scanRunsSchema)
	if err != nil {
		return apperrors.DatabaseError("failed to ensure scan_runs schema", err)
	}
	return nil
}

// SaveRun inserts a completed scan run
func (l *ScanLedgerImpl) SaveRun(ctx context.Context, run *models.ScanRun) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO scan_runs (id, mode, observables, points, tainted, failed, summaries, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.Mode, run.Observables, run.Points, run.Tainted, run.Failed,
		[]byte(run.Summaries), run.StartedAt, run.FinishedAt, run.CreatedAt)
	if err != nil {
		return apperrors.DatabaseError("failed to insert scan run", err)
	}
	return nil
}

// GetRun retrieves one scan run by ID
func (l *ScanLedgerImpl) GetRun(ctx context.Context, id uuid.UUID) (*models.ScanRun, error) {
	var run models.ScanRun
	err := l.db.GetContext(ctx, &run, `
		SELECT id, mode, observables, points, tainted, failed, summaries, started_at, finished_at, created_at
		FROM scan_runs
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("scan run")
	}
	if err != nil {
		return nil, apperrors.DatabaseError("failed to get scan run", err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent scan runs
func (l *ScanLedgerImpl) ListRuns(ctx context.Context, limit int) ([]models.ScanRun, error) {
	runs := []models.ScanRun{}
	err := l.db.SelectContext(ctx, &runs, `
		SELECT id, mode, observables, points, tainted, failed, summaries, started_at, finished_at, created_at
		FROM scan_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list scan runs", err)
	}
	return runs, nil
}
