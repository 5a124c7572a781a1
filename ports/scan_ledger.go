package ports

import (
	"context"

	"github.com/google/uuid"

	"popxf/models"
)

// ScanLedger persists completed parameter-scan runs.
type ScanLedger interface {
	SaveRun(ctx context.Context, run *models.ScanRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ScanRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.ScanRun, error)
}
