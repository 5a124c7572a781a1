package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"popxf/internal/scan"
)

// ScanRun is the persisted record of one parameter scan.
type ScanRun struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Mode        string          `db:"mode" json:"mode"`
	Observables int             `db:"observables" json:"observables"`
	Points      int             `db:"points" json:"points"`
	Tainted     int             `db:"tainted" json:"tainted"`
	Failed      int             `db:"failed" json:"failed"`
	Summaries   json.RawMessage `db:"summaries" json:"summaries"`
	StartedAt   time.Time       `db:"started_at" json:"started_at"`
	FinishedAt  time.Time       `db:"finished_at" json:"finished_at"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// NewScanRun flattens a scan result into its persisted form.
func NewScanRun(res *scan.Result, mode string) (*ScanRun, error) {
	summaries, err := res.Summaries()
	if err != nil {
		return nil, err
	}
	blob, err := json.Marshal(summaries)
	if err != nil {
		return nil, err
	}
	return &ScanRun{
		ID:          res.RunID,
		Mode:        mode,
		Observables: len(res.Observables),
		Points:      len(res.Centrals),
		Tainted:     res.Tainted,
		Failed:      res.Failed,
		Summaries:   blob,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
