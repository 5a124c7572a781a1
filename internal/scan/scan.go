// Package scan runs an engine over many parameter points, in parallel, and
// summarizes the resulting observable series.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"popxf/internal/engine"
)

// Point is one parameter assignment.
type Point map[string]complex128

// Request describes a scan: the points to evaluate and how many workers may
// run at once (0 means unbounded).
type Request struct {
	Points  []Point
	Workers int
}

// Summary holds descriptive statistics for one observable across the scan.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Result is a completed scan. Centrals is indexed [point][observable], in
// the document's observable order.
type Result struct {
	RunID       uuid.UUID
	Observables []string
	Centrals    [][]float64
	Tainted     int // points with at least one domain warning
	Failed      int // points with at least one per-observable error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Run evaluates all points. The engine is immutable, so workers share it
// without locking; each worker writes only its own point's row.
func Run(ctx context.Context, e *engine.Engine, req Request) (*Result, error) {
	names := e.Observables()
	res := &Result{
		RunID:       uuid.New(),
		Observables: names,
		Centrals:    make([][]float64, len(req.Points)),
		StartedAt:   time.Now().UTC(),
	}

	tainted := make([]bool, len(req.Points))
	failed := make([]bool, len(req.Points))

	g, ctx := errgroup.WithContext(ctx)
	if req.Workers > 0 {
		g.SetLimit(req.Workers)
	}
	for i, point := range req.Points {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := make([]float64, len(names))
			results := e.Evaluate(point)
			for j, name := range names {
				r := results[name]
				if r.Err != nil {
					failed[i] = true
					continue
				}
				if len(r.Warnings) > 0 {
					tainted[i] = true
				}
				row[j] = r.Central
			}
			res.Centrals[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range req.Points {
		if tainted[i] {
			res.Tainted++
		}
		if failed[i] {
			res.Failed++
		}
	}
	res.FinishedAt = time.Now().UTC()
	return res, nil
}

// Series extracts one observable's values across all points.
func (r *Result) Series(observable int) ([]float64, error) {
	if observable < 0 || observable >= len(r.Observables) {
		return nil, fmt.Errorf("observable index %d out of range", observable)
	}
	out := make([]float64, len(r.Centrals))
	for i, row := range r.Centrals {
		out[i] = row[observable]
	}
	return out, nil
}

// Summaries computes per-observable descriptive statistics.
func (r *Result) Summaries() ([]Summary, error) {
	out := make([]Summary, len(r.Observables))
	for j := range r.Observables {
		series, err := r.Series(j)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			continue
		}
		min, err := stats.Min(series)
		if err != nil {
			return nil, err
		}
		max, err := stats.Max(series)
		if err != nil {
			return nil, err
		}
		mean, err := stats.Mean(series)
		if err != nil {
			return nil, err
		}
		sd, err := stats.StandardDeviation(series)
		if err != nil {
			return nil, err
		}
		out[j] = Summary{Min: min, Max: max, Mean: mean, StdDev: sd}
	}
	return out, nil
}
