// Package excel exports scan results as an .xlsx workbook: one sheet with
// the per-point observable values, one with the per-observable summaries.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"popxf/internal/scan"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// WriteResult renders a scan result into a workbook at path.
func WriteResult(res *scan.Result, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", resultsSheet)
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	// Results: header row of observable names, one row per point.
	header := append([]interface{}{"point"}, toCells(res.Observables)...)
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range res.Centrals {
		cells := make([]interface{}, 0, len(row)+1)
		cells = append(cells, i)
		for _, v := range row {
			cells = append(cells, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &cells); err != nil {
			return err
		}
	}

	// Summary: one row per observable.
	summaries, err := res.Summaries()
	if err != nil {
		return err
	}
	summaryHeader := []interface{}{"observable", "min", "max", "mean", "stddev"}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return err
	}
	for i, s := range summaries {
		cells := []interface{}{res.Observables[i], s.Min, s.Max, s.Mean, s.StdDev}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &cells); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func toCells(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
