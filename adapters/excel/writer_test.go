package excel

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"popxf/internal/scan"
)

func TestWriteResult(t *testing.T) {
	res := &scan.Result{
		RunID:       uuid.New(),
		Observables: []string{"xsec", "afb"},
		Centrals: [][]float64{
			{1.0, 0.1},
			{2.0, 0.2},
			{3.0, 0.3},
		},
		StartedAt:  time.Now().Add(-time.Second),
		FinishedAt: time.Now(),
	}

	path := filepath.Join(t.TempDir(), "scan.xlsx")
	require.NoError(t, WriteResult(res, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Results", "B1")
	require.NoError(t, err)
	assert.Equal(t, "xsec", got)

	got, err = f.GetCellValue("Results", "C4")
	require.NoError(t, err)
	assert.Equal(t, "0.3", got)

	got, err = f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "xsec", got)

	got, err = f.GetCellValue("Summary", "C2")
	require.NoError(t, err)
	assert.Equal(t, "3", got) // max of xsec column
}
