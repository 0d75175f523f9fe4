package export_test

import (
	"path/filepath"
	"testing"
	"time"

	"covidanalyzer/pkg/domain"
	"covidanalyzer/pkg/export"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDefaultFilename(t *testing.T) {
	require.Equal(t, "covid19_italy_regions_20210102.xlsx", export.DefaultFilename(domain.NewDate(2021, time.January, 2)))
}

func TestExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	err := export.Excel(path, []domain.RegionAggregate{
		{Region: "Lombardia", TotalCases: 150},
		{Region: "Veneto", TotalCases: 30},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	require.Equal(t, []string{export.SheetName}, f.GetSheetList())

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"region", "total_cases"},
		{"Lombardia", "150"},
		{"Veneto", "30"},
	}, rows)
}

func TestExcel_NoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.ErrorIs(t, export.Excel(path, nil), export.ErrNoData)
	require.NoFileExists(t, path)
}

func TestExcel_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.xlsx")
	err := export.Excel(path, []domain.RegionAggregate{{Region: "Molise", TotalCases: 1}})
	require.Error(t, err)
}
