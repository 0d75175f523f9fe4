// Package export writes region totals to spreadsheet files.
package export

import (
	"errors"
	"fmt"

	"covidanalyzer/pkg/domain"

	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the name of the only sheet of an exported workbook.
	SheetName = "COVID-19 Cases by Region"

	defaultSheet = "Sheet1"
)

// Header is the first row of the sheet.
var Header = []string{"region", "total_cases"}

// ErrNoData is returned when there are no rows to export.
var ErrNoData = errors.New("no data to export")

// DefaultFilename names the workbook after the last day of the window.
func DefaultFilename(end domain.Date) string {
	return fmt.Sprintf("covid19_italy_regions_%s.xlsx", end.Compact())
}

// Excel writes regions, in the given order, to an xlsx workbook at path.
// Nothing is written when regions is empty.
func Excel(path string, regions []domain.RegionAggregate) (err error) {
	if len(regions) == 0 {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetColWidth(1, 1, 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range regions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []any{r.Region, r.TotalCases}); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	return nil
}
