package dataio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/shahhaard47/latenteq/domain/table"
	apperrors "github.com/shahhaard47/latenteq/internal/errors"
	"github.com/shahhaard47/latenteq/ports"
)

// Writer exports tables as CSV or Excel files. Values are written in
// shortest exact form, so reading an exported table back reproduces the
// original cell for cell.
type Writer struct{}

// NewWriter creates a dataset writer.
func NewWriter() *Writer {
	return &Writer{}
}

var _ ports.DatasetWriter = (*Writer)(nil)

// WriteWide exports a wide table: a unit column followed by one column per
// observed variable.
func (w *Writer) WriteWide(t *table.Wide, path string) error {
	if t == nil {
		return apperrors.InvalidInput("cannot write a nil table")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	records := make([][]string, 0, t.Rows()+1)
	header := append([]string{"unit"}, t.Columns...)
	records = append(records, header)
	for i, row := range t.Data {
		record := make([]string, 0, len(row)+1)
		record = append(record, t.Units[i].String())
		for _, v := range row {
			record = append(record, formatValue(v))
		}
		records = append(records, record)
	}

	return writeRecords(records, path)
}

// WriteLong exports a long table with one observation per row: unit, wave
// index, variable name and value.
func (w *Writer) WriteLong(l *table.Long, path string) error {
	if l == nil {
		return apperrors.InvalidInput("cannot write a nil table")
	}
	if err := l.Validate(); err != nil {
		return err
	}

	records := make([][]string, 0, l.Len()+1)
	records = append(records, []string{"unit", "wave", "variable", "value"})
	for _, row := range l.Rows {
		records = append(records, []string{
			row.Unit.String(),
			strconv.Itoa(row.Index),
			l.Columns[row.Index],
			formatValue(row.Value),
		})
	}

	return writeRecords(records, path)
}

func writeRecords(records [][]string, path string) error {
	switch detectFormat(path) {
	case formatCSV:
		return writeCSV(records, path)
	case formatExcel:
		return writeExcel(records, path)
	default:
		return apperrors.InvalidInput(fmt.Sprintf(
			"unsupported dataset format %q, want .csv or .xlsx", filepath.Ext(path)))
	}
}

func writeCSV(records [][]string, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	if err := csv.NewWriter(file).WriteAll(records); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return file.Close()
}

func writeExcel(records [][]string, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, record := range records {
		row := make([]any, len(record))
		for j, cell := range record {
			// Numeric cells become real Excel numbers; the header and
			// the unit column stay text.
			if i > 0 && j > 0 {
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					row[j] = v
					continue
				}
			}
			row[j] = cell
		}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// formatValue renders a float with the fewest digits that still parse back
// to the identical value.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
