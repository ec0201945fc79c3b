package dataio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/table"
	apperrors "github.com/shahhaard47/latenteq/internal/errors"
	"github.com/shahhaard47/latenteq/ports"
)

// Reader loads wide tables from CSV or Excel files. The first header cell
// names the unit column; every remaining column is an observed variable.
type Reader struct{}

// NewReader creates a dataset reader.
func NewReader() *Reader {
	return &Reader{}
}

var _ ports.DatasetReader = (*Reader)(nil)

// ReadWide reads a wide table from the file at path.
func (r *Reader) ReadWide(path string) (*table.Wide, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.NotFound("dataset file " + path)
	}

	switch detectFormat(path) {
	case formatCSV:
		records, err := readCSVRows(path)
		if err != nil {
			return nil, err
		}
		return parseWide(records)
	case formatExcel:
		records, err := readExcelRows(path)
		if err != nil {
			return nil, err
		}
		return parseWide(records)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"unsupported dataset format %q, want .csv or .xlsx", filepath.Ext(path)))
	}
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return records, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	records, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheetName, err)
	}
	return records, nil
}

// parseWide converts raw string rows into a wide table. Row numbers in
// errors are 1-based and count the header.
func parseWide(records [][]string) (*table.Wide, error) {
	if len(records) < 2 {
		return nil, apperrors.InvalidInput("dataset must have a header row and at least one data row")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, apperrors.InvalidInput("header must name a unit column and at least one variable")
	}
	columns := make([]string, 0, len(header)-1)
	for _, name := range header[1:] {
		columns = append(columns, strings.TrimSpace(name))
	}

	units := make([]core.UnitID, 0, len(records)-1)
	data := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		rowNum := i + 2
		if len(record) != len(header) {
			return nil, apperrors.InvalidInput(fmt.Sprintf(
				"row %d has %d cells, expected %d", rowNum, len(record), len(header)))
		}

		unit := strings.TrimSpace(record[0])
		if unit == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("row %d has an empty unit ID", rowNum))
		}
		units = append(units, core.UnitID(unit))

		row := make([]float64, len(columns))
		for j, cell := range record[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, apperrors.InvalidInput(fmt.Sprintf(
					"row %d column %q: %q is not numeric", rowNum, columns[j], cell))
			}
			row[j] = v
		}
		data = append(data, row)
	}

	return table.NewWide(columns, units, data)
}
