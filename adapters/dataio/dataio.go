// Package dataio imports and exports study tables as CSV or Excel files.
// The reader lets the pipeline analyze observed data instead of simulated
// draws; the writer exports simulated tables for outside inspection.
package dataio

import (
	"path/filepath"
	"strings"
)

// sheetName is the worksheet both reader and writer use.
const sheetName = "Sheet1"

// Supported file formats, detected from the path extension.
const (
	formatCSV   = "csv"
	formatExcel = "xlsx"
)

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV
	case ".xlsx":
		return formatExcel
	default:
		return ""
	}
}
