package table

import (
	"fmt"
	"slices"

	"github.com/shahhaard47/latenteq/domain/core"
)

// Wide is the canonical input for the latent-variable fit: one row per unit,
// one column per observed variable (y1..yK). Tables are built once and then
// treated as immutable; accessors return copies.
type Wide struct {
	Columns []string
	Units   []core.UnitID
	Data    [][]float64 // rows=units, cols=variables
}

// NewWide constructs a wide table and validates its shape.
func NewWide(columns []string, units []core.UnitID, data [][]float64) (*Wide, error) {
	w := &Wide{
		Columns: slices.Clone(columns),
		Units:   slices.Clone(units),
		Data:    data,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate ensures the table is internally consistent
func (w *Wide) Validate() error {
	if len(w.Data) == 0 {
		return core.ErrInsufficientData
	}
	if len(w.Units) != len(w.Data) {
		return core.NewValidationError("units", "length mismatch with data rows")
	}

	colCount := len(w.Columns)
	if colCount == 0 {
		return core.NewValidationError("columns", "wide table needs at least one column")
	}
	seen := make(map[string]bool, colCount)
	for _, name := range w.Columns {
		if name == "" {
			return core.NewValidationError("columns", "empty column name")
		}
		if seen[name] {
			return core.NewValidationError("columns", fmt.Sprintf("duplicate column %q", name))
		}
		seen[name] = true
	}

	for i, row := range w.Data {
		if len(row) != colCount {
			return core.NewValidationError("data",
				fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), colCount))
		}
	}

	return nil
}

// Rows returns the number of units (rows)
func (w *Wide) Rows() int {
	return len(w.Data)
}

// Cols returns the number of observed variables (columns)
func (w *Wide) Cols() int {
	return len(w.Columns)
}

// ColumnIndex returns the position of a named column
func (w *Wide) ColumnIndex(name string) (int, bool) {
	for i, col := range w.Columns {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of the named column's values
func (w *Wide) Column(name string) ([]float64, error) {
	idx, ok := w.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrColumnNotFound, name)
	}

	values := make([]float64, len(w.Data))
	for i, row := range w.Data {
		values[i] = row[idx]
	}
	return values, nil
}

// Row returns a copy of one unit's observations
func (w *Wide) Row(i int) []float64 {
	return slices.Clone(w.Data[i])
}

// DataHash fingerprints the cell values for manifests and determinism checks.
func (w *Wide) DataHash() core.DataHash {
	return core.ComputeDataHash(w.Data)
}

// Equal reports whether two tables hold identical names, units and values.
// Comparison is exact; the pivot round trip must not perturb a single bit.
func (w *Wide) Equal(other *Wide) bool {
	if other == nil ||
		!slices.Equal(w.Columns, other.Columns) ||
		!slices.Equal(w.Units, other.Units) ||
		len(w.Data) != len(other.Data) {
		return false
	}
	for i := range w.Data {
		if !slices.Equal(w.Data[i], other.Data[i]) {
			return false
		}
	}
	return true
}
