package table

import (
	"fmt"
	"slices"

	"github.com/shahhaard47/latenteq/domain/core"
)

// ToLong stacks a wide table into long form. Observations come out unit by
// unit, index-ascending within each unit, so len(long.Rows) is exactly
// wide rows times wide columns.
func ToLong(w *Wide) (*Long, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	rows := make([]LongRow, 0, w.Rows()*w.Cols())
	for i, unit := range w.Units {
		for k := range w.Columns {
			rows = append(rows, LongRow{
				Unit:  unit,
				Index: k,
				Value: w.Data[i][k],
			})
		}
	}

	return &Long{
		Columns: slices.Clone(w.Columns),
		Rows:    rows,
	}, nil
}

// ToWide inverts ToLong. The pivot is lossless: for any valid wide table w,
// ToWide(ToLong(w)) reproduces w exactly, value for value. Missing or
// duplicated (unit, index) cells are shape errors, never silently filled.
func ToWide(l *Long) (*Wide, error) {
	waves := l.Waves()
	if waves == 0 {
		return nil, core.NewValidationError("columns", "long table carries no column names")
	}
	if len(l.Rows)%waves != 0 {
		return nil, fmt.Errorf("%w: %d observations not divisible by %d waves",
			core.ErrUnbalancedPanel, len(l.Rows), waves)
	}

	units := l.UnitOrder()
	pos := make(map[core.UnitID]int, len(units))
	for i, u := range units {
		pos[u] = i
	}

	data := make([][]float64, len(units))
	filled := make([][]bool, len(units))
	for i := range data {
		data[i] = make([]float64, waves)
		filled[i] = make([]bool, waves)
	}

	for _, row := range l.Rows {
		if row.Index < 0 || row.Index >= waves {
			return nil, core.NewValidationError("index",
				fmt.Sprintf("observation index %d outside [0,%d) for unit %s", row.Index, waves, row.Unit))
		}
		i := pos[row.Unit]
		if filled[i][row.Index] {
			return nil, fmt.Errorf("%w: unit %s index %d", core.ErrDuplicateCell, row.Unit, row.Index)
		}
		data[i][row.Index] = row.Value
		filled[i][row.Index] = true
	}

	for i, unitFilled := range filled {
		for k, ok := range unitFilled {
			if !ok {
				return nil, fmt.Errorf("%w: unit %s index %d", core.ErrMissingCell, units[i], k)
			}
		}
	}

	return NewWide(l.Columns, units, data)
}
