package table

import (
	"fmt"
	"slices"

	"github.com/shahhaard47/latenteq/domain/core"
)

// LongRow is one observation: a unit, the within-unit index of the
// observation (0-based wave number), and the measured value.
type LongRow struct {
	Unit  core.UnitID
	Index int
	Value float64
}

// Long is the stacked form of a wide table, the canonical input for the
// mixed-model fit. Columns preserves the wide column names in order so the
// reverse pivot can rebuild the exact original table.
type Long struct {
	Columns []string
	Rows    []LongRow
}

// Len returns the number of observations
func (l *Long) Len() int {
	return len(l.Rows)
}

// Waves returns the number of within-unit observation indices
func (l *Long) Waves() int {
	return len(l.Columns)
}

// UnitOrder returns the distinct units in first-appearance order.
func (l *Long) UnitOrder() []core.UnitID {
	seen := make(map[core.UnitID]bool)
	var units []core.UnitID
	for _, row := range l.Rows {
		if !seen[row.Unit] {
			seen[row.Unit] = true
			units = append(units, row.Unit)
		}
	}
	return units
}

// Validate ensures the long table forms a balanced panel: every unit
// observed exactly once at every index 0..Waves-1. The fitters and the
// reverse pivot both require this shape.
func (l *Long) Validate() error {
	waves := l.Waves()
	if waves == 0 {
		return core.NewValidationError("columns", "long table carries no column names")
	}
	if len(l.Rows) == 0 {
		return core.ErrInsufficientData
	}

	type cell struct {
		unit  core.UnitID
		index int
	}
	seen := make(map[cell]bool, len(l.Rows))
	perUnit := make(map[core.UnitID]int)
	for _, row := range l.Rows {
		if row.Index < 0 || row.Index >= waves {
			return core.NewValidationError("index",
				fmt.Sprintf("observation index %d outside [0,%d) for unit %s", row.Index, waves, row.Unit))
		}
		c := cell{row.Unit, row.Index}
		if seen[c] {
			return fmt.Errorf("%w: unit %s index %d", core.ErrDuplicateCell, row.Unit, row.Index)
		}
		seen[c] = true
		perUnit[row.Unit]++
	}

	for unit, count := range perUnit {
		if count != waves {
			return fmt.Errorf("%w: unit %s has %d of %d observations", core.ErrUnbalancedPanel, unit, count, waves)
		}
	}

	return nil
}

// ResponseVectors regroups the panel into one response vector per unit,
// ordered by observation index. Units come back in first-appearance order.
func (l *Long) ResponseVectors() ([]core.UnitID, [][]float64, error) {
	if err := l.Validate(); err != nil {
		return nil, nil, err
	}

	waves := l.Waves()
	units := l.UnitOrder()
	pos := make(map[core.UnitID]int, len(units))
	for i, u := range units {
		pos[u] = i
	}

	vectors := make([][]float64, len(units))
	for i := range vectors {
		vectors[i] = make([]float64, waves)
	}
	for _, row := range l.Rows {
		vectors[pos[row.Unit]][row.Index] = row.Value
	}

	return slices.Clone(units), vectors, nil
}
