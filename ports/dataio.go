package ports

import (
	"github.com/shahhaard47/latenteq/domain/table"
)

// DatasetReader loads a wide table from an external file so the pipeline
// can analyze observed data instead of simulated draws.
type DatasetReader interface {
	ReadWide(path string) (*table.Wide, error)
}

// DatasetWriter exports tables for inspection outside the pipeline.
type DatasetWriter interface {
	WriteWide(w *table.Wide, path string) error
	WriteLong(l *table.Long, path string) error
}
