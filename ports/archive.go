package ports

import (
	"context"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/study"
)

// StudySummary is one line of study history.
type StudySummary struct {
	StudyID     core.StudyID     `json:"study_id"`
	Scenario    string           `json:"scenario"`
	Seed        int64            `json:"seed"`
	N           int              `json:"n"`
	Correlation float64          `json:"correlation"` // weakest factor agreement
	Equivalent  bool             `json:"equivalent"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp   `json:"created_at"`
}

// ArchivePort persists completed studies for later inspection. Archiving is
// optional: the pipeline runs to completion without one configured.
type ArchivePort interface {
	SaveStudy(ctx context.Context, result *study.Result) error
	ListStudies(ctx context.Context, limit int) ([]StudySummary, error)
	GetStudy(ctx context.Context, id core.StudyID) (*study.Result, error)
	Close() error
}
