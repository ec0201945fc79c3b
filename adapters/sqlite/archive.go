// Package sqlite persists completed studies in a local SQLite file so runs
// can be listed and re-inspected later. Archiving is optional: the pipeline
// works without it.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
	apperrors "github.com/shahhaard47/latenteq/internal/errors"
	"github.com/shahhaard47/latenteq/ports"
)

// Archive implements ports.ArchivePort on a single SQLite database file.
// The full result is stored as a JSON blob next to queryable summary
// columns, so history listing never has to deserialize whole studies.
type Archive struct {
	db   *sqlx.DB
	path string
}

var _ ports.ArchivePort = (*Archive)(nil)

// Open opens or creates the archive database at path, creating parent
// directories as needed.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, apperrors.ArchiveError("failed to create archive directory", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, apperrors.ArchiveError("failed to open archive database", err)
	}

	// SQLite supports one writer; keep the pool to a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	a := &Archive{db: db, path: path}
	if err := a.createTables(); err != nil {
		_ = db.Close()
		return nil, apperrors.ArchiveError("failed to create archive schema", err)
	}
	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Path returns the archive database file path.
func (a *Archive) Path() string {
	return a.path
}

func (a *Archive) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS study_runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		n INTEGER NOT NULL,
		waves INTEGER NOT NULL,
		latent_converged INTEGER NOT NULL,
		mixed_converged INTEGER NOT NULL,
		correlation REAL NOT NULL,
		equivalent INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_study_runs_scenario ON study_runs(scenario);
	CREATE INDEX IF NOT EXISTS idx_study_runs_created ON study_runs(created_at);
	`

	_, err := a.db.ExecContext(context.Background(), schema)
	return err
}

// SaveStudy stores a completed study. The manifest supplies identity and
// provenance; summary columns are denormalized for cheap history queries.
func (a *Archive) SaveStudy(ctx context.Context, result *study.Result) error {
	if result == nil || result.Manifest == nil {
		return apperrors.InvalidInput("cannot archive a study without a manifest")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return apperrors.ArchiveError("failed to serialize study", err)
	}

	var correlation float64
	var equivalent bool
	if result.Comparison != nil {
		correlation = result.Comparison.MinCorrelation()
		equivalent = result.Comparison.Equivalent
	}

	m := result.Manifest
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO study_runs (
			id, created_at, scenario, seed, n, waves,
			latent_converged, mixed_converged, correlation, equivalent,
			fingerprint, result_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.StudyID.String(),
		m.CreatedAt.Time().UTC().Format(time.RFC3339Nano),
		m.Scenario,
		m.Seed,
		m.N,
		m.Waves,
		converged(result.Latent),
		converged(result.Mixed),
		correlation,
		equivalent,
		m.Fingerprint.String(),
		string(resultJSON),
	)
	if err != nil {
		return apperrors.ArchiveError("failed to save study", err)
	}
	return nil
}

// studyRow is the summary projection of one archived study.
type studyRow struct {
	ID          string  `db:"id"`
	CreatedAt   string  `db:"created_at"`
	Scenario    string  `db:"scenario"`
	Seed        int64   `db:"seed"`
	N           int     `db:"n"`
	Correlation float64 `db:"correlation"`
	Equivalent  bool    `db:"equivalent"`
	Fingerprint string  `db:"fingerprint"`
}

// ListStudies returns archived study summaries, most recent first. A
// non-positive limit returns everything.
func (a *Archive) ListStudies(ctx context.Context, limit int) ([]ports.StudySummary, error) {
	query := `
		SELECT id, created_at, scenario, seed, n, correlation, equivalent, fingerprint
		FROM study_runs
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []studyRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.ArchiveError("failed to list studies", err)
	}

	summaries := make([]ports.StudySummary, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
		if err != nil {
			return nil, apperrors.ArchiveError("failed to parse study timestamp", err)
		}
		summaries = append(summaries, ports.StudySummary{
			StudyID:     core.StudyID(row.ID),
			Scenario:    row.Scenario,
			Seed:        row.Seed,
			N:           row.N,
			Correlation: row.Correlation,
			Equivalent:  row.Equivalent,
			Fingerprint: core.Fingerprint(row.Fingerprint),
			CreatedAt:   core.Timestamp(createdAt),
		})
	}
	return summaries, nil
}

// GetStudy loads one archived study in full.
func (a *Archive) GetStudy(ctx context.Context, id core.StudyID) (*study.Result, error) {
	var resultJSON string
	err := a.db.GetContext(ctx, &resultJSON,
		`SELECT result_json FROM study_runs WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("study " + id.String())
	}
	if err != nil {
		return nil, apperrors.ArchiveError("failed to load study", err)
	}

	var result study.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, apperrors.ArchiveError("failed to parse archived study", err)
	}
	return &result, nil
}

func converged(fitted *model.FittedResult) bool {
	return fitted != nil && fitted.Converged
}
