package study

import (
	"github.com/shahhaard47/latenteq/domain/core"
)

// Manifest pins a study to everything needed to reproduce it. It is written
// before any estimate is trusted: same fingerprint, same numbers.
type Manifest struct {
	StudyID     core.StudyID     `json:"study_id"`
	Scenario    string           `json:"scenario"`
	Seed        int64            `json:"seed"`
	N           int              `json:"n"`
	Waves       int              `json:"waves"`
	CodeVersion core.CodeVersion `json:"code_version"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	DataHash    core.DataHash    `json:"data_hash"`
	CreatedAt   core.Timestamp   `json:"created_at"`
	RuntimeMS   int64            `json:"runtime_ms"`
}

// NewManifest creates a study manifest and computes its fingerprint.
func NewManifest(scenario string, seed int64, n, waves int, code core.CodeVersion) *Manifest {
	return &Manifest{
		StudyID:     core.NewStudyID(),
		Scenario:    scenario,
		Seed:        seed,
		N:           n,
		Waves:       waves,
		CodeVersion: code,
		Fingerprint: core.ComputeFingerprint(scenario, seed, n, code),
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.StudyID).IsEmpty() {
		return core.NewValidationError("manifest", "study_id cannot be empty")
	}
	if m.Scenario == "" {
		return core.NewValidationError("manifest", "scenario cannot be empty")
	}
	if m.N < 2 {
		return core.NewValidationError("manifest", "n must be at least 2")
	}
	if m.Fingerprint == "" {
		return core.NewValidationError("manifest", "fingerprint cannot be empty")
	}
	return nil
}
