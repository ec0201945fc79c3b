package study

import (
	"testing"

	"github.com/shahhaard47/latenteq/domain/core"
)

// TestNewManifest tests fingerprint wiring on fresh manifests
func TestNewManifest(t *testing.T) {
	m := NewManifest("random-intercept", 42, 1000, 3, core.CodeVersion("v0.1.0"))

	if err := m.Validate(); err != nil {
		t.Fatalf("Fresh manifest failed validation: %v", err)
	}
	if m.Fingerprint != core.ComputeFingerprint("random-intercept", 42, 1000, core.CodeVersion("v0.1.0")) {
		t.Error("Fingerprint does not match the determinism tuple")
	}

	again := NewManifest("random-intercept", 42, 1000, 3, core.CodeVersion("v0.1.0"))
	if m.Fingerprint != again.Fingerprint {
		t.Error("Same tuple must fingerprint identically")
	}
	if m.StudyID == again.StudyID {
		t.Error("Each manifest needs its own study ID")
	}
}

// TestManifestValidate tests completeness checks
func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manifest)
	}{
		{"empty study id", func(m *Manifest) { m.StudyID = "" }},
		{"empty scenario", func(m *Manifest) { m.Scenario = "" }},
		{"n too small", func(m *Manifest) { m.N = 1 }},
		{"empty fingerprint", func(m *Manifest) { m.Fingerprint = "" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := NewManifest("random-intercept", 42, 1000, 3, core.CodeVersion("v0.1.0"))
			test.mutate(m)
			if err := m.Validate(); err == nil {
				t.Error("Expected validation error, got none")
			}
		})
	}
}

// TestComparisonMinCorrelation tests the weakest-factor lookup
func TestComparisonMinCorrelation(t *testing.T) {
	c := &Comparison{
		Scores: []ScoreAgreement{
			{Factor: "intercept", Correlation: 0.998},
			{Factor: "slope", Correlation: 0.991},
		},
	}
	if got := c.MinCorrelation(); got != 0.991 {
		t.Errorf("MinCorrelation = %v, want 0.991", got)
	}

	empty := &Comparison{}
	if got := empty.MinCorrelation(); got != 0 {
		t.Errorf("MinCorrelation on empty = %v, want 0", got)
	}
}

// TestReplicationSummarize tests outcome aggregation
func TestReplicationSummarize(t *testing.T) {
	s := &ReplicationSummary{
		Scenario:  "random-intercept",
		BaseSeed:  42,
		N:         1000,
		Threshold: 0.99,
		Outcomes: []ReplicateOutcome{
			{Replicate: 0, Seed: 42, Correlation: 0.999, Equivalent: true},
			{Replicate: 1, Seed: 43, Correlation: 0.995, Equivalent: true},
			{Replicate: 2, Seed: 44, Correlation: 0.997, Equivalent: true},
		},
	}
	s.Summarize()

	if s.Replications != 3 || s.Failures != 0 {
		t.Errorf("Replications/Failures = %d/%d, want 3/0", s.Replications, s.Failures)
	}
	if s.MinCorrelation != 0.995 {
		t.Errorf("MinCorrelation = %v, want 0.995", s.MinCorrelation)
	}
	if s.MedianCorrelation != 0.997 {
		t.Errorf("MedianCorrelation = %v, want 0.997", s.MedianCorrelation)
	}
	if !s.AllEquivalent {
		t.Error("All outcomes equivalent, summary should agree")
	}

	// Summarize recomputes from scratch, so appending and re-running works.
	s.Outcomes = append(s.Outcomes, ReplicateOutcome{Replicate: 3, Seed: 45, Err: "optimizer did not converge"})
	s.Summarize()
	if s.Failures != 1 || s.AllEquivalent {
		t.Errorf("Failed replicate not reflected: failures=%d all=%v", s.Failures, s.AllEquivalent)
	}
}
