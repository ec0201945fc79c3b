package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
	apperrors "github.com/shahhaard47/latenteq/internal/errors"
)

// openTestArchive creates a temporary archive for testing.
func openTestArchive(t *testing.T) *Archive {
	t.Helper()

	path := filepath.Join(t.TempDir(), "studies.db")
	a, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// archivableResult builds a small but complete study result.
func archivableResult(seed int64, correlation float64) *study.Result {
	scenario := model.RandomInterceptScenario()
	manifest := study.NewManifest(scenario.Name, seed, 200, 3, core.CodeVersion("v0.1.0"))
	manifest.DataHash = core.ComputeDataHash([][]float64{{1, 2, 3}})
	manifest.RuntimeMS = 7

	latent := model.NewFittedResult(model.MethodLatent, "gonum/optimize nelder-mead")
	latent.SetParam(model.VarKey("intercept"), 4.01)
	latent.Converged = true
	latent.LogLik = -1020.5

	mixed := model.NewFittedResult(model.MethodMixed, "gonum/optimize nelder-mead")
	mixed.SetParam(model.VarKey("intercept"), 4.02)
	mixed.Converged = true
	mixed.LogLik = -1020.6

	return &study.Result{
		Manifest: manifest,
		Scenario: scenario,
		Latent:   latent,
		Mixed:    mixed,
		Comparison: &study.Comparison{
			Components: []study.ComponentRow{
				{Component: model.VarKey("intercept"), Truth: 4, Latent: 4.01, Mixed: 4.02, AbsDiff: 0.01},
			},
			Scores: []study.ScoreAgreement{
				{Factor: "intercept", Correlation: correlation, N: 200},
			},
			LogLikDelta: 0.1,
			Threshold:   0.99,
			Equivalent:  correlation > 0.99,
		},
	}
}

// TestOpen tests archive creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database file and parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", "studies.db")
		a, err := Open(path)
		if err != nil {
			t.Fatalf("failed to open archive: %v", err)
		}
		defer a.Close()

		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Error("archive file was not created")
		}
		if a.Path() != path {
			t.Errorf("expected path %q, got %q", path, a.Path())
		}
	})
}

// TestSaveAndGetStudy tests the round trip through the JSON blob.
func TestSaveAndGetStudy(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)
	ctx := context.Background()
	result := archivableResult(42, 0.998)

	if err := a.SaveStudy(ctx, result); err != nil {
		t.Fatalf("failed to save study: %v", err)
	}

	loaded, err := a.GetStudy(ctx, result.Manifest.StudyID)
	if err != nil {
		t.Fatalf("failed to load study: %v", err)
	}

	if loaded.Manifest.StudyID != result.Manifest.StudyID {
		t.Errorf("study ID changed: %s vs %s", loaded.Manifest.StudyID, result.Manifest.StudyID)
	}
	if loaded.Manifest.Scenario != model.ScenarioRandomIntercept {
		t.Errorf("expected scenario %q, got %q", model.ScenarioRandomIntercept, loaded.Manifest.Scenario)
	}
	if loaded.Manifest.Seed != 42 {
		t.Errorf("expected seed 42, got %d", loaded.Manifest.Seed)
	}
	if !loaded.Equivalent() {
		t.Error("expected loaded study to keep its verdict")
	}
	got, err := loaded.Latent.Param(model.VarKey("intercept"))
	if err != nil {
		t.Fatalf("loaded study lost a parameter: %v", err)
	}
	if got != 4.01 {
		t.Errorf("expected variance 4.01 after round trip, got %v", got)
	}
}

// TestGetStudyMissing tests that unknown IDs are lookup errors.
func TestGetStudyMissing(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)

	_, err := a.GetStudy(context.Background(), core.NewStudyID())
	if err == nil {
		t.Fatal("expected error for missing study")
	}
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Errorf("expected not-found code, got %v", apperrors.GetCode(err))
	}
}

// TestSaveStudyRejectsNilManifest tests input validation.
func TestSaveStudyRejectsNilManifest(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)

	err := a.SaveStudy(context.Background(), &study.Result{})
	if err == nil {
		t.Fatal("expected error for study without manifest")
	}
	if apperrors.GetCode(err) != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid-input code, got %v", apperrors.GetCode(err))
	}
}

// TestListStudies tests history listing with limits.
func TestListStudies(t *testing.T) {
	t.Parallel()

	a := openTestArchive(t)
	ctx := context.Background()

	first := archivableResult(1, 0.997)
	second := archivableResult(2, 0.912)
	second.Manifest.CreatedAt = core.Timestamp(first.Manifest.CreatedAt.Time().Add(time.Millisecond))

	if err := a.SaveStudy(ctx, first); err != nil {
		t.Fatalf("failed to save first study: %v", err)
	}
	if err := a.SaveStudy(ctx, second); err != nil {
		t.Fatalf("failed to save second study: %v", err)
	}

	summaries, err := a.ListStudies(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list studies: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	// Most recent first.
	if summaries[0].Seed != 2 {
		t.Errorf("expected most recent study first, got seed %d", summaries[0].Seed)
	}
	if summaries[0].Equivalent {
		t.Error("expected second study to be below threshold")
	}
	if summaries[1].Correlation != 0.997 {
		t.Errorf("expected correlation 0.997, got %v", summaries[1].Correlation)
	}
	if summaries[1].Fingerprint != first.Manifest.Fingerprint {
		t.Error("expected fingerprint to survive archiving")
	}

	limited, err := a.ListStudies(ctx, 1)
	if err != nil {
		t.Fatalf("failed to list with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 summary with limit, got %d", len(limited))
	}
}

// TestArchivePersistsAcrossOpen tests that studies survive reopening.
func TestArchivePersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "studies.db")
	ctx := context.Background()
	result := archivableResult(9, 0.995)

	a, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	if err := a.SaveStudy(ctx, result); err != nil {
		t.Fatalf("failed to save study: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("failed to reopen archive: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.GetStudy(ctx, result.Manifest.StudyID)
	if err != nil {
		t.Fatalf("failed to load study after reopen: %v", err)
	}
	if loaded.Manifest.Seed != 9 {
		t.Errorf("expected seed 9 after reopen, got %d", loaded.Manifest.Seed)
	}
}
