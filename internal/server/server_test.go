package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/study"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	scenario := model.RandomInterceptScenario()
	manifest := study.NewManifest(scenario.Name, 42, 100, 3, core.CodeVersion("v0.1.0"))

	latent := model.NewFittedResult(model.MethodLatent, "gonum/optimize nelder-mead")
	latent.SetParam(model.VarKey("intercept"), 4.1)
	latent.Converged = true

	mixed := model.NewFittedResult(model.MethodMixed, "gonum/optimize nelder-mead")
	mixed.SetParam(model.VarKey("intercept"), 4.08)
	mixed.Converged = true

	result := &study.Result{
		Manifest: manifest,
		Scenario: scenario,
		Latent:   latent,
		Mixed:    mixed,
		Comparison: &study.Comparison{
			Scores: []study.ScoreAgreement{
				{Factor: "intercept", Correlation: 0.997, N: 100},
			},
			Threshold:  0.99,
			Equivalent: true,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(":0", result, logger)
}

// TestServeHTMLReport tests the root route.
func TestServeHTMLReport(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML content type, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Latent Equivalence Study") {
		t.Error("expected study header in page")
	}
	if !strings.Contains(body, "</html>") {
		t.Error("expected complete HTML page")
	}
}

// TestServeJSONReport tests the JSON route.
func TestServeJSONReport(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report.json", nil)

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var parsed study.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if parsed.Manifest.Scenario != model.ScenarioRandomIntercept {
		t.Errorf("expected scenario %q, got %q",
			model.ScenarioRandomIntercept, parsed.Manifest.Scenario)
	}
}

// TestUnknownRouteIs404 tests that other paths are not served.
func TestUnknownRouteIs404(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/studies/123", nil)

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}
