package mvn

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestProjectionStart tests the moment heuristic on the exact population
// moments of a unit-loading single-factor model
func TestProjectionStart(t *testing.T) {
	// Population moments for loadings (1,1,1), psi=4, residual variances
	// 1, 2, 3: off-diagonals are 4, diagonal is 5, 6, 7.
	design := mat.NewDense(3, 1, []float64{1, 1, 1})
	mean := []float64{0.3, 0.3, 0.3}
	cov := mat.NewSymDense(3, []float64{
		5, 4, 4,
		4, 6, 4,
		4, 4, 7,
	})

	psi, resid, loc, err := ProjectionStart(design, mean, cov)
	if err != nil {
		t.Fatalf("ProjectionStart failed: %v", err)
	}

	// The heuristic assigns half the observed variance to the residuals,
	// which biases the factor start slightly low; 4 - 1/3 here.
	if got := psi.At(0, 0); math.Abs(got-(4-1.0/3.0)) > 1e-9 {
		t.Errorf("psi start = %v, want %v", got, 4-1.0/3.0)
	}

	for i, r := range resid {
		if r <= 0 {
			t.Errorf("resid[%d] = %v, want positive", i, r)
		}
	}

	if math.Abs(loc[0]-0.3) > 1e-9 {
		t.Errorf("location start = %v, want 0.3", loc[0])
	}
}

// TestProjectionStartRankDeficient tests rejection of collinear designs
func TestProjectionStartRankDeficient(t *testing.T) {
	design := mat.NewDense(3, 2, []float64{
		1, 2,
		1, 2,
		1, 2,
	})
	cov := mat.NewSymDense(3, []float64{
		5, 4, 4,
		4, 6, 4,
		4, 4, 7,
	})

	if _, _, _, err := ProjectionStart(design, []float64{0, 0, 0}, cov); err == nil {
		t.Error("Expected error for rank-deficient design")
	}
}

// TestDiagonalStart tests the fallback scale
func TestDiagonalStart(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{
		4, 0,
		0, 8,
	})
	diag := DiagonalStart(2, cov)

	// Half the average observed variance: (4+8)/2/2 = 3.
	for j := 0; j < 2; j++ {
		if got := diag.At(j, j); math.Abs(got-3) > 1e-12 {
			t.Errorf("diag[%d,%d] = %v, want 3", j, j, got)
		}
	}
	if diag.At(0, 1) != 0 {
		t.Errorf("off-diagonal = %v, want 0", diag.At(0, 1))
	}
}
