// Package sim draws wide-format datasets from a scenario's generative
// latent model: multivariate normal factor draws pushed through the fixed
// loading matrix, plus heteroscedastic residual noise per observed variable.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/table"
	"github.com/shahhaard47/latenteq/ports"
)

// Simulator implements ports.SimulatorPort. Draws are deterministic given
// the seed: one PCG stream feeds the factor draws and the residual noise in
// a fixed interleaving.
type Simulator struct{}

// NewSimulator creates a simulator.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Simulate draws req.N units from the scenario's generative model.
func (s *Simulator) Simulate(ctx context.Context, req ports.SimulationRequest) (*table.Wide, error) {
	scenario := req.Scenario
	if req.N > 0 {
		scenario.N = req.N
	}
	if req.Seed != 0 {
		scenario.Seed = req.Seed
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("simulate %s: %w", scenario.Name, err)
	}

	n := scenario.N
	k := scenario.Waves()
	q := scenario.Factors()

	factorCov := mat.NewSymDense(q, nil)
	for i := 0; i < q; i++ {
		for j := i; j < q; j++ {
			factorCov.SetSym(i, j, scenario.FactorCov[i][j])
		}
	}

	src := rand.NewPCG(uint64(scenario.Seed), uint64(scenario.Seed))
	factorDist, ok := distmv.NewNormal(scenario.FactorMeans, factorCov, src)
	if !ok {
		return nil, fmt.Errorf("simulate %s: %w: factor covariance", scenario.Name, core.ErrNotPositiveDefinite)
	}

	noise := make([]distuv.Normal, k)
	for j := range noise {
		noise[j] = distuv.Normal{Mu: 0, Sigma: scenario.ResidualSD[j], Src: src}
	}

	data := make([][]float64, n)
	factors := make([]float64, q)
	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("simulate %s: %w", scenario.Name, err)
			}
		}

		factorDist.Rand(factors)
		row := make([]float64, k)
		for j := 0; j < k; j++ {
			value := noise[j].Rand()
			for f := 0; f < q; f++ {
				value += scenario.Loadings[j][f] * factors[f]
			}
			row[j] = value
		}
		data[i] = row
	}

	return table.NewWide(scenario.Columns, core.SequentialUnitIDs(n), data)
}
