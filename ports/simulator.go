package ports

import (
	"context"

	"github.com/shahhaard47/latenteq/domain/model"
	"github.com/shahhaard47/latenteq/domain/table"
)

// SimulationRequest specifies one draw from a scenario's generative model.
// N and Seed override the scenario defaults when positive.
type SimulationRequest struct {
	Scenario model.Scenario `json:"scenario"`
	N        int            `json:"n"`
	Seed     int64          `json:"seed"`
}

// SimulatorPort draws wide-format datasets from a generative latent model.
// Implementations must be deterministic: the same request always yields the
// same table, cell for cell.
type SimulatorPort interface {
	Simulate(ctx context.Context, req SimulationRequest) (*table.Wide, error)
}
