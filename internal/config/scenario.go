package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shahhaard47/latenteq/domain/core"
	"github.com/shahhaard47/latenteq/domain/model"
)

// LoadScenarioFile reads and validates a scenario definition from YAML. A
// file carries the same fields as the built-in scenarios:
//
//	name: my-growth
//	n: 1000
//	seed: 7
//	columns: [y1, y2, y3]
//	factor_names: [intercept]
//	loadings: [[1], [1], [1]]
//	factor_means: [0.3]
//	factor_cov: [[4]]
//	residual_sd: [1, 1.41, 1.73]
func LoadScenarioFile(path string) (model.Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Scenario{}, fmt.Errorf("%w: %s: %v", core.ErrScenarioNotFound, path, err)
	}

	var scenario model.Scenario
	if err := yaml.Unmarshal(raw, &scenario); err != nil {
		return model.Scenario{}, fmt.Errorf("scenario file %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return model.Scenario{}, fmt.Errorf("scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// ResolveScenario turns a name or path into a scenario: built-in names take
// precedence, anything else is treated as a YAML file path.
func ResolveScenario(nameOrPath string) (model.Scenario, error) {
	if s, ok := model.BuiltinScenario(nameOrPath); ok {
		return s, nil
	}
	if _, err := os.Stat(nameOrPath); err == nil {
		return LoadScenarioFile(nameOrPath)
	}
	return model.Scenario{}, fmt.Errorf("%w: %q is neither a built-in scenario nor a readable file",
		core.ErrScenarioNotFound, nameOrPath)
}
