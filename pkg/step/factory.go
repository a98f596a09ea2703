package step

import (
	"fmt"

	"github.com/systemstart/tssc/pkg/config"
)

// RunConfiguredStep runs every configured sub-step of stepName in
// configuration order, resolving implementers through the registry. A fatal
// error from any sub-step aborts immediately; otherwise the returned flag
// is true only when every sub-step succeeded.
func RunConfiguredStep(registry *Registry, cfg *config.Config, stepName string, opts RunnerOptions) (bool, error) {
	subSteps := cfg.SubStepConfigs(stepName)
	if len(subSteps) == 0 {
		return false, fmt.Errorf("no configuration found for step %q", stepName)
	}

	success := true
	for _, subStep := range subSteps {
		impl, err := registry.NewImplementer(stepName, subStep.SubStepImplementerName)
		if err != nil {
			return false, err
		}

		ok, err := NewRunner(impl, subStep, opts).RunStep()
		if err != nil {
			return false, err
		}
		success = success && ok
	}
	return success, nil
}
