package implementers

import "github.com/systemstart/tssc/pkg/step"

// RegisterAll wires every built-in step implementer into the given
// registry. The set is closed: configuration can only select implementers
// registered here.
func RegisterAll(registry *step.Registry) {
	registry.Register(step.UnitTest, "Maven",
		func() step.Implementer { return &Maven{} })
	registry.Register(step.ValidateEnvironmentConfiguration, "Configlint",
		func() step.Implementer { return &Configlint{} })
	registry.Register(step.ValidateEnvironmentConfiguration, "ConfiglintFromArgocd",
		func() step.Implementer { return &ConfiglintFromArgocd{} })
	registry.Register(step.SignContainerImage, "CurlPush",
		func() step.Implementer { return &CurlPush{} })
	registry.Register(step.PublishWorkflowResults, "Report",
		func() step.Implementer { return &Report{} })
}
