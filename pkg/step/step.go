// Package step defines the contract every pluggable step implementer
// follows and the runner that drives one sub-step through configuration
// resolution, validation, execution, and result persistence.
package step

import "github.com/systemstart/tssc/pkg/results"

// Implementer is the contract a concrete step implementation exposes to the
// runner. ConfigDefaults and RequiredConfigKeys must be pure; RunStep is
// the only method allowed side effects and external calls.
//
// RunStep distinguishes two failure kinds: expected business-outcome
// failures (a linter finding violations, a missing upstream artifact) are
// reported as a StepResult with Success set false, while unexpected
// infrastructure errors are returned as an error and abort the run.
type Implementer interface {
	// ConfigDefaults returns the lowest-precedence configuration layer.
	ConfigDefaults() map[string]any

	// RequiredConfigKeys returns, in order, the configuration keys that
	// must resolve to a value before the step may run.
	RequiredConfigKeys() []string

	// RunStep executes the step against the given run context.
	RunStep(ctx *RunContext) (*results.StepResult, error)
}

// Names of the steps in the default workflow definition.
const (
	GenerateMetadata                      = "generate-metadata"
	TagSource                             = "tag-source"
	StaticCodeAnalysis                    = "static-code-analysis"
	Package                               = "package"
	UnitTest                              = "unit-test"
	PushArtifacts                         = "push-artifacts"
	CreateContainerImage                  = "create-container-image"
	PushContainerImage                    = "push-container-image"
	SignContainerImage                    = "sign-container-image"
	ContainerImageUnitTest                = "container-image-unit-test"
	ContainerImageStaticComplianceScan    = "container-image-static-compliance-scan"
	ContainerImageStaticVulnerabilityScan = "container-image-static-vulnerability-scan"
	CreateDeploymentEnvironment           = "create-deployment-environment"
	Deploy                                = "deploy"
	UAT                                   = "uat"
	RuntimeVulnerabilityScan              = "runtime-vulnerability-scan"
	CanaryTest                            = "canary-test"
	PublishWorkflowResults                = "publish-workflow-results"
	ValidateEnvironmentConfiguration      = "validate-environment-configuration"
)
