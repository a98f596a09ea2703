package implementers

import (
	"fmt"
	"os"

	"github.com/spf13/cast"
	"github.com/systemstart/tssc/pkg/results"
	"github.com/systemstart/tssc/pkg/step"
)

// ConfiglintFromArgocd implements the validate-environment-configuration
// step by taking the rendered manifest produced by the argocd deploy step
// and handing it to the Configlint sub-step as its lint target.
type ConfiglintFromArgocd struct{}

func (c *ConfiglintFromArgocd) ConfigDefaults() map[string]any { return map[string]any{} }

func (c *ConfiglintFromArgocd) RequiredConfigKeys() []string { return nil }

func (c *ConfiglintFromArgocd) RunStep(ctx *step.RunContext) (*results.StepResult, error) {
	stepResult := ctx.NewStepResult()

	argocdResultSet := cast.ToString(ctx.ArtifactValue("argocd-result-set"))
	if argocdResultSet == "" {
		stepResult.Success = false
		stepResult.Message = "step results are missing argocd-result-set from the deploy step"
		return stepResult, nil
	}

	ymlPath := fileURLPath(argocdResultSet)
	if _, err := os.Stat(ymlPath); err != nil {
		stepResult.Success = false
		stepResult.Message = fmt.Sprintf("argocd-result-set %s not found", ymlPath)
		return stepResult, nil
	}

	stepResult.AddArtifactWithType("configlint-yml-path", argocdResultSet, "file")
	return stepResult, nil
}
