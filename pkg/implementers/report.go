package implementers

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/systemstart/tssc/pkg/results"
	"github.com/systemstart/tssc/pkg/step"
)

const defaultReportTemplate = `# Workflow Results
{{- range $stepName, $subSteps := .Results }}

## {{ $stepName }}
{{- range $subStepName, $result := $subSteps }}

### {{ $subStepName }} ({{ index $result "sub-step-implementer-name" }})
- success: {{ index $result "success" }}
{{- with index $result "message" }}
- message: {{ . }}
{{- end }}
{{- range $name, $artifact := index $result "artifacts" }}
- {{ $name }}: {{ index $artifact "value" }}
{{- end }}
{{- end }}
{{- end }}
`

// Report implements the publish-workflow-results step by rendering the
// whole ledger through a template into the step working directory.
type Report struct{}

func (r *Report) ConfigDefaults() map[string]any {
	return map[string]any{
		"report-file-name": "tssc-workflow-report.md",
	}
}

func (r *Report) RequiredConfigKeys() []string {
	return []string{"report-file-name"}
}

func (r *Report) RunStep(ctx *step.RunContext) (*results.StepResult, error) {
	stepResult := ctx.NewStepResult()

	templateText := defaultReportTemplate
	if templateFile := ctx.ConfigString("report-template-file"); templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			stepResult.Success = false
			stepResult.Message = fmt.Sprintf("report template file not found: %s", templateFile)
			return stepResult, nil
		}
		templateText = string(data)
	}

	tmpl, err := template.New("workflow-report").Funcs(sprig.FuncMap()).Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}

	resultsByStep := map[string]any{}
	for _, recorded := range ctx.WorkflowResult().StepResults {
		stepMap, err := ctx.WorkflowResult().StepResultMap(recorded.StepName)
		if err != nil {
			return nil, err
		}
		for stepName, subSteps := range stepMap {
			resultsByStep[stepName] = subSteps
		}
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Results":     resultsByStep,
		"Environment": ctx.Environment(),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering workflow report: %w", err)
	}

	reportPath, err := ctx.WriteWorkingFile(ctx.ConfigString("report-file-name"), buf.Bytes())
	if err != nil {
		return nil, err
	}

	slog.Info("workflow report written", "path", reportPath)

	stepResult.AddArtifactWithType("workflow-report", fmt.Sprintf("file://%s", reportPath), "file")
	return stepResult, nil
}
