package implementers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cast"
	"github.com/systemstart/tssc/pkg/results"
	"github.com/systemstart/tssc/pkg/step"
)

// config-lint exits 255 when the scan ran and found rule violations; any
// other non-zero exit is an unexpected tool failure.
const configlintViolationExitCode = 255

// Configlint implements the validate-environment-configuration step by
// running config-lint with user-defined rules against YAML files, either
// named in configuration or produced by a previous sub-step.
type Configlint struct{}

func (c *Configlint) ConfigDefaults() map[string]any {
	return map[string]any{
		"rules": "./config-lint.rules",
	}
}

func (c *Configlint) RequiredConfigKeys() []string { return nil }

func (c *Configlint) RunStep(ctx *step.RunContext) (*results.StepResult, error) {
	stepResult := ctx.NewStepResult()

	ymlPath := ctx.ConfigString("yml-path")
	if ymlPath == "" {
		ymlPath = fileURLPath(cast.ToString(ctx.ArtifactValue("configlint-yml-path")))
	}
	if ymlPath == "" {
		stepResult.Success = false
		stepResult.Message = "yml-path not specified in configuration or in previous step results"
		return stepResult, nil
	}

	if _, err := os.Stat(ymlPath); err != nil {
		stepResult.Success = false
		stepResult.Message = fmt.Sprintf("file specified in yml-path not found: %s", ymlPath)
		return stepResult, nil
	}

	rulesFile := ctx.ConfigString("rules")
	if _, err := os.Stat(rulesFile); err != nil {
		stepResult.Success = false
		stepResult.Message = fmt.Sprintf("file specified in rules not found: %s", rulesFile)
		return stepResult, nil
	}

	if _, err := exec.LookPath("config-lint"); err != nil {
		return nil, fmt.Errorf("config-lint binary not found in PATH: %w", err)
	}

	slog.Info("running config-lint", "rules", rulesFile, "ymlPath", ymlPath)

	cmd := exec.Command("config-lint", "-verbose", "-rules", rulesFile, ymlPath)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()

	resultsFilePath, err := ctx.WriteWorkingFile("configlint-results.txt", output.Bytes())
	if err != nil {
		return nil, err
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == configlintViolationExitCode {
			stepResult.Success = false
			stepResult.Message = "failed config-lint scan"
		} else {
			return nil, fmt.Errorf("unexpected error invoking config-lint: %w\noutput: %s", runErr, output.String())
		}
	}

	stepResult.AddArtifactWithType(
		"configlint-result-set",
		fmt.Sprintf("file://%s", resultsFilePath),
		"file",
	)
	stepResult.AddArtifactWithType("yml-path", fmt.Sprintf("file://%s", ymlPath), "file")
	return stepResult, nil
}

// fileURLPath strips a file:// scheme from an artifact value, returning
// plain paths unchanged.
func fileURLPath(value string) string {
	return strings.TrimPrefix(value, "file://")
}
