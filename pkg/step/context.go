package step

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"github.com/systemstart/tssc/pkg/config"
	"github.com/systemstart/tssc/pkg/results"
)

// RunContext is everything an Implementer may touch while executing:
// resolved configuration access, the loaded workflow result ledger, and a
// step-scoped working directory. The ledger is injected by the runner, not
// lazily loaded, so implementers stay testable without filesystem setup.
type RunContext struct {
	config         *config.SubStepConfig
	defaults       map[string]any
	environment    string
	workflowResult *results.WorkflowResult
	workDirPath    string
	resultsDirPath string
}

// NewRunContext builds a RunContext; used by the runner and by implementer
// tests that drive RunStep directly.
func NewRunContext(
	cfg *config.SubStepConfig,
	defaults map[string]any,
	environment string,
	workflowResult *results.WorkflowResult,
	workDirPath string,
	resultsDirPath string,
) *RunContext {
	return &RunContext{
		config:         cfg,
		defaults:       defaults,
		environment:    environment,
		workflowResult: workflowResult,
		workDirPath:    workDirPath,
		resultsDirPath: resultsDirPath,
	}
}

// StepName returns the name of the step being executed.
func (c *RunContext) StepName() string { return c.config.StepName }

// SubStepName returns the name of the sub-step being executed.
func (c *RunContext) SubStepName() string { return c.config.SubStepName }

// SubStepImplementerName returns the implementer name of the sub-step.
func (c *RunContext) SubStepImplementerName() string {
	return c.config.SubStepImplementerName
}

// Environment returns the environment the step runs against, or "".
func (c *RunContext) Environment() string { return c.environment }

// WorkflowResult returns the ledger of results from previous steps.
func (c *RunContext) WorkflowResult() *results.WorkflowResult {
	return c.workflowResult
}

// NewStepResult creates a StepResult bound to this sub-step's identity.
func (c *RunContext) NewStepResult() *results.StepResult {
	return results.NewStepResult(c.StepName(), c.SubStepName(), c.SubStepImplementerName())
}

// ConfigValue resolves key across the six precedence layers, or nil when no
// layer defines it.
func (c *RunContext) ConfigValue(key string) any {
	return c.config.ConfigValue(key, c.environment, c.defaults)
}

// ConfigString resolves key and coerces it to a string.
func (c *RunContext) ConfigString(key string) string {
	return cast.ToString(c.ConfigValue(key))
}

// ConfigBool resolves key and coerces it to a bool.
func (c *RunContext) ConfigBool(key string) bool {
	return cast.ToBool(c.ConfigValue(key))
}

// HasConfigValue reports whether configuration values exist for the given
// keys. With matchAny true one defined key suffices, otherwise all keys
// must be defined.
func (c *RunContext) HasConfigValue(matchAny bool, keys ...string) bool {
	for _, key := range keys {
		defined := c.ConfigValue(key) != nil
		if matchAny && defined {
			return true
		}
		if !matchAny && !defined {
			return false
		}
	}
	return !matchAny || len(keys) == 0
}

// RuntimeStepConfig materializes the fully resolved configuration for this
// execution as a deep copy.
func (c *RunContext) RuntimeStepConfig() (map[string]any, error) {
	return c.config.RuntimeStepConfig(c.environment, c.defaults)
}

// ArtifactValue searches the ledger in append order for the named artifact
// across all steps and returns the first matching value, or nil.
func (c *RunContext) ArtifactValue(name string) any {
	return c.workflowResult.ArtifactValue(name, "", "")
}

// ResultsDirPath returns the directory holding the canonical results file.
func (c *RunContext) ResultsDirPath() string { return c.resultsDirPath }

// WorkDirPath returns this step's scratch directory,
// <work-dir>/<step-name>, creating it if needed.
func (c *RunContext) WorkDirPath() (string, error) {
	dir := filepath.Join(c.workDirPath, c.StepName())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating step working directory: %w", err)
	}
	return dir, nil
}

// CreateWorkingDirSubDir creates (if needed) and returns a directory below
// this step's scratch directory.
func (c *RunContext) CreateWorkingDirSubDir(relativePath string) (string, error) {
	stepDir, err := c.WorkDirPath()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(stepDir, relativePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating working sub directory: %w", err)
	}
	return dir, nil
}

// WriteWorkingFile writes contents to a file in this step's scratch
// directory and returns its path. Nil contents create an empty file;
// intermediate directories in filename are created.
func (c *RunContext) WriteWorkingFile(filename string, contents []byte) (string, error) {
	stepDir, err := c.WorkDirPath()
	if err != nil {
		return "", err
	}

	path := filepath.Join(stepDir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("creating working file directory: %w", err)
	}
	if err := os.WriteFile(path, contents, 0o640); err != nil {
		return "", fmt.Errorf("writing working file %s: %w", path, err)
	}
	return path, nil
}
