package step

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/systemstart/tssc/pkg/config"
	"github.com/systemstart/tssc/pkg/results"
)

// RunnerOptions locate the persisted state of a pipeline run. Zero values
// fall back to the conventional directory names.
type RunnerOptions struct {
	// ResultsDirPath holds the canonical results file. Default "tssc-results".
	ResultsDirPath string
	// ResultsFileName is the canonical results file name. Default
	// results.ResultsFileName.
	ResultsFileName string
	// WorkDirPath holds the snapshot and per-step scratch directories.
	// Default "tssc-working".
	WorkDirPath string
	// Environment the step runs against; empty means none.
	Environment string
}

func (o RunnerOptions) withDefaults() RunnerOptions {
	if o.ResultsDirPath == "" {
		o.ResultsDirPath = "tssc-results"
	}
	if o.ResultsFileName == "" {
		o.ResultsFileName = results.ResultsFileName
	}
	if o.WorkDirPath == "" {
		o.WorkDirPath = "tssc-working"
	}
	return o
}

// Runner drives one sub-step through the full lifecycle: configuration
// resolution, required-key validation, ledger load, execution, and
// persistence of the appended result.
type Runner struct {
	impl Implementer
	cfg  *config.SubStepConfig
	opts RunnerOptions
}

// NewRunner creates a Runner for one configured sub-step.
func NewRunner(impl Implementer, cfg *config.SubStepConfig, opts RunnerOptions) *Runner {
	return &Runner{impl: impl, cfg: cfg, opts: opts.withDefaults()}
}

// SnapshotFilePath returns the path of the durable ledger snapshot shared
// by every step of the run.
func (r *Runner) SnapshotFilePath() string {
	return filepath.Join(r.opts.WorkDirPath, results.SnapshotFileName)
}

// ResultsFilePath returns the path of the canonical results file.
func (r *Runner) ResultsFilePath() string {
	return filepath.Join(r.opts.ResultsDirPath, r.opts.ResultsFileName)
}

// RunStep executes the sub-step and returns its success flag. Validation
// failures and implementer errors are fatal: they return an error and leave
// the ledger untouched. A successful invocation appends exactly one
// StepResult and flushes both persisted forms before returning.
func (r *Runner) RunStep() (bool, error) {
	log := slog.With(
		"step", r.cfg.StepName,
		"subStep", r.cfg.SubStepName,
		"implementer", r.cfg.SubStepImplementerName,
	)
	log.Info("running step")

	defaults := r.impl.ConfigDefaults()
	runtimeConfig, err := r.cfg.RuntimeStepConfig(r.opts.Environment, defaults)
	if err != nil {
		return false, fmt.Errorf("resolving runtime step config for step %q: %w", r.cfg.StepName, err)
	}
	r.logResolvedConfig(log, runtimeConfig, defaults)

	if err := validateRequiredKeys(r.cfg.StepName, r.impl.RequiredConfigKeys(), runtimeConfig); err != nil {
		return false, err
	}

	workflowResult, err := results.LoadFromSnapshotFile(r.SnapshotFilePath())
	if err != nil {
		return false, fmt.Errorf("loading workflow result ledger: %w", err)
	}

	ctx := NewRunContext(
		r.cfg,
		defaults,
		r.opts.Environment,
		workflowResult,
		r.opts.WorkDirPath,
		r.opts.ResultsDirPath,
	)

	stepResult, err := r.impl.RunStep(ctx)
	if err != nil {
		return false, fmt.Errorf("step %q sub-step %q failed: %w", r.cfg.StepName, r.cfg.SubStepName, err)
	}
	if stepResult == nil {
		return false, fmt.Errorf("step %q sub-step %q returned no result", r.cfg.StepName, r.cfg.SubStepName)
	}

	if err := workflowResult.AddStepResult(stepResult); err != nil {
		return false, fmt.Errorf("recording step result: %w", err)
	}
	if err := workflowResult.WriteSnapshotFile(r.SnapshotFilePath()); err != nil {
		return false, err
	}
	if err := workflowResult.WriteResultsYAMLFile(r.ResultsFilePath()); err != nil {
		return false, err
	}

	log.Info("step finished", "success", stepResult.Success, "message", stepResult.Message)
	return stepResult.Success, nil
}

func (r *Runner) logResolvedConfig(log *slog.Logger, runtimeConfig, defaults map[string]any) {
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for key, value := range runtimeConfig {
		log.Debug("resolved config key",
			"key", key,
			"value", value,
			"source", r.cfg.ConfigValueSource(key, r.opts.Environment, defaults),
		)
	}
}

// validateRequiredKeys checks every required key resolved to a non-empty
// value. Boolean false is a present value, not an empty one. All missing
// keys are reported together, in required order.
func validateRequiredKeys(stepName string, required []string, runtimeConfig map[string]any) error {
	var missing []string
	for _, key := range required {
		value, ok := runtimeConfig[key]
		if !ok || isEmptyConfigValue(value) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingRequiredConfigError{StepName: stepName, Keys: missing}
	}
	return nil
}

func isEmptyConfigValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return false
	case string:
		return v == ""
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
