package step

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/systemstart/tssc/pkg/config"
	"github.com/systemstart/tssc/pkg/results"
	"gopkg.in/yaml.v3"
)

// fakeImplementer drives the runner lifecycle in tests.
type fakeImplementer struct {
	defaults map[string]any
	required []string
	run      func(ctx *RunContext) (*results.StepResult, error)
}

func (f *fakeImplementer) ConfigDefaults() map[string]any {
	if f.defaults == nil {
		return map[string]any{}
	}
	return f.defaults
}

func (f *fakeImplementer) RequiredConfigKeys() []string { return f.required }

func (f *fakeImplementer) RunStep(ctx *RunContext) (*results.StepResult, error) {
	return f.run(ctx)
}

func testSubStepConfig(stepName string, stepConfig map[string]any) *config.SubStepConfig {
	return &config.SubStepConfig{
		StepName:               stepName,
		SubStepName:            "Fake",
		SubStepImplementerName: "Fake",
		SubStepConfig:          stepConfig,
	}
}

func testRunnerOptions(t *testing.T) RunnerOptions {
	t.Helper()
	dir := t.TempDir()
	return RunnerOptions{
		ResultsDirPath: dir + "/tssc-results",
		WorkDirPath:    dir + "/tssc-working",
	}
}

func TestRunner_ValidationFailureListsAllMissingKeys(t *testing.T) {
	impl := &fakeImplementer{
		required: []string{"url", "user", "pass"},
		run: func(ctx *RunContext) (*results.StepResult, error) {
			t.Fatal("run must not be reached when validation fails")
			return nil, nil
		},
	}
	runner := NewRunner(impl, testSubStepConfig("deploy", map[string]any{}), testRunnerOptions(t))

	_, err := runner.RunStep()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var missingErr *MissingRequiredConfigError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected MissingRequiredConfigError, got %T: %v", err, err)
	}
	if got := fmt.Sprintf("%v", missingErr.Keys); got != "[url user pass]" {
		t.Errorf("missing keys = %v, want [url user pass] in required order", missingErr.Keys)
	}
	if !strings.Contains(err.Error(), "url, user, pass") {
		t.Errorf("error message %q does not list every missing key", err.Error())
	}
}

func TestRunner_ValidationTreatsFalseAsPresent(t *testing.T) {
	impl := &fakeImplementer{
		defaults: map[string]any{"fail-on-no-tests": false},
		required: []string{"fail-on-no-tests"},
		run: func(ctx *RunContext) (*results.StepResult, error) {
			return ctx.NewStepResult(), nil
		},
	}
	runner := NewRunner(impl, testSubStepConfig("unit-test", nil), testRunnerOptions(t))

	success, err := runner.RunStep()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !success {
		t.Error("expected success")
	}
}

func TestRunner_ValidationRejectsEmptyValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"empty string", ""},
		{"nil", nil},
		{"empty list", []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impl := &fakeImplementer{
				required: []string{"url"},
				run: func(ctx *RunContext) (*results.StepResult, error) {
					return ctx.NewStepResult(), nil
				},
			}
			cfg := testSubStepConfig("deploy", map[string]any{"url": tt.value})
			if _, err := NewRunner(impl, cfg, testRunnerOptions(t)).RunStep(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRunner_FatalErrorAppendsNothing(t *testing.T) {
	impl := &fakeImplementer{
		run: func(ctx *RunContext) (*results.StepResult, error) {
			return nil, fmt.Errorf("external tool exploded")
		},
	}
	opts := testRunnerOptions(t)
	runner := NewRunner(impl, testSubStepConfig("package", nil), opts)

	_, err := runner.RunStep()
	if err == nil || !strings.Contains(err.Error(), "external tool exploded") {
		t.Fatalf("expected wrapped fatal error, got %v", err)
	}

	if _, statErr := os.Stat(runner.SnapshotFilePath()); !os.IsNotExist(statErr) {
		t.Error("fatal error must not persist a snapshot")
	}
	if _, statErr := os.Stat(runner.ResultsFilePath()); !os.IsNotExist(statErr) {
		t.Error("fatal error must not persist a results file")
	}
}

func TestRunner_BusinessFailureIsRecorded(t *testing.T) {
	impl := &fakeImplementer{
		run: func(ctx *RunContext) (*results.StepResult, error) {
			stepResult := ctx.NewStepResult()
			stepResult.Success = false
			stepResult.Message = "Missing X"
			return stepResult, nil
		},
	}
	opts := testRunnerOptions(t)
	runner := NewRunner(impl, testSubStepConfig("validate-environment-configuration", nil), opts)

	success, err := runner.RunStep()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if success {
		t.Error("expected success = false")
	}

	ledger, err := results.LoadFromSnapshotFile(runner.SnapshotFilePath())
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger.StepResults) != 1 {
		t.Fatalf("ledger length = %d, want 1", len(ledger.StepResults))
	}

	data, err := os.ReadFile(runner.ResultsFilePath())
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	recorded := parsed["validate-environment-configuration"].(map[string]any)["Fake"].(map[string]any)
	if recorded["success"] != false || recorded["message"] != "Missing X" {
		t.Errorf("results file entry = %v", recorded)
	}
}

func TestRunner_NilResultIsFatal(t *testing.T) {
	impl := &fakeImplementer{
		run: func(ctx *RunContext) (*results.StepResult, error) {
			return nil, nil
		},
	}
	runner := NewRunner(impl, testSubStepConfig("package", nil), testRunnerOptions(t))

	if _, err := runner.RunStep(); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestRunner_LedgerThreadsAcrossSequentialSteps(t *testing.T) {
	opts := testRunnerOptions(t)

	producer := &fakeImplementer{
		run: func(ctx *RunContext) (*results.StepResult, error) {
			stepResult := ctx.NewStepResult()
			stepResult.AddArtifact("version", "1.0.0")
			return stepResult, nil
		},
	}
	producerCfg := testSubStepConfig("generate-metadata", nil)
	if _, err := NewRunner(producer, producerCfg, opts).RunStep(); err != nil {
		t.Fatal(err)
	}

	var seenVersion any
	consumer := &fakeImplementer{
		run: func(ctx *RunContext) (*results.StepResult, error) {
			seenVersion = ctx.ArtifactValue("version")

			firstStep, err := ctx.WorkflowResult().StepResultMap("generate-metadata")
			if err != nil {
				return nil, err
			}
			if _, ok := firstStep["generate-metadata"]; !ok {
				return nil, fmt.Errorf("previous step result not visible")
			}
			if _, ok := firstStep["package"]; ok {
				return nil, fmt.Errorf("step result map leaked another step")
			}

			return ctx.NewStepResult(), nil
		},
	}
	consumerCfg := testSubStepConfig("package", nil)
	if _, err := NewRunner(consumer, consumerCfg, opts).RunStep(); err != nil {
		t.Fatal(err)
	}

	if seenVersion != "1.0.0" {
		t.Errorf("consumer saw version %v, want 1.0.0", seenVersion)
	}

	ledger, err := results.LoadFromSnapshotFile(NewRunner(consumer, consumerCfg, opts).SnapshotFilePath())
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger.StepResults) != 2 {
		t.Errorf("ledger length = %d, want 2", len(ledger.StepResults))
	}
}

func TestRunContext_WorkingDirHelpers(t *testing.T) {
	opts := testRunnerOptions(t)

	impl := &fakeImplementer{
		run: func(ctx *RunContext) (*results.StepResult, error) {
			path, err := ctx.WriteWorkingFile("nested/output.txt", []byte("data"))
			if err != nil {
				return nil, err
			}
			if !strings.Contains(path, "unit-test") {
				return nil, fmt.Errorf("working file %q not namespaced per step", path)
			}

			subDir, err := ctx.CreateWorkingDirSubDir("reports")
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(subDir); err != nil {
				return nil, fmt.Errorf("sub dir not created: %w", err)
			}

			return ctx.NewStepResult(), nil
		},
	}

	if _, err := NewRunner(impl, testSubStepConfig("unit-test", nil), opts).RunStep(); err != nil {
		t.Fatal(err)
	}
}
