package implementers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/systemstart/tssc/pkg/results"
	"github.com/systemstart/tssc/pkg/step"
)

func ledgerWithArtifact(t *testing.T, stepName, artifact string, value any) *results.WorkflowResult {
	t.Helper()
	ledger := results.NewWorkflowResult()
	previous := results.NewStepResult(stepName, "Previous", "Previous")
	previous.AddArtifact(artifact, value)
	if err := ledger.AddStepResult(previous); err != nil {
		t.Fatal(err)
	}
	return ledger
}

func TestConfiglintFromArgocd_RunStep_MissingArtifact(t *testing.T) {
	c := &ConfiglintFromArgocd{}
	ctx := newImplementerContext(t, c, step.ValidateEnvironmentConfiguration, nil, nil)

	stepResult, err := c.RunStep(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stepResult.Success {
		t.Error("expected success = false")
	}
	if !strings.Contains(stepResult.Message, "argocd-result-set") {
		t.Errorf("message = %q", stepResult.Message)
	}
}

func TestConfiglintFromArgocd_RunStep_FileAbsent(t *testing.T) {
	ledger := ledgerWithArtifact(t, step.Deploy, "argocd-result-set",
		"file://"+filepath.Join(t.TempDir(), "missing.yml"))

	c := &ConfiglintFromArgocd{}
	ctx := newImplementerContext(t, c, step.ValidateEnvironmentConfiguration, nil, ledger)

	stepResult, err := c.RunStep(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stepResult.Success {
		t.Error("expected success = false")
	}
	if !strings.Contains(stepResult.Message, "not found") {
		t.Errorf("message = %q", stepResult.Message)
	}
}

func TestConfiglintFromArgocd_RunStep_EmitsYmlPathArtifact(t *testing.T) {
	ymlFile := filepath.Join(t.TempDir(), "argocd-manifest.yml")
	if err := os.WriteFile(ymlFile, []byte("kind: Deployment"), 0o600); err != nil {
		t.Fatal(err)
	}
	ledger := ledgerWithArtifact(t, step.Deploy, "argocd-result-set", "file://"+ymlFile)

	c := &ConfiglintFromArgocd{}
	ctx := newImplementerContext(t, c, step.ValidateEnvironmentConfiguration, nil, ledger)

	stepResult, err := c.RunStep(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stepResult.Success {
		t.Errorf("expected success, message = %q", stepResult.Message)
	}

	artifact, ok := stepResult.Artifact("configlint-yml-path")
	if !ok {
		t.Fatal("expected configlint-yml-path artifact")
	}
	if artifact.Value != "file://"+ymlFile || artifact.Type != "file" {
		t.Errorf("artifact = %+v", artifact)
	}
}
