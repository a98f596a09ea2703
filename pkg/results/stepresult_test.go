package results

import (
	"reflect"
	"testing"
)

func TestNewStepResult_Defaults(t *testing.T) {
	r := NewStepResult("unit-test", "Maven", "Maven")

	if !r.Success {
		t.Error("new step result must start successful")
	}
	if r.Message != "" {
		t.Errorf("new step result message = %q, want empty", r.Message)
	}
	if len(r.Artifacts) != 0 {
		t.Errorf("new step result has %d artifacts, want 0", len(r.Artifacts))
	}
}

func TestStepResult_AddArtifact_LastWriteWins(t *testing.T) {
	r := NewStepResult("unit-test", "Maven", "Maven")

	r.AddArtifact("report", "first")
	r.AddArtifactWithType("report", "second", "file")
	r.AddArtifact("version", "1.0.0")

	if len(r.Artifacts) != 2 {
		t.Fatalf("artifact count = %d, want 2", len(r.Artifacts))
	}

	report, ok := r.Artifact("report")
	if !ok {
		t.Fatal("expected report artifact")
	}
	if report.Value != "second" || report.Type != "file" {
		t.Errorf("report = %+v, want value second, type file", report)
	}

	version, _ := r.Artifact("version")
	if version.Type != DefaultArtifactType {
		t.Errorf("version type = %q, want %q", version.Type, DefaultArtifactType)
	}
}

func TestStepResult_ResultMap_CanonicalShape(t *testing.T) {
	r := NewStepResult("sign-container-image", "CurlPush", "CurlPush")
	r.Success = false
	r.Message = "upload refused"
	r.AddArtifactWithType("container-image-signature-url", "https://sigserver/signatures/myname", "url")

	expected := map[string]any{
		"sign-container-image": map[string]any{
			"CurlPush": map[string]any{
				"sub-step-implementer-name": "CurlPush",
				"success":                   false,
				"message":                   "upload refused",
				"artifacts": map[string]any{
					"container-image-signature-url": map[string]any{
						"value": "https://sigserver/signatures/myname",
						"type":  "url",
					},
				},
			},
		},
	}

	if got := r.ResultMap(); !reflect.DeepEqual(got, expected) {
		t.Errorf("ResultMap() = %v, want %v", got, expected)
	}
}
