package results

// DefaultArtifactType is the artifact value type recorded when none is
// given.
const DefaultArtifactType = "str"

// Artifact is a named output value attached to a step's result, consumable
// by later steps.
type Artifact struct {
	Value any    `yaml:"value"`
	Type  string `yaml:"type"`
}

// StepResult is the structured outcome of one sub-step execution,
// identified by (StepName, SubStepName, SubStepImplementerName). A new
// StepResult starts successful with an empty message and no artifacts.
// Artifacts may be attached even when Success is false.
type StepResult struct {
	StepName               string
	SubStepName            string
	SubStepImplementerName string

	Success   bool
	Message   string
	Artifacts map[string]Artifact
}

// NewStepResult creates an initially-successful, empty-message, no-artifact
// result bound to the given identity.
func NewStepResult(stepName, subStepName, subStepImplementerName string) *StepResult {
	return &StepResult{
		StepName:               stepName,
		SubStepName:            subStepName,
		SubStepImplementerName: subStepImplementerName,
		Success:                true,
		Artifacts:              map[string]Artifact{},
	}
}

// AddArtifact inserts or overwrites an artifact with the default value
// type. Overwriting an existing name replaces its value and type.
func (r *StepResult) AddArtifact(name string, value any) {
	r.AddArtifactWithType(name, value, DefaultArtifactType)
}

// AddArtifactWithType inserts or overwrites an artifact by name,
// last-write-wins. An empty valueType falls back to the default.
func (r *StepResult) AddArtifactWithType(name string, value any, valueType string) {
	if valueType == "" {
		valueType = DefaultArtifactType
	}
	if r.Artifacts == nil {
		r.Artifacts = map[string]Artifact{}
	}
	r.Artifacts[name] = Artifact{Value: value, Type: valueType}
}

// Artifact returns the named artifact and whether it exists.
func (r *StepResult) Artifact(name string) (Artifact, bool) {
	a, ok := r.Artifacts[name]
	return a, ok
}

// ResultMap serializes the result to the canonical nested mapping shape
// shared by the persisted results file and inter-step lookups:
//
//	step-name:
//	  sub-step-name:
//	    sub-step-implementer-name: ...
//	    success: ...
//	    message: ...
//	    artifacts:
//	      name: {value: ..., type: ...}
func (r *StepResult) ResultMap() map[string]any {
	artifacts := make(map[string]any, len(r.Artifacts))
	for name, artifact := range r.Artifacts {
		artifacts[name] = map[string]any{
			"value": artifact.Value,
			"type":  artifact.Type,
		}
	}

	return map[string]any{
		r.StepName: map[string]any{
			r.SubStepName: map[string]any{
				"sub-step-implementer-name": r.SubStepImplementerName,
				"success":                   r.Success,
				"message":                   r.Message,
				"artifacts":                 artifacts,
			},
		},
	}
}
