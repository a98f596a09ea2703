package results

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Default file names of the two persisted forms of the ledger.
const (
	SnapshotFileName = "tssc-results.pkl"
	ResultsFileName  = "tssc-results.yml"
)

func init() {
	// Artifact values travel through the snapshot as interface values, so
	// every concrete type YAML configuration can produce must be known to
	// gob.
	gob.Register("")
	gob.Register(true)
	gob.Register(0)
	gob.Register(int64(0))
	gob.Register(0.0)
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// WorkflowResult is the ordered, append-only ledger of all StepResults
// recorded so far in a pipeline run. Appends are monotonic; entries are
// never removed or reordered, and duplicate (step, sub-step) pairs coexist
// with lookups returning the first match.
type WorkflowResult struct {
	StepResults []*StepResult
}

// NewWorkflowResult returns an empty ledger.
func NewWorkflowResult() *WorkflowResult {
	return &WorkflowResult{}
}

// LoadFromSnapshotFile reconstructs the ledger from a durable snapshot. A
// missing file is the expected first-step condition and yields an empty
// ledger, not an error.
func LoadFromSnapshotFile(path string) (*WorkflowResult, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewWorkflowResult(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening workflow result snapshot: %w", err)
	}
	defer file.Close()

	var wr WorkflowResult
	if err := gob.NewDecoder(file).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decoding workflow result snapshot %s: %w", path, err)
	}
	return &wr, nil
}

// AddStepResult appends a result to the ledger. No de-duplication is
// performed.
func (w *WorkflowResult) AddStepResult(result *StepResult) error {
	if result == nil {
		return fmt.Errorf("step result must not be nil")
	}
	if result.StepName == "" {
		return fmt.Errorf("step result is missing a step name")
	}
	w.StepResults = append(w.StepResults, result)
	return nil
}

// WriteSnapshotFile serializes the whole ledger to the durable snapshot,
// overwriting any prior content. Parent directories are created as needed.
func (w *WorkflowResult) WriteSnapshotFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating workflow result snapshot: %w", err)
	}

	encodeErr := gob.NewEncoder(file).Encode(w)
	if closeErr := file.Close(); encodeErr == nil {
		encodeErr = closeErr
	}
	if encodeErr != nil {
		return fmt.Errorf("writing workflow result snapshot %s: %w", path, encodeErr)
	}
	return nil
}

// WriteResultsYAMLFile serializes the ledger to the canonical
// human-readable results file: every StepResult's ResultMap merged into one
// structure keyed by step name, derived freshly from the in-memory ledger.
func (w *WorkflowResult) WriteResultsYAMLFile(path string) error {
	merged, err := w.resultsMap()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshaling workflow results: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("writing workflow results file %s: %w", path, err)
	}
	return nil
}

func (w *WorkflowResult) resultsMap() (map[string]any, error) {
	merged := map[string]any{}
	seen := map[string]bool{}
	for _, result := range w.StepResults {
		// First result per (step, sub-step) wins; distinct sub-steps union.
		key := result.StepName + "/" + result.SubStepName
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := mergo.Merge(&merged, result.ResultMap()); err != nil {
			return nil, fmt.Errorf("merging step results: %w", err)
		}
	}
	return merged, nil
}

// ArtifactValue searches results in ledger order for the named artifact and
// returns the first matching value, or nil. A non-empty stepName restricts
// the search to that step; a non-empty subStepName restricts it further.
func (w *WorkflowResult) ArtifactValue(artifact, stepName, subStepName string) any {
	for _, result := range w.StepResults {
		if stepName != "" && result.StepName != stepName {
			continue
		}
		if subStepName != "" && result.SubStepName != subStepName {
			continue
		}
		if a, ok := result.Artifact(artifact); ok {
			return a.Value
		}
	}
	return nil
}

// StepResultMap returns the canonical nested mapping for stepName, merged
// across all of that step's sub-step results in ledger order. The first
// result for a given sub-step wins. Returns an empty map when the step has
// no recorded results.
func (w *WorkflowResult) StepResultMap(stepName string) (map[string]any, error) {
	merged := map[string]any{}
	seen := map[string]bool{}
	for _, result := range w.StepResults {
		if result.StepName != stepName || seen[result.SubStepName] {
			continue
		}
		seen[result.SubStepName] = true
		if err := mergo.Merge(&merged, result.ResultMap()); err != nil {
			return nil, fmt.Errorf("merging results for step %q: %w", stepName, err)
		}
	}
	return merged, nil
}
