package step

import (
	"fmt"
	"strings"
)

// MissingRequiredConfigError reports required runtime configuration keys
// that resolved to no value before a step could execute. It is a
// precondition failure, not a step outcome: the run aborts without
// recording a StepResult.
type MissingRequiredConfigError struct {
	StepName string
	Keys     []string
}

func (e *MissingRequiredConfigError) Error() string {
	return fmt.Sprintf(
		"step %q: runtime step configuration is missing the required configuration keys: %s",
		e.StepName,
		strings.Join(e.Keys, ", "),
	)
}
