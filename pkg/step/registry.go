package step

import (
	"fmt"
	"sort"
)

// Factory constructs a fresh Implementer instance.
type Factory func() Implementer

// Registry maps (step name, implementer name) to implementer factories. It
// is a closed set: only registered implementers can be selected from
// configuration.
type Registry struct {
	factories map[string]map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]map[string]Factory{}}
}

// Register adds a factory for the given step and implementer name,
// replacing any previous registration for the same pair.
func (r *Registry) Register(stepName, implementerName string, factory Factory) {
	if r.factories[stepName] == nil {
		r.factories[stepName] = map[string]Factory{}
	}
	r.factories[stepName][implementerName] = factory
}

// NewImplementer constructs the implementer registered for the given step
// and implementer name. Unknown names are an error listing the registered
// implementers for the step.
func (r *Registry) NewImplementer(stepName, implementerName string) (Implementer, error) {
	factory, ok := r.factories[stepName][implementerName]
	if !ok {
		known := r.ImplementerNames(stepName)
		if len(known) == 0 {
			return nil, fmt.Errorf("no implementers registered for step %q", stepName)
		}
		return nil, fmt.Errorf(
			"unknown implementer %q for step %q (registered: %v)",
			implementerName, stepName, known,
		)
	}
	return factory(), nil
}

// ImplementerNames returns the sorted implementer names registered for
// stepName.
func (r *Registry) ImplementerNames(stepName string) []string {
	names := make([]string, 0, len(r.factories[stepName]))
	for name := range r.factories[stepName] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the registry the CLI and factory helpers use.
var DefaultRegistry = NewRegistry()

// Register adds a factory to the default registry.
func Register(stepName, implementerName string, factory Factory) {
	DefaultRegistry.Register(stepName, implementerName, factory)
}
