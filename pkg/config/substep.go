package config

import (
	"fmt"

	"github.com/mitchellh/copystructure"
)

// Names of the six precedence layers, lowest to highest.
const (
	SourceImplementerDefaults = "implementer-defaults"
	SourceGlobalDefaults      = "global-defaults"
	SourceGlobalEnvDefaults   = "global-environment-defaults"
	SourceStepConfig          = "step-config"
	SourceStepEnvConfig       = "step-environment-config"
	SourceRuntimeOverrides    = "runtime-overrides"
)

// SubStepConfig is the configuration for one sub-step of a pipeline step,
// identified by (StepName, SubStepName, SubStepImplementerName). It resolves
// keys across six precedence layers, lowest to highest:
//
//	implementer defaults < global defaults < global environment defaults
//	  < step config < step environment config < runtime overrides
//
// Apart from runtime overrides injected through SetStepConfigOverrides,
// a SubStepConfig is not mutated once a step run begins.
type SubStepConfig struct {
	StepName               string
	SubStepName            string
	SubStepImplementerName string

	// SubStepConfig is the static configuration for this sub-step.
	SubStepConfig map[string]any
	// EnvironmentConfig maps environment name to sub-step configuration
	// specific to that environment.
	EnvironmentConfig map[string]map[string]any
	// GlobalDefaults apply to every step in the pipeline.
	GlobalDefaults map[string]any
	// GlobalEnvDefaults maps environment name to defaults applying to
	// every step when run against that environment.
	GlobalEnvDefaults map[string]map[string]any

	stepConfigOverrides map[string]any
}

type layer struct {
	source string
	values map[string]any
}

// SetStepConfigOverrides injects runtime configuration overrides, the
// highest-precedence layer. Leaves are wrapped with runtime-overrides
// provenance if not already wrapped.
func (c *SubStepConfig) SetStepConfigOverrides(overrides map[string]any) {
	if overrides == nil {
		c.stepConfigOverrides = nil
		return
	}
	wrapped, _ := WrapLeaves(overrides, SourceRuntimeOverrides).(map[string]any)
	c.stepConfigOverrides = wrapped
}

// StepConfigOverrides returns the runtime configuration overrides, or an
// empty map when none were injected.
func (c *SubStepConfig) StepConfigOverrides() map[string]any {
	if c.stepConfigOverrides == nil {
		return map[string]any{}
	}
	return c.stepConfigOverrides
}

// SubStepEnvConfig returns the sub-step configuration specific to the given
// environment, or an empty map when environment is empty or unknown.
func (c *SubStepConfig) SubStepEnvConfig(environment string) map[string]any {
	if environment == "" {
		return map[string]any{}
	}
	envConfig, ok := c.EnvironmentConfig[environment]
	if !ok || envConfig == nil {
		return map[string]any{}
	}
	return envConfig
}

// GlobalEnvironmentDefaults returns the global defaults specific to the
// given environment, or an empty map when environment is empty or unknown.
func (c *SubStepConfig) GlobalEnvironmentDefaults(environment string) map[string]any {
	if environment == "" {
		return map[string]any{}
	}
	defaults, ok := c.GlobalEnvDefaults[environment]
	if !ok || defaults == nil {
		return map[string]any{}
	}
	return defaults
}

func (c *SubStepConfig) layers(environment string, defaults map[string]any) []layer {
	return []layer{
		{SourceImplementerDefaults, defaults},
		{SourceGlobalDefaults, c.GlobalDefaults},
		{SourceGlobalEnvDefaults, c.GlobalEnvironmentDefaults(environment)},
		{SourceStepConfig, c.SubStepConfig},
		{SourceStepEnvConfig, c.SubStepEnvConfig(environment)},
		{SourceRuntimeOverrides, c.StepConfigOverrides()},
	}
}

// ConfigValue resolves key across the six precedence layers and returns its
// plain (unwrapped) value, or nil when no layer defines the key. A key that
// is present with an empty value still counts as defined; presence of the
// key selects the layer, not truthiness. Scalar conflicts are replaced by
// the higher layer; nested map values merge recursively with higher-layer
// keys winning.
func (c *SubStepConfig) ConfigValue(key, environment string, defaults map[string]any) any {
	resolved, defined := c.resolve(key, environment, defaults)
	if !defined {
		return nil
	}
	return ConvertLeavesToValues(resolved)
}

// ConfigValueSource returns the provenance of the layer that supplied the
// resolved value for key, or the empty string when no layer defines it. For
// nested map values this is the source of the highest contributing layer.
func (c *SubStepConfig) ConfigValueSource(key, environment string, defaults map[string]any) string {
	source := ""
	for _, l := range c.layers(environment, defaults) {
		v, ok := l.values[key]
		if !ok {
			continue
		}
		if cv, ok := v.(*Value); ok {
			source = cv.Source()
		} else {
			source = l.source
		}
	}
	return source
}

func (c *SubStepConfig) resolve(key, environment string, defaults map[string]any) (any, bool) {
	var resolved any
	defined := false
	for _, l := range c.layers(environment, defaults) {
		v, ok := l.values[key]
		if !ok {
			continue
		}
		if defined {
			if resolvedMap, ok := Unwrap(resolved).(map[string]any); ok {
				if overMap, ok := Unwrap(v).(map[string]any); ok {
					resolved = mergeLayerMaps(resolvedMap, overMap)
					continue
				}
			}
		}
		resolved = v
		defined = true
	}
	return resolved, defined
}

// RuntimeStepConfig materializes the fully resolved configuration for one
// execution: the union of keys across all six layers, each resolved per the
// precedence rule, as plain values. The result is a deep copy; mutating it
// never affects any underlying configuration source.
func (c *SubStepConfig) RuntimeStepConfig(environment string, defaults map[string]any) (map[string]any, error) {
	resolved := map[string]any{}
	for _, l := range c.layers(environment, defaults) {
		for key := range l.values {
			if _, done := resolved[key]; done {
				continue
			}
			resolved[key] = c.ConfigValue(key, environment, defaults)
		}
	}

	copied, err := copystructure.Copy(resolved)
	if err != nil {
		return nil, fmt.Errorf("deep copying runtime step config: %w", err)
	}
	return copied.(map[string]any), nil
}
