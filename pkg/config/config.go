package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigKey is the required top-level key of every configuration file.
	ConfigKey = "tssc-config"

	globalDefaultsKey    = "global-defaults"
	globalEnvDefaultsKey = "global-environment-defaults"

	subStepNameKey        = "name"
	subStepImplementerKey = "implementer"
	subStepConfigKey      = "config"
	subStepEnvConfigKey   = "environment-config"
)

// Config is the parsed pipeline configuration: global defaults, global
// per-environment defaults, and the configured sub-steps of every step.
type Config struct {
	globalDefaults    map[string]any
	globalEnvDefaults map[string]map[string]any
	stepConfigs       map[string][]*SubStepConfig
	stepOrder         []string
}

// ExpandConfigPaths expands the given configuration arguments into concrete
// file paths. A directory argument matches every .yml/.yaml file directly
// inside it; arguments containing glob metacharacters are expanded with
// doublestar patterns ('**' supported); anything else is taken literally.
func ExpandConfigPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, statErr := os.Stat(arg)
		switch {
		case statErr == nil && info.IsDir():
			matches, err := doublestar.FilepathGlob(filepath.Join(arg, "*.{yml,yaml}"))
			if err != nil {
				return nil, fmt.Errorf("globbing config directory %q: %w", arg, err)
			}
			sort.Strings(matches)
			paths = append(paths, matches...)
		case strings.ContainsAny(arg, "*?[{"):
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, fmt.Errorf("globbing config pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("config pattern %q matched no files", arg)
			}
			sort.Strings(matches)
			paths = append(paths, matches...)
		default:
			paths = append(paths, arg)
		}
	}
	return paths, nil
}

// LoadFiles reads, parses, and merges the given configuration files into one
// Config. Later files override earlier ones; nested mappings merge key-wise
// while every other value is replaced. Each leaf records the file it came
// from.
func LoadFiles(paths []string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no configuration files given")
	}

	merged := map[string]any{}
	for _, path := range paths {
		doc, err := loadConfigDocument(path)
		if err != nil {
			return nil, err
		}
		merged = mergeLayerMaps(merged, doc)
	}

	return Parse(merged)
}

func loadConfigDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	section, ok := raw[ConfigKey].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config file %s: missing %q mapping", path, ConfigKey)
	}

	wrapped, _ := WrapLeaves(section, path).(map[string]any)
	return wrapped, nil
}

// Parse builds a Config from an already-merged tssc-config mapping. Leaves
// may be provenance-wrapped or plain.
func Parse(section map[string]any) (*Config, error) {
	cfg := &Config{
		globalDefaults:    map[string]any{},
		globalEnvDefaults: map[string]map[string]any{},
		stepConfigs:       map[string][]*SubStepConfig{},
	}

	for key, value := range section {
		switch key {
		case globalDefaultsKey:
			defaults, ok := Unwrap(value).(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s must be a mapping", globalDefaultsKey)
			}
			cfg.globalDefaults = defaults
		case globalEnvDefaultsKey:
			envDefaults, err := toEnvMap(value, globalEnvDefaultsKey)
			if err != nil {
				return nil, err
			}
			cfg.globalEnvDefaults = envDefaults
		default:
			subSteps, err := parseSubSteps(key, value)
			if err != nil {
				return nil, err
			}
			cfg.stepConfigs[key] = subSteps
			cfg.stepOrder = append(cfg.stepOrder, key)
		}
	}
	sort.Strings(cfg.stepOrder)

	for _, subSteps := range cfg.stepConfigs {
		for _, sub := range subSteps {
			sub.GlobalDefaults = cfg.globalDefaults
			sub.GlobalEnvDefaults = cfg.globalEnvDefaults
		}
	}

	return cfg, nil
}

func parseSubSteps(stepName string, value any) ([]*SubStepConfig, error) {
	var entries []any
	switch v := Unwrap(value).(type) {
	case []any:
		entries = v
	case map[string]any:
		entries = []any{v}
	default:
		return nil, fmt.Errorf("step %q: expected a sub-step mapping or list, got %T", stepName, v)
	}

	subSteps := make([]*SubStepConfig, 0, len(entries))
	seen := map[string]bool{}
	for i, entry := range entries {
		entryMap, ok := Unwrap(entry).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("step %q: sub-step %d is not a mapping", stepName, i)
		}

		implementer := cast.ToString(Unwrap(entryMap[subStepImplementerKey]))
		if implementer == "" {
			return nil, fmt.Errorf("step %q: sub-step %d: %s is required", stepName, i, subStepImplementerKey)
		}

		name := cast.ToString(Unwrap(entryMap[subStepNameKey]))
		if name == "" {
			name = implementer
		}
		if seen[name] {
			return nil, fmt.Errorf("step %q: duplicate sub-step name %q", stepName, name)
		}
		seen[name] = true

		subStepConfig := map[string]any{}
		if raw, ok := entryMap[subStepConfigKey]; ok {
			subStepConfig, ok = Unwrap(raw).(map[string]any)
			if !ok {
				return nil, fmt.Errorf("step %q: sub-step %q: %s must be a mapping", stepName, name, subStepConfigKey)
			}
		}

		envConfig := map[string]map[string]any{}
		if raw, ok := entryMap[subStepEnvConfigKey]; ok {
			var err error
			envConfig, err = toEnvMap(raw, fmt.Sprintf("step %q sub-step %q %s", stepName, name, subStepEnvConfigKey))
			if err != nil {
				return nil, err
			}
		}

		subSteps = append(subSteps, &SubStepConfig{
			StepName:               stepName,
			SubStepName:            name,
			SubStepImplementerName: implementer,
			SubStepConfig:          subStepConfig,
			EnvironmentConfig:      envConfig,
		})
	}
	return subSteps, nil
}

func toEnvMap(value any, context string) (map[string]map[string]any, error) {
	raw, ok := Unwrap(value).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping of environment names", context)
	}
	envMap := make(map[string]map[string]any, len(raw))
	for env, envValue := range raw {
		envConfig, ok := Unwrap(envValue).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: environment %q must be a mapping", context, env)
		}
		envMap[env] = envConfig
	}
	return envMap, nil
}

// GlobalDefaults returns the configuration defaults applying to all steps.
func (c *Config) GlobalDefaults() map[string]any { return c.globalDefaults }

// GlobalEnvironmentDefaults returns the global defaults for the given
// environment, or an empty map when environment is empty or unknown.
func (c *Config) GlobalEnvironmentDefaults(environment string) map[string]any {
	if environment == "" {
		return map[string]any{}
	}
	defaults, ok := c.globalEnvDefaults[environment]
	if !ok || defaults == nil {
		return map[string]any{}
	}
	return defaults
}

// StepNames returns the names of all configured steps, sorted.
func (c *Config) StepNames() []string { return c.stepOrder }

// SubStepConfigs returns the configured sub-steps for stepName, or nil when
// the step is not configured.
func (c *Config) SubStepConfigs(stepName string) []*SubStepConfig {
	return c.stepConfigs[stepName]
}

// SetStepConfigOverrides injects runtime configuration overrides for every
// sub-step of stepName. Override values are flat key/value pairs and merge
// shallowly over any previously injected overrides.
func (c *Config) SetStepConfigOverrides(stepName string, overrides map[string]any) error {
	subSteps := c.stepConfigs[stepName]
	if subSteps == nil {
		return fmt.Errorf("no configuration for step %q", stepName)
	}
	wrapped, _ := WrapLeaves(overrides, SourceRuntimeOverrides).(map[string]any)
	for _, sub := range subSteps {
		combined := mergeLayerMaps(sub.StepConfigOverrides(), wrapped)
		sub.SetStepConfigOverrides(combined)
	}
	return nil
}
