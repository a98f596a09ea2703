package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/systemstart/tssc/pkg/config"
	"github.com/systemstart/tssc/pkg/implementers"
	"github.com/systemstart/tssc/pkg/logging"
	"github.com/systemstart/tssc/pkg/step"
)

var version = "dev"

const (
	_ = iota
	exitStepNotSpecified
	exitDotenvError
	exitConfigExpandFailed
	exitConfigLoadFailed
	exitOverridesInvalid
	exitStepFatal
	exitStepFailed
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

var (
	stepName        string
	configArgs      multiFlag
	stepConfigFlags multiFlag
	environment     string
	resultsDir      string
	workDir         string
	loggingType     string
	logLevel        string
	showVersion     bool
)

func init() {
	flag.StringVar(
		&stepName,
		"step",
		"",
		"name of the pipeline step to run")
	flag.Var(
		&configArgs,
		"config",
		"configuration file, directory, or glob pattern (repeatable)")
	flag.Var(
		&stepConfigFlags,
		"step-config",
		"runtime step configuration override as key=value (repeatable)")
	flag.StringVar(
		&environment,
		"environment",
		"",
		"environment to run the step against")
	flag.StringVar(
		&resultsDir,
		"results-dir",
		"tssc-results",
		"directory to write the results file to")
	flag.StringVar(
		&workDir,
		"work-dir",
		"tssc-working",
		"directory for the ledger snapshot and step working files")
	flag.StringVar(
		&loggingType,
		"logging-type",
		"tint",
		"logging type: json, text or tint")
	flag.StringVar(
		&logLevel,
		"log-level",
		"info",
		"logging level: debug, info, warn, error")
	flag.BoolVar(
		&showVersion,
		"version",
		false,
		"print version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	_ = logging.Initialize(loggingType, logLevel)

	includeEnv()

	if stepName == "" {
		slog.Error("-step not set")
		os.Exit(exitStepNotSpecified)
	}

	runID := uuid.NewString()
	slog.Info("starting step run", "runId", runID, "step", stepName, "environment", environment)

	cfg := loadConfiguration()
	applyStepConfigOverrides(cfg)

	registry := step.NewRegistry()
	implementers.RegisterAll(registry)

	success, err := step.RunConfiguredStep(registry, cfg, stepName, step.RunnerOptions{
		ResultsDirPath: resultsDir,
		WorkDirPath:    workDir,
		Environment:    environment,
	})
	if err != nil {
		slog.Error("step run aborted", "runId", runID, "step", stepName, "error", err)
		os.Exit(exitStepFatal)
	}
	if !success {
		slog.Error("step completed with failures", "runId", runID, "step", stepName)
		os.Exit(exitStepFailed)
	}

	slog.Info("step completed successfully", "runId", runID, "step", stepName)
}

func loadConfiguration() *config.Config {
	paths, err := config.ExpandConfigPaths(configArgs)
	if err != nil {
		slog.Error("failed to expand config arguments", "error", err)
		os.Exit(exitConfigExpandFailed)
	}

	cfg, err := config.LoadFiles(paths)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(exitConfigLoadFailed)
	}
	return cfg
}

func applyStepConfigOverrides(cfg *config.Config) {
	if len(stepConfigFlags) == 0 {
		return
	}

	overrides := make(map[string]any, len(stepConfigFlags))
	for _, kv := range stepConfigFlags {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			slog.Error("-step-config must be key=value", "argument", kv)
			os.Exit(exitOverridesInvalid)
		}
		overrides[key] = value
	}

	if err := cfg.SetStepConfigOverrides(stepName, overrides); err != nil {
		slog.Error("failed to apply step config overrides", "error", err)
		os.Exit(exitOverridesInvalid)
	}
}

func includeEnv() {
	err := godotenv.Load()
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load .env", "error", err)
			os.Exit(exitDotenvError)
		}
		slog.Debug("no .env file found")
	} else {
		slog.Info("using .env file")
	}
}
