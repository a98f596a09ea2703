// Package implementers contains the built-in step implementers: thin
// wrappers that invoke external tools through the contract defined in
// pkg/step.
package implementers

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/systemstart/tssc/pkg/results"
	"github.com/systemstart/tssc/pkg/step"
)

const surefirePluginArtifactID = "maven-surefire-plugin"

// Maven implements the unit-test step by running `mvn clean test` and
// collecting the surefire reports.
type Maven struct{}

func (m *Maven) ConfigDefaults() map[string]any {
	return map[string]any{
		"fail-on-no-tests": true,
		"pom-file":         "pom.xml",
	}
}

func (m *Maven) RequiredConfigKeys() []string {
	return []string{"fail-on-no-tests", "pom-file"}
}

func (m *Maven) RunStep(ctx *step.RunContext) (*results.StepResult, error) {
	pomFile := ctx.ConfigString("pom-file")
	failOnNoTests := ctx.ConfigBool("fail-on-no-tests")

	if _, err := os.Stat(pomFile); err != nil {
		return nil, fmt.Errorf("given pom file does not exist: %s: %w", pomFile, err)
	}

	reportsDir, err := surefireReportsDir(pomFile)
	if err != nil {
		return nil, err
	}

	if _, err := exec.LookPath("mvn"); err != nil {
		return nil, fmt.Errorf("mvn binary not found in PATH: %w", err)
	}

	slog.Info("running maven unit tests", "pomFile", pomFile)

	cmd := exec.Command("mvn", "clean", "test", "-f", pomFile)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("error invoking mvn: %w\nstderr: %s", err, stderr.String())
	}

	stepResult := ctx.NewStepResult()

	entries, err := os.ReadDir(reportsDir)
	if err != nil || len(entries) == 0 {
		if failOnNoTests {
			return nil, fmt.Errorf("no unit tests defined for pom file %s", pomFile)
		}
		stepResult.Message = "unit test step ran successfully, but no tests were found"
		stepResult.AddArtifact("pom-path", pomFile)
		stepResult.AddArtifactWithType("fail-on-no-tests", false, "bool")
		return stepResult, nil
	}

	stepResult.Message = "unit test step ran successfully and junit reports were generated"
	stepResult.AddArtifact("pom-path", pomFile)
	stepResult.AddArtifactWithType(
		"maven-unit-test-results",
		fmt.Sprintf("file://%s", reportsDir),
		"file",
	)
	return stepResult, nil
}

// pomProject is the subset of a Maven POM needed to locate the surefire
// plugin and its optional custom reports directory.
type pomProject struct {
	Build struct {
		Plugins []pomPlugin `xml:"plugins>plugin"`
	} `xml:"build"`
}

type pomPlugin struct {
	ArtifactID    string `xml:"artifactId"`
	Configuration struct {
		ReportsDirectory string `xml:"reportsDirectory"`
	} `xml:"configuration"`
}

// surefireReportsDir parses the pom, requires the surefire plugin to be
// declared, and returns the test report directory: the plugin's
// reportsDirectory when configured, otherwise target/surefire-reports next
// to the pom.
func surefireReportsDir(pomFile string) (string, error) {
	data, err := os.ReadFile(pomFile)
	if err != nil {
		return "", fmt.Errorf("reading pom file %s: %w", pomFile, err)
	}

	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		return "", fmt.Errorf("parsing pom file %s: %w", pomFile, err)
	}

	for _, plugin := range pom.Build.Plugins {
		if plugin.ArtifactID != surefirePluginArtifactID {
			continue
		}
		if plugin.Configuration.ReportsDirectory != "" {
			return plugin.Configuration.ReportsDirectory, nil
		}
		pomDir, err := filepath.Abs(filepath.Dir(pomFile))
		if err != nil {
			return "", fmt.Errorf("resolving pom directory: %w", err)
		}
		return filepath.Join(pomDir, "target", "surefire-reports"), nil
	}

	return "", fmt.Errorf("unit test dependency %q missing from POM %s", surefirePluginArtifactID, pomFile)
}
