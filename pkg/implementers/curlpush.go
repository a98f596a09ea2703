package implementers

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cast"
	"github.com/systemstart/tssc/pkg/results"
	"github.com/systemstart/tssc/pkg/step"
)

// CurlPush implements the sign-container-image step by uploading a
// container image signature produced by a previous sub-step to a signature
// server via curl.
type CurlPush struct{}

func (c *CurlPush) ConfigDefaults() map[string]any { return map[string]any{} }

func (c *CurlPush) RequiredConfigKeys() []string {
	return []string{
		"container-image-signature-server-url",
		"container-image-signature-server-username",
		"container-image-signature-server-password",
	}
}

func (c *CurlPush) RunStep(ctx *step.RunContext) (*results.StepResult, error) {
	stepResult := ctx.NewStepResult()

	signatureFilePath := cast.ToString(ctx.ArtifactValue("container-image-signature-file-path"))
	if signatureFilePath == "" {
		stepResult.Success = false
		stepResult.Message = "step results are missing container-image-signature-file-path from the sign step"
		return stepResult, nil
	}
	signatureName := cast.ToString(ctx.ArtifactValue("container-image-signature-name"))
	if signatureName == "" {
		stepResult.Success = false
		stepResult.Message = "step results are missing container-image-signature-name from the sign step"
		return stepResult, nil
	}

	signatureMD5, signatureSHA1, err := signatureDigests(fileURLPath(signatureFilePath))
	if err != nil {
		return nil, err
	}

	serverURL := ctx.ConfigString("container-image-signature-server-url")
	username := ctx.ConfigString("container-image-signature-server-username")
	password := ctx.ConfigString("container-image-signature-server-password")
	signatureURL := fmt.Sprintf("%s/%s", serverURL, signatureName)

	if _, err := exec.LookPath("curl"); err != nil {
		return nil, fmt.Errorf("curl binary not found in PATH: %w", err)
	}

	slog.Info("uploading container image signature", "url", signatureURL)

	cmd := exec.Command(
		"curl",
		"-sSfL",
		"-X", "PUT",
		"--user", fmt.Sprintf("%s:%s", username, password),
		"--upload-file", fileURLPath(signatureFilePath),
		"--header", fmt.Sprintf("X-Checksum-Sha1: %s", signatureSHA1),
		"--header", fmt.Sprintf("X-Checksum-MD5: %s", signatureMD5),
		signatureURL,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("unexpected error uploading signature via curl: %w\nstderr: %s", err, stderr.String())
	}

	stepResult.AddArtifact("container-image-signature-file-md5", signatureMD5)
	stepResult.AddArtifact("container-image-signature-file-sha1", signatureSHA1)
	stepResult.AddArtifact("container-image-signature-url", signatureURL)
	return stepResult, nil
}

// signatureDigests returns the hex md5 and sha1 digests of the signature
// file.
func signatureDigests(path string) (md5Sum, sha1Sum string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading signature file %s: %w", path, err)
	}
	return fmt.Sprintf("%x", md5.Sum(data)), fmt.Sprintf("%x", sha1.Sum(data)), nil
}
