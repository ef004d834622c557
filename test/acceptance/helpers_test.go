//go:build acceptance

// Package acceptance contains black-box CLI acceptance tests (TestA_*).
// Run with: go test -tags=acceptance ./test/acceptance/...
package acceptance

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// certgenBinary is the path to the certgen binary.
// Set via CERTGEN_BINARY env var or default to ./bin/certgen in the repo root.
var certgenBinary string

func init() {
	if bin := os.Getenv("CERTGEN_BINARY"); bin != "" {
		certgenBinary = bin
	} else {
		certgenBinary = "../../bin/certgen"
	}
}

// runCertgen executes the certgen CLI with the given arguments and returns stdout.
// Fails the test if the command returns a non-zero exit code.
func runCertgen(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.Command(certgenBinary, args...)
	cmd.Env = append(os.Environ(), "CERTGEN_CONFIG=", "CERTGEN_AUDIT_LOG=")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		t.Fatalf("certgen %s failed: %v\nstderr: %s\nstdout: %s",
			strings.Join(args, " "), err, stderr.String(), stdout.String())
	}
	return stdout.String()
}

// runCertgenExpectError executes certgen and expects it to fail.
// Returns the combined output (stdout + stderr).
func runCertgenExpectError(t *testing.T, args ...string) string {
	t.Helper()
	cmd := exec.Command(certgenBinary, args...)
	cmd.Env = append(os.Environ(), "CERTGEN_CONFIG=", "CERTGEN_AUDIT_LOG=")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		t.Fatalf("certgen %s expected to fail but succeeded\nstdout: %s",
			strings.Join(args, " "), stdout.String())
	}
	return stdout.String() + stderr.String()
}

// writeFile writes content to path with mode 0600.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("expected file to exist: %s", path)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file not to exist: %s", path)
	}
}

// assertOutputContains fails the test if output does not contain expected.
func assertOutputContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}
