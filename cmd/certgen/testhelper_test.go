package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/remiblancher/certgen/internal/config"
)

// executeCommand executes a Cobra command with the given args and returns output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

// resetGlobals restores every package level flag and the loaded configuration.
func resetGlobals() {
	auditLogPath = ""
	configPath = ""
	verbosity = 0
	cfg = config.Default()

	genType = "self-signed"
	genProfile = "https"
	genCN = ""
	genDNS = nil
	genEKU = nil
	genKey = ""
	genHash = ""
	genDays = 0
	genFormat = ""
	genPasswordFile = ""
	genOut = ""
	genYes = false

	inspectPasswordFile = ""
	auditTailNum = 10
	auditShowJSON = false
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string
}

// newTestContext creates a new test context with a temp directory and
// clean command state.
func newTestContext(t *testing.T) *testContext {
	t.Helper()
	t.Setenv("CERTGEN_CONFIG", "")
	t.Setenv("CERTGEN_AUDIT_LOG", "")
	resetGlobals()
	t.Cleanup(resetGlobals)
	return &testContext{t: t, tempDir: t.TempDir()}
}

// path returns a path within the temp directory.
func (tc *testContext) path(name string) string {
	return filepath.Join(tc.tempDir, name)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name, content string) string {
	tc.t.Helper()
	path := tc.path(name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		tc.t.Fatalf("Failed to write file %s: %v", name, err)
	}
	return path
}
