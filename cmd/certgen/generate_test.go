package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiblancher/certgen/internal/audit"
	"github.com/remiblancher/certgen/internal/certgen"
	"github.com/remiblancher/certgen/internal/cli"
	"github.com/remiblancher/certgen/internal/config"
	"github.com/remiblancher/certgen/internal/credential"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/pkcs12"
	"github.com/remiblancher/certgen/internal/x509util"
)

const fastConfig = `pbe:
  algorithm: aes256-pbes2
  iterations: 1000
`

// =============================================================================
// Generate
// =============================================================================

func TestF_Generate_SelfSignedPEM(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("www.pem")

	output, err := executeCommand(rootCmd, "generate",
		"--dns", "www.example.com", "--dns", "example.com",
		"--key", "ecdsa-p256", "--days", "10", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, output, "Self-signed certificate created")
	assert.Contains(t, output, "Protection: none")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	blocks, err := credential.DecodePEM(data)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, x509util.PEMLabelCertificate, blocks[0].Type)
	assert.Equal(t, credential.PEMTypePrivateKey, blocks[1].Type)

	cert, err := x509.ParseCertificate(blocks[0].Bytes)
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", cert.Subject.CommonName)
	assert.Equal(t, []string{"www.example.com", "example.com"}, cert.DNSNames)
	assert.Equal(t, 10*24*time.Hour, cert.NotAfter.Sub(cert.NotBefore))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestF_Generate_EncryptedRequest(t *testing.T) {
	tc := newTestContext(t)
	cfgPath := tc.writeFile("certgen.yaml", fastConfig)
	pwPath := tc.writeFile("pw.txt", "hunter2\n")
	out := tc.path("signing.pem")

	output, err := executeCommand(rootCmd, "--config", cfgPath, "generate",
		"--type", "csr", "--profile", "code-signing", "--cn", "ACME Releases",
		"--key", "ecdsa-p384", "--password-file", pwPath, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, output, "Certificate request created")
	assert.Contains(t, output, "aes256-pbes2")
	assert.NotContains(t, output, "triple-DES")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	blocks, err := credential.DecodePEM(data)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, x509util.PEMLabelCertificateRequest, blocks[0].Type)
	assert.Equal(t, credential.PEMTypeEncryptedPrivateKey, blocks[1].Type)

	priv, err := credential.ParsePrivateKeyBlock(blocks[1], "hunter2")
	require.NoError(t, err)
	ec, ok := priv.(*ecdsa.PrivateKey)
	require.True(t, ok)
	assert.Equal(t, elliptic.P384(), ec.Curve)
}

func TestF_Generate_ConfigDefaults(t *testing.T) {
	tc := newTestContext(t)
	cfgPath := tc.writeFile("certgen.yaml", fastConfig+`defaults:
  key: ecdsa-p521
  days: 7
  format: pkcs12
`)
	out := tc.path("device.pfx")

	_, err := executeCommand(rootCmd, "--config", cfgPath, "generate",
		"--profile", "custom", "--cn", "device-42", "--eku", "client-auth", "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	_, cert, err := pkcs12.Decode(data, "")
	require.NoError(t, err)
	assert.Equal(t, "device-42", cert.Subject.CommonName)
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}, cert.ExtKeyUsage)
	assert.Equal(t, x509.ECDSAWithSHA512, cert.SignatureAlgorithm)
	assert.Equal(t, 7*24*time.Hour, cert.NotAfter.Sub(cert.NotBefore))
}

func TestF_Generate_RequestIgnoresConfiguredPKCS12(t *testing.T) {
	tc := newTestContext(t)
	cfgPath := tc.writeFile("certgen.yaml", "defaults:\n  format: pkcs12\n")
	out := tc.path("req.pem")

	_, err := executeCommand(rootCmd, "--config", cfgPath, "generate",
		"--type", "csr", "--dns", "example.com", "--key", "ecdsa-p256", "--out", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	blocks, err := credential.DecodePEM(data)
	require.NoError(t, err)
	assert.Equal(t, x509util.PEMLabelCertificateRequest, blocks[0].Type)
}

func TestF_Generate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		target error
	}{
		{"[Functional] Generate: unsupported key", []string{"--dns", "example.com", "--key", "ed25519"}, certgen.ErrUnsupportedAlgorithm},
		{"[Functional] Generate: RSA size off the grid", []string{"--dns", "example.com", "--key", "rsa-2050"}, certgen.ErrUnsupportedAlgorithm},
		{"[Functional] Generate: weak RSA without --yes", []string{"--dns", "example.com", "--key", "rsa-1024"}, cli.ErrSizeNotConfirmed},
		{"[Functional] Generate: CSR as PKCS#12", []string{"--type", "csr", "--dns", "example.com", "--key", "ecdsa-p256", "--format", "pkcs12"}, certgen.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestContext(t)
			out := tc.path("out.pem")
			_, err := executeCommand(rootCmd, append([]string{"generate", "--out", out}, tt.args...)...)
			assert.ErrorIs(t, err, tt.target)
			assert.NoFileExists(t, out)
		})
	}
}

func TestF_Generate_WeakRSAWithYes(t *testing.T) {
	tc := newTestContext(t)
	out := tc.path("legacy.pem")

	_, err := executeCommand(rootCmd, "generate", "--dns", "example.com", "--key", "rsa-1024", "--yes", "--out", out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestF_Generate_InvalidInput(t *testing.T) {
	tc := newTestContext(t)

	_, err := executeCommand(rootCmd, "generate", "--out", tc.path("a.pem"))
	assert.Error(t, err, "https needs a DNS name")

	_, err = executeCommand(rootCmd, "generate", "--profile", "smime", "--out", tc.path("b.pem"))
	assert.Error(t, err)

	empty := tc.writeFile("empty.txt", "")
	_, err = executeCommand(rootCmd, "generate", "--dns", "example.com", "--password-file", empty, "--out", tc.path("c.pem"))
	assert.Error(t, err)

	bad := tc.writeFile("bad.yaml", "pbe:\n  algoritm: aes\n")
	_, err = executeCommand(rootCmd, "--config", bad, "generate", "--dns", "example.com", "--out", tc.path("d.pem"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestF_Generate_ExistingDestination(t *testing.T) {
	tc := newTestContext(t)
	out := tc.writeFile("taken.pem", "keep me")

	_, err := executeCommand(rootCmd, "generate", "--dns", "example.com", "--key", "ecdsa-p256", "--out", out)
	assert.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

// =============================================================================
// Audit trail
// =============================================================================

func TestF_Generate_AuditLog(t *testing.T) {
	tc := newTestContext(t)
	logPath := tc.path("audit.jsonl")

	_, err := executeCommand(rootCmd, "--audit-log", logPath, "generate",
		"--dns", "example.com", "--key", "ecdsa-p256", "--out", tc.path("a.pem"))
	require.NoError(t, err)

	count, err := audit.VerifyChain(logPath)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	resetGlobals()
	output, err := executeCommand(rootCmd, "audit", "verify", logPath)
	require.NoError(t, err)
	assert.Contains(t, output, "VERIFICATION PASSED")
	assert.Contains(t, output, "Total events: 3")

	output, err = executeCommand(rootCmd, "audit", "tail", logPath, "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, output, string(audit.EventArtifactExported))
	assert.NotContains(t, output, string(audit.EventKeyGenerated))
}

func TestF_Generate_AuditLogFromEnv(t *testing.T) {
	tc := newTestContext(t)
	logPath := tc.path("env-audit.jsonl")
	t.Setenv("CERTGEN_AUDIT_LOG", logPath)

	_, err := executeCommand(rootCmd, "generate", "--type", "csr",
		"--dns", "example.com", "--key", "ecdsa-p256", "--out", tc.path("a.pem"))
	require.NoError(t, err)

	count, err := audit.VerifyChain(logPath)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestF_Audit_Verify_Tampered(t *testing.T) {
	tc := newTestContext(t)
	logPath := tc.writeFile("audit.jsonl",
		`{"id":"5b0c7e0e-3e56-4a58-9a52-0d6f3a8f6a11","event_type":"KEY_GENERATED","timestamp":"2026-01-01T00:00:00Z","actor":{"type":"user","id":"x"},"object":{"type":"key"},"result":"success","hash_prev":"sha256:genesis","hash":"sha256:abc123"}`+"\n")

	output, err := executeCommand(rootCmd, "audit", "verify", logPath)
	assert.ErrorIs(t, err, audit.ErrChainBroken)
	assert.Contains(t, output, "VERIFICATION FAILED")
}

func TestF_Audit_Tail_Empty(t *testing.T) {
	tc := newTestContext(t)
	logPath := tc.writeFile("audit.jsonl", "")

	output, err := executeCommand(rootCmd, "audit", "tail", logPath)
	require.NoError(t, err)
	assert.Contains(t, output, "Audit log is empty")
}

// =============================================================================
// Inspect
// =============================================================================

func TestF_Inspect(t *testing.T) {
	tc := newTestContext(t)
	cfgPath := tc.writeFile("certgen.yaml", fastConfig)
	pwPath := tc.writeFile("pw.txt", "p@ss\r\n")
	out := tc.path("www.pfx")

	_, err := executeCommand(rootCmd, "--config", cfgPath, "generate",
		"--dns", "www.example.com", "--key", "ecdsa-p256", "--format", "pkcs12",
		"--password-file", pwPath, "--out", out)
	require.NoError(t, err)

	resetGlobals()
	output, err := executeCommand(rootCmd, "inspect", out)
	require.NoError(t, err)
	assert.Contains(t, output, "PKCS#12:")
	assert.Contains(t, output, "PBES2")

	resetGlobals()
	output, err = executeCommand(rootCmd, "inspect", out, "--password-file", pwPath)
	require.NoError(t, err)
	assert.Contains(t, output, "CN=www.example.com")

	resetGlobals()
	_, err = executeCommand(rootCmd, "inspect", tc.path("missing.pem"))
	assert.Error(t, err)
}

// =============================================================================
// Summary
// =============================================================================

func TestU_PrintResult_CompatibilityNotice(t *testing.T) {
	out := new(bytes.Buffer)
	printResult(out, &certgen.Result{
		Path:         "x.pfx",
		GenerateType: x509util.SelfSignedCertificate,
		ExportType:   certgen.ExportPKCS12,
		Subject:      "CN=example.com",
		Encrypted:    true,
		PBE:          pbe.Default(),
	})
	assert.Contains(t, out.String(), "triple-DES")
	assert.Contains(t, out.String(), "PFX / PKCS12")

	out.Reset()
	printResult(out, &certgen.Result{Encrypted: true, PBE: pbe.Modern()})
	assert.NotContains(t, out.String(), "triple-DES")
}
