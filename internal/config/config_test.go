package config

import (
	"crypto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiblancher/certgen/internal/pbe"
)

func TestU_Default(t *testing.T) {
	cfg := Default()
	params, err := cfg.Parameters()
	require.NoError(t, err)
	assert.Equal(t, pbe.Default(), params)
	assert.True(t, cfg.ShouldVerifyExport())
	assert.Empty(t, cfg.AuditLog)
}

func TestU_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "certgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pbe:
  algorithm: aes256-pbes2
  iterations: 300000
audit_log: ./audit.jsonl
verify_export: false
defaults:
  key: ecdsa-p384
  days: 90
  format: pkcs12
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	params, err := cfg.Parameters()
	require.NoError(t, err)
	assert.Equal(t, pbe.AES256PBES2, params.Algorithm)
	assert.Equal(t, crypto.SHA256, params.MACHash)
	assert.Equal(t, 300000, params.Iterations)
	assert.Equal(t, pbe.Modern().SaltSize, params.SaltSize)

	assert.Equal(t, "./audit.jsonl", cfg.AuditLog)
	assert.False(t, cfg.ShouldVerifyExport())
	assert.Equal(t, "ecdsa-p384", cfg.Defaults.Key)
	assert.Equal(t, 90, cfg.Defaults.Days)
}

func TestU_Parse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	params, err := cfg.Parameters()
	require.NoError(t, err)
	assert.True(t, params.IsCompatibilityDefault())
}

func TestU_Parse_MACHashOverride(t *testing.T) {
	cfg, err := Parse([]byte("pbe:\n  hash: sha256\n  salt_size: 16\n"))
	require.NoError(t, err)
	params, err := cfg.Parameters()
	require.NoError(t, err)
	assert.Equal(t, pbe.TripleDES3KeyPKCS12, params.Algorithm)
	assert.Equal(t, crypto.SHA256, params.MACHash)
	assert.Equal(t, 16, params.SaltSize)
}

func TestU_Parse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"[Unit] Config: unknown algorithm", "pbe:\n  algorithm: rc4\n"},
		{"[Unit] Config: unknown MAC hash", "pbe:\n  hash: md5\n"},
		{"[Unit] Config: negative iterations", "pbe:\n  iterations: -1\n"},
		{"[Unit] Config: salt too small", "pbe:\n  salt_size: 4\n"},
		{"[Unit] Config: unknown key", "defaults:\n  key: ed25519\n"},
		{"[Unit] Config: unknown hash", "defaults:\n  hash: md5\n"},
		{"[Unit] Config: negative days", "defaults:\n  days: -3\n"},
		{"[Unit] Config: unknown format", "defaults:\n  format: der\n"},
		{"[Unit] Config: unknown field", "verbose: true\n"},
		{"[Unit] Config: not yaml", "pbe: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestU_Load_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
