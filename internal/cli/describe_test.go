package cli

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiblancher/certgen/internal/certgen"
	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/profile"
	"github.com/remiblancher/certgen/internal/x509util"
)

func generateFile(t *testing.T, mode x509util.GenerateType, export certgen.ExportType, password string) []byte {
	t.Helper()
	p, err := profile.NewHTTPSProfile([]string{"www.example.com", "example.com"})
	require.NoError(t, err)

	params := pbe.Default()
	params.Iterations = 1000
	dest := filepath.Join(t.TempDir(), "out")
	_, err = (&certgen.Generator{}).Run(&certgen.Request{
		GenerateType: mode,
		ProfileKind:  profile.KindHTTPS,
		Profile:      p,
		Algorithm:    crypto.ECDSAP256SHA256,
		ValidityDays: 30,
		ExportType:   export,
		Password:     pbe.PolicyFor(password),
		PBE:          params,
		Destination:  dest,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	return data
}

// =============================================================================
// Usage names
// =============================================================================

func TestU_KeyUsageNames(t *testing.T) {
	assert.Equal(t, []string{"digitalSignature", "keyAgreement", "keyCertSign"},
		KeyUsageNames(x509.KeyUsageDigitalSignature|x509.KeyUsageKeyAgreement|x509.KeyUsageCertSign))
	assert.Nil(t, KeyUsageNames(0))
}

func TestU_ExtKeyUsageNames(t *testing.T) {
	got := ExtKeyUsageNames(
		[]x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageCodeSigning},
		[]asn1.ObjectIdentifier{{1, 3, 6, 1, 4, 1, 311, 10, 3, 3}},
	)
	assert.Equal(t, []string{"serverAuth", "codeSigning", "1.3.6.1.4.1.311.10.3.3"}, got)
}

func TestU_FormatPathLen(t *testing.T) {
	assert.Equal(t, "", formatPathLen(&x509.Certificate{}))
	assert.Equal(t, "0", formatPathLen(&x509.Certificate{IsCA: true, MaxPathLen: 0, MaxPathLenZero: true}))
	assert.Equal(t, "2", formatPathLen(&x509.Certificate{IsCA: true, MaxPathLen: 2}))
	assert.Equal(t, "unlimited", formatPathLen(&x509.Certificate{IsCA: true, MaxPathLen: -1}))
}

// =============================================================================
// Describe
// =============================================================================

func TestF_Describe_SelfSignedPEM(t *testing.T) {
	data := generateFile(t, x509util.SelfSignedCertificate, certgen.ExportPEM, "")

	var out bytes.Buffer
	require.NoError(t, Describe(&out, data, ""))
	s := out.String()
	assert.Contains(t, s, "Certificate:")
	assert.Contains(t, s, "CN=www.example.com")
	assert.Contains(t, s, "www.example.com, example.com")
	assert.Contains(t, s, "digitalSignature, keyCertSign")
	assert.Contains(t, s, "serverAuth, clientAuth")
	assert.Contains(t, s, "true (path length 0)")
	assert.Contains(t, s, "ECDSA P-256")
	assert.Contains(t, s, "Private Key:")
}

func TestF_Describe_EncryptedRequest(t *testing.T) {
	data := generateFile(t, x509util.CertificateRequest, certgen.ExportPEM, "hunter2")

	var out bytes.Buffer
	require.NoError(t, Describe(&out, data, ""))
	assert.Contains(t, out.String(), "Certificate Request:")
	assert.Contains(t, out.String(), "password required")
	assert.Contains(t, out.String(), "digitalSignature")
	assert.Contains(t, out.String(), "serverAuth, clientAuth")
	assert.NotContains(t, out.String(), "CA:")

	out.Reset()
	require.NoError(t, Describe(&out, data, "hunter2"))
	assert.Contains(t, out.String(), "PKCS#8, encrypted")
	assert.Contains(t, out.String(), "ECDSA P-256")

	assert.Error(t, Describe(&bytes.Buffer{}, data, "wrong"))
}

func TestF_Describe_PKCS12(t *testing.T) {
	data := generateFile(t, x509util.SelfSignedCertificate, certgen.ExportPKCS12, "p@ss")

	var out bytes.Buffer
	require.NoError(t, Describe(&out, data, ""))
	assert.Contains(t, out.String(), "PKCS#12:")
	assert.Contains(t, out.String(), "sha1, 1000 iterations")
	assert.Contains(t, out.String(), "encrypted with pbeWithSHAAnd3-KeyTripleDES-CBC")
	assert.Contains(t, out.String(), "password is required")
	assert.NotContains(t, out.String(), "Certificate:")

	out.Reset()
	require.NoError(t, Describe(&out, data, "p@ss"))
	assert.Contains(t, out.String(), "CN=www.example.com")
	assert.Contains(t, out.String(), "PKCS#12 key bag")
}

func TestF_Describe_PKCS12_NoPassword(t *testing.T) {
	data := generateFile(t, x509util.SelfSignedCertificate, certgen.ExportPKCS12, "")

	var out bytes.Buffer
	require.NoError(t, Describe(&out, data, ""))
	assert.Contains(t, out.String(), "MAC:")
	assert.Contains(t, out.String(), "(none)")
	assert.Contains(t, out.String(), "unencrypted, keyBag")
	assert.Contains(t, out.String(), "CN=www.example.com")
}

func TestU_Describe_Garbage(t *testing.T) {
	assert.Error(t, Describe(&bytes.Buffer{}, []byte("not a certificate"), ""))
	assert.Error(t, Describe(&bytes.Buffer{}, []byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"), ""))
}
