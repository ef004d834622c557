package pbe

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastParams keeps key derivation cheap in unit tests.
func fastParams(alg Algorithm) Parameters {
	p := Default()
	p.Algorithm = alg
	p.Iterations = 1000
	if alg == AES256PBES2 {
		p.MACHash = crypto.SHA256
	}
	return p
}

// =============================================================================
// Parameters
// =============================================================================

func TestU_Default_IsCompatibilityDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, TripleDES3KeyPKCS12, p.Algorithm)
	assert.Equal(t, crypto.SHA1, p.MACHash)
	assert.Equal(t, 600000, p.Iterations)
	assert.Equal(t, 8, p.SaltSize)
	assert.True(t, p.IsCompatibilityDefault())
	assert.False(t, Modern().IsCompatibilityDefault())
	require.NoError(t, p.Validate())
	require.NoError(t, Modern().Validate())
}

func TestU_Parameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Parameters)
	}{
		{"[Unit] Validate: unknown algorithm", func(p *Parameters) { p.Algorithm = 0 }},
		{"[Unit] Validate: MD5 MAC", func(p *Parameters) { p.MACHash = crypto.MD5 }},
		{"[Unit] Validate: zero iterations", func(p *Parameters) { p.Iterations = 0 }},
		{"[Unit] Validate: too many iterations", func(p *Parameters) { p.Iterations = MaxIterations + 1 }},
		{"[Unit] Validate: short salt", func(p *Parameters) { p.SaltSize = 4 }},
		{"[Unit] Validate: long salt", func(p *Parameters) { p.SaltSize = 128 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParameters)
		})
	}
}

func TestU_ParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("3des-pkcs12")
	require.NoError(t, err)
	assert.Equal(t, TripleDES3KeyPKCS12, a)

	a, err = ParseAlgorithm("AES256-PBES2")
	require.NoError(t, err)
	assert.Equal(t, AES256PBES2, a)

	_, err = ParseAlgorithm("rc2-40")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestU_ParseMACHash(t *testing.T) {
	h, err := ParseMACHash("SHA-1")
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA1, h)

	h, err = ParseMACHash("sha256")
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA256, h)

	_, err = ParseMACHash("md5")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

// =============================================================================
// Password policy
// =============================================================================

func TestU_Password_Policies(t *testing.T) {
	pw, ok, err := Password(NoPassword{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pw)

	pw, ok, err = Password(Secret{Password: "hunter2"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hunter2", pw)

	_, _, err = Password(nil)
	assert.ErrorIs(t, err, ErrUnknownPasswordPolicy)

	assert.Equal(t, NoPassword{}, PolicyFor(""))
	assert.Equal(t, Secret{Password: "x"}, PolicyFor("x"))
}

func TestU_Secret_DoesNotPrintPassword(t *testing.T) {
	s := Secret{Password: "hunter2"}
	assert.NotContains(t, s.String(), "hunter2")
	assert.NotContains(t, s.GoString(), "hunter2")
}

// =============================================================================
// BMP password encoding
// =============================================================================

func TestU_BMPPassword(t *testing.T) {
	b, err := BMPPassword("")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, b)

	b, err = BMPPassword("ab")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 'a', 0, 'b', 0, 0}, b)

	b, err = BMPPassword("é")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xE9, 0, 0}, b)

	_, err = BMPPassword("\U0001F600")
	assert.Error(t, err)
}

func TestU_PKCS12KDF_DiversifiersDiffer(t *testing.T) {
	newHash, err := hashFunc(crypto.SHA1)
	require.NoError(t, err)
	bmp, err := BMPPassword("sesame")
	require.NoError(t, err)
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	key := pkcs12KDF(newHash, bmp, salt, 10, kdfIDKey, 24)
	iv := pkcs12KDF(newHash, bmp, salt, 10, kdfIDIV, 8)
	mac := pkcs12KDF(newHash, bmp, salt, 10, kdfIDMAC, 20)

	assert.Len(t, key, 24)
	assert.Len(t, iv, 8)
	assert.Len(t, mac, 20)
	assert.NotEqual(t, key[:8], iv)
	assert.NotEqual(t, key[:20], mac)

	// deterministic
	assert.Equal(t, key, pkcs12KDF(newHash, bmp, salt, 10, kdfIDKey, 24))
}

func TestU_PKCS12KDF_KnownAnswers(t *testing.T) {
	tests := []struct {
		name       string
		hash       crypto.Hash
		password   string
		salt       string
		iterations int
		id         byte
		size       int
		want       string
	}{
		{"[Unit] PKCS12KDF: SHA-1 key, 1 iteration", crypto.SHA1, "smeg", "0a58cf64530d823f", 1, kdfIDKey, 24,
			"8aaae6297b6cb04642ab5b077851284eb7128f1a2a7fbca3"},
		{"[Unit] PKCS12KDF: SHA-1 IV, 1 iteration", crypto.SHA1, "smeg", "0a58cf64530d823f", 1, kdfIDIV, 8,
			"79993dfe048d3b76"},
		{"[Unit] PKCS12KDF: SHA-1 MAC key, 1 iteration", crypto.SHA1, "smeg", "0a58cf64530d823f", 1, kdfIDMAC, 20,
			"9ba6ef317b8cb9f4760ab2fa2e51c066f0dce645"},
		{"[Unit] PKCS12KDF: SHA-1 key, 1000 iterations", crypto.SHA1, "smeg", "642b99ab44fb4b1f", 1000, kdfIDKey, 24,
			"e3367224d3ddbd5ac3e52722cbf38dbf33e90f8ccda288d2"},
		{"[Unit] PKCS12KDF: SHA-1 IV, 1000 iterations", crypto.SHA1, "smeg", "642b99ab44fb4b1f", 1000, kdfIDIV, 8,
			"0044f5f4dfa9448c"},
		{"[Unit] PKCS12KDF: SHA-1 MAC key, 1000 iterations", crypto.SHA1, "smeg", "642b99ab44fb4b1f", 1000, kdfIDMAC, 20,
			"d03e2095c25de734d2eae82aebfae1b4aa3e170d"},
		{"[Unit] PKCS12KDF: SHA-256 MAC key", crypto.SHA256, "smeg", "642b99ab44fb4b1f", 1000, kdfIDMAC, 32,
			"fb474705a20274d55f12e7617304e5b18db9f278af067ce04c0bac06b554ea38"},
		{"[Unit] PKCS12KDF: SHA-256 two blocks", crypto.SHA256, "smeg", "642b99ab44fb4b1f", 1000, kdfIDKey, 40,
			"f1fed2cc81c637e5a4b45c40e1b695dcdae4508aac7160e07f6bb30c0e0fb164ffa79ef08d13f007"},
		{"[Unit] PKCS12KDF: empty password", crypto.SHA1, "", "0a58cf64530d823f", 2048, kdfIDKey, 24,
			"472464ee1922a0549fb3af1535efc7dd4f9b197528e6a1a5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newHash, err := hashFunc(tt.hash)
			require.NoError(t, err)
			bmp, err := BMPPassword(tt.password)
			require.NoError(t, err)
			salt, err := hex.DecodeString(tt.salt)
			require.NoError(t, err)

			got := pkcs12KDF(newHash, bmp, salt, tt.iterations, tt.id, tt.size)
			assert.Equal(t, tt.want, hex.EncodeToString(got))
		})
	}
}

// =============================================================================
// Content encryption
// =============================================================================

func TestU_EncryptDecrypt_RoundTrip(t *testing.T) {
	plaintext := []byte("safe contents that need protection")

	for _, alg := range []Algorithm{TripleDES3KeyPKCS12, AES256PBES2} {
		t.Run(alg.String(), func(t *testing.T) {
			algID, ct, err := Encrypt(fastParams(alg), "correct horse", plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, plaintext, ct)

			oid, _, err := parseAlgorithmIdentifier(algID)
			require.NoError(t, err)
			if alg == TripleDES3KeyPKCS12 {
				assert.True(t, oid.Equal(OIDPBEWithSHAAnd3KeyTripleDESCBC))
			} else {
				assert.True(t, oid.Equal(OIDPBES2))
			}

			got, err := Decrypt(algID, "correct horse", ct)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)
		})
	}
}

func TestU_Encrypt_RejectsInvalidParameters(t *testing.T) {
	p := fastParams(TripleDES3KeyPKCS12)
	p.SaltSize = 0
	_, _, err := Encrypt(p, "pw", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

// =============================================================================
// Encrypted private keys
// =============================================================================

func TestU_EncryptPrivateKey_RoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	for _, alg := range []Algorithm{TripleDES3KeyPKCS12, AES256PBES2} {
		t.Run(alg.String(), func(t *testing.T) {
			der, err := EncryptPrivateKey(priv, "s3cret", fastParams(alg))
			require.NoError(t, err)

			got, err := DecryptPrivateKey(der, "s3cret")
			require.NoError(t, err)
			ec, ok := got.(*ecdsa.PrivateKey)
			require.True(t, ok, "got %T", got)
			assert.True(t, priv.Equal(ec))

			_, err = DecryptPrivateKey(der, "wrong")
			assert.Error(t, err)
		})
	}
}

func TestU_DecryptPrivateKey_Malformed(t *testing.T) {
	_, err := DecryptPrivateKey([]byte{0x30, 0x03, 0x02, 0x01, 0x00}, "pw")
	assert.Error(t, err)
}

// =============================================================================
// MAC
// =============================================================================

func TestU_PKCS12MAC(t *testing.T) {
	data := []byte("authenticated safe")
	salt := []byte("saltsalt")

	for _, h := range []crypto.Hash{crypto.SHA1, crypto.SHA256} {
		mac, err := PKCS12MAC(h, "pw", salt, 100, data)
		require.NoError(t, err)
		assert.Len(t, mac, h.Size())

		require.NoError(t, VerifyPKCS12MAC(h, "pw", salt, 100, data, mac))
		assert.ErrorIs(t, VerifyPKCS12MAC(h, "other", salt, 100, data, mac), ErrDecryption)
	}

	_, err := PKCS12MAC(crypto.SHA512, "pw", salt, 1, data)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestU_PKCS12MAC_KnownAnswers(t *testing.T) {
	data := []byte("authenticated safe")
	salt, err := hex.DecodeString("642b99ab44fb4b1f")
	require.NoError(t, err)

	mac, err := PKCS12MAC(crypto.SHA1, "smeg", salt, 1000, data)
	require.NoError(t, err)
	assert.Equal(t, "035fd3633be97bd7067bbd9635366e54429f309a", hex.EncodeToString(mac))

	mac, err = PKCS12MAC(crypto.SHA256, "smeg", salt, 1000, data)
	require.NoError(t, err)
	assert.Equal(t, "0d70e6749ed9d464175ac32cadce619c9c101f8e360268b5c407364dab5edfd0", hex.EncodeToString(mac))
}
