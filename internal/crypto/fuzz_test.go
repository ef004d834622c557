package crypto

import (
	"testing"
)

// =============================================================================
// Algorithm Parsing Fuzz Tests
// =============================================================================

// FuzzParseKeyAlgorithm tests that every accepted algorithm also validates.
func FuzzParseKeyAlgorithm(f *testing.F) {
	f.Add("rsa-2048", "")
	f.Add("rsa-512", "sha512")
	f.Add("RSA-8192", "sha-384")
	f.Add("ecdsa-p256", "")
	f.Add("ecdsa-P-521", "sha256")
	f.Add("rsa-", "")
	f.Add("rsa--64", "")
	f.Add("rsa-99999999999999999999", "")
	f.Add("ed25519", "")
	f.Add("", "md5")

	f.Fuzz(func(t *testing.T, id, hash string) {
		alg, err := ParseKeyAlgorithm(id, hash)
		if err != nil {
			return
		}
		if err := alg.Validate(); err != nil {
			t.Errorf("ParseKeyAlgorithm(%q, %q) = %v which does not validate: %v", id, hash, alg, err)
		}
	})
}
