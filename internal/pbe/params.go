package pbe

import (
	"crypto"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameters is returned by Parameters.Validate.
var ErrInvalidParameters = errors.New("invalid PBE parameters")

// Algorithm is a password based encryption scheme.
type Algorithm int

const (
	// TripleDES3KeyPKCS12 is pbeWithSHAAnd3-KeyTripleDES-CBC (RFC 7292 Appendix C).
	TripleDES3KeyPKCS12 Algorithm = iota + 1
	// AES256PBES2 is PBES2 with PBKDF2-HMAC-SHA256 and AES-256-CBC (RFC 8018).
	AES256PBES2
)

func (a Algorithm) String() string {
	switch a {
	case TripleDES3KeyPKCS12:
		return "3des-pkcs12"
	case AES256PBES2:
		return "aes256-pbes2"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// ParseAlgorithm parses "3des-pkcs12" or "aes256-pbes2".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "3des-pkcs12", "3des", "tripledes":
		return TripleDES3KeyPKCS12, nil
	case "aes256-pbes2", "aes256", "pbes2":
		return AES256PBES2, nil
	default:
		return 0, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidParameters, s)
	}
}

// ParseMACHash parses "sha1" or "sha256".
func ParseMACHash(s string) (crypto.Hash, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "") {
	case "sha1":
		return crypto.SHA1, nil
	case "sha256":
		return crypto.SHA256, nil
	default:
		return 0, fmt.Errorf("%w: MAC hash must be sha1 or sha256, got %q", ErrInvalidParameters, s)
	}
}

// Defaults for Parameters.
const (
	DefaultIterations = 600000
	DefaultSaltSize   = 8

	MaxIterations = 10000000
	MinSaltSize   = 8
	MaxSaltSize   = 64
)

// Parameters configure key encryption and the PKCS#12 integrity MAC.
type Parameters struct {
	// Algorithm encrypts the private key and the key safe contents.
	Algorithm Algorithm
	// MACHash is the digest of the PKCS#12 HMAC (SHA-1 or SHA-256).
	MACHash crypto.Hash
	// Iterations is used for key derivation and the MAC.
	Iterations int
	// SaltSize is the length in bytes of every generated salt.
	SaltSize int
}

// Default returns the compatibility default: triple-DES, SHA-1 MAC,
// 600,000 iterations, 8 byte salts. Every PKCS#12 consumer in use reads it.
func Default() Parameters {
	return Parameters{
		Algorithm:  TripleDES3KeyPKCS12,
		MACHash:    crypto.SHA1,
		Iterations: DefaultIterations,
		SaltSize:   DefaultSaltSize,
	}
}

// Modern returns AES-256 PBES2 with a SHA-256 MAC.
func Modern() Parameters {
	return Parameters{
		Algorithm:  AES256PBES2,
		MACHash:    crypto.SHA256,
		Iterations: DefaultIterations,
		SaltSize:   16,
	}
}

// IsCompatibilityDefault reports whether p equals Default().
func (p Parameters) IsCompatibilityDefault() bool {
	return p == Default()
}

// Validate checks every field.
func (p Parameters) Validate() error {
	switch p.Algorithm {
	case TripleDES3KeyPKCS12, AES256PBES2:
	default:
		return fmt.Errorf("%w: algorithm %s", ErrInvalidParameters, p.Algorithm)
	}
	if p.MACHash != crypto.SHA1 && p.MACHash != crypto.SHA256 {
		return fmt.Errorf("%w: MAC hash must be sha1 or sha256", ErrInvalidParameters)
	}
	if p.Iterations < 1 || p.Iterations > MaxIterations {
		return fmt.Errorf("%w: iterations %d out of range 1..%d", ErrInvalidParameters, p.Iterations, MaxIterations)
	}
	if p.SaltSize < MinSaltSize || p.SaltSize > MaxSaltSize {
		return fmt.Errorf("%w: salt size %d out of range %d..%d", ErrInvalidParameters, p.SaltSize, MinSaltSize, MaxSaltSize)
	}
	return nil
}

func (p Parameters) String() string {
	mac := "sha1"
	if p.MACHash == crypto.SHA256 {
		mac = "sha256"
	}
	return fmt.Sprintf("%s, %s MAC, %d iterations, %d byte salt", p.Algorithm, mac, p.Iterations, p.SaltSize)
}
