// Package crypto describes the key algorithms certgen can generate and
// produces fresh key pairs for them.
//
// Two algorithm families are supported:
//   - RSA, modulus 512..8192 bits in steps of 64, signed with PKCS#1 v1.5
//   - ECDSA on the NIST curves P-256, P-384 and P-521
package crypto

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedAlgorithm is returned for any key description outside the
// supported RSA and ECDSA parameter space.
var ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")

// RSA modulus constraints.
const (
	MinRSABits  = 512
	MaxRSABits  = 8192
	RSABitsStep = 64
)

// KeyType is the key family of a KeyAlgorithm.
type KeyType int

const (
	KeyTypeUnknown KeyType = iota
	KeyTypeRSA
	KeyTypeECDSA
)

// String returns the lowercase family name.
func (t KeyType) String() string {
	switch t {
	case KeyTypeRSA:
		return "rsa"
	case KeyTypeECDSA:
		return "ecdsa"
	default:
		return "unknown"
	}
}

// Curve names a NIST elliptic curve.
type Curve string

const (
	CurveP256 Curve = "P-256"
	CurveP384 Curve = "P-384"
	CurveP521 Curve = "P-521"
)

// Curves lists the supported curves in menu order.
func Curves() []Curve {
	return []Curve{CurveP256, CurveP384, CurveP521}
}

// DefaultHash returns the digest paired with the curve in the curated presets.
func (c Curve) DefaultHash() crypto.Hash {
	switch c {
	case CurveP256:
		return crypto.SHA256
	case CurveP384:
		return crypto.SHA384
	case CurveP521:
		return crypto.SHA512
	default:
		return 0
	}
}

// KeyAlgorithm is the immutable description of a key to generate.
// It is implemented only by RSAKey and ECDSAKey.
type KeyAlgorithm interface {
	// Type returns the key family.
	Type() KeyType
	// Hash returns the digest used for signatures made with the key.
	Hash() crypto.Hash
	// SignatureAlgorithm returns the X.509 signature algorithm for the key and hash.
	SignatureAlgorithm() x509.SignatureAlgorithm
	// Validate reports ErrUnsupportedAlgorithm for parameters outside the supported space.
	Validate() error
	String() string

	isKeyAlgorithm()
}

// RSAKey describes an RSA key of Bits modulus size signed with Digest.
type RSAKey struct {
	Bits   int
	Digest crypto.Hash
}

// ECDSAKey describes an ECDSA key on Curve signed with Digest.
type ECDSAKey struct {
	Curve  Curve
	Digest crypto.Hash
}

var (
	_ KeyAlgorithm = RSAKey{}
	_ KeyAlgorithm = ECDSAKey{}
)

// Curated presets.
var (
	RSA2048SHA256   KeyAlgorithm = RSAKey{Bits: 2048, Digest: crypto.SHA256}
	ECDSAP256SHA256 KeyAlgorithm = ECDSAKey{Curve: CurveP256, Digest: crypto.SHA256}
)

// NewECDSAKey returns the curated description for a curve, pairing it with
// the matching digest.
func NewECDSAKey(c Curve) (ECDSAKey, error) {
	k := ECDSAKey{Curve: c, Digest: c.DefaultHash()}
	if err := k.Validate(); err != nil {
		return ECDSAKey{}, err
	}
	return k, nil
}

func (RSAKey) isKeyAlgorithm()   {}
func (ECDSAKey) isKeyAlgorithm() {}

func (RSAKey) Type() KeyType   { return KeyTypeRSA }
func (ECDSAKey) Type() KeyType { return KeyTypeECDSA }

func (k RSAKey) Hash() crypto.Hash   { return k.Digest }
func (k ECDSAKey) Hash() crypto.Hash { return k.Digest }

// SignatureAlgorithm returns the PKCS#1 v1.5 algorithm for the digest.
func (k RSAKey) SignatureAlgorithm() x509.SignatureAlgorithm {
	switch k.Digest {
	case crypto.SHA256:
		return x509.SHA256WithRSA
	case crypto.SHA384:
		return x509.SHA384WithRSA
	case crypto.SHA512:
		return x509.SHA512WithRSA
	default:
		return x509.UnknownSignatureAlgorithm
	}
}

// SignatureAlgorithm returns the ECDSA algorithm for the digest.
func (k ECDSAKey) SignatureAlgorithm() x509.SignatureAlgorithm {
	switch k.Digest {
	case crypto.SHA256:
		return x509.ECDSAWithSHA256
	case crypto.SHA384:
		return x509.ECDSAWithSHA384
	case crypto.SHA512:
		return x509.ECDSAWithSHA512
	default:
		return x509.UnknownSignatureAlgorithm
	}
}

// Validate checks the modulus size constraints and the digest.
func (k RSAKey) Validate() error {
	if k.Bits < MinRSABits || k.Bits > MaxRSABits || k.Bits%RSABitsStep != 0 {
		return fmt.Errorf("%w: RSA key size %d (must be %d..%d in steps of %d)",
			ErrUnsupportedAlgorithm, k.Bits, MinRSABits, MaxRSABits, RSABitsStep)
	}
	if !isSupportedHash(k.Digest) {
		return fmt.Errorf("%w: hash %v for RSA", ErrUnsupportedAlgorithm, k.Digest)
	}
	// PKCS#1 v1.5 needs room for the DigestInfo prefix, the digest and 11 bytes of padding
	if need := (pkcs1DigestInfoLen + k.Digest.Size() + 11) * 8; k.Bits < need {
		return fmt.Errorf("%w: RSA-%d is too small for %s signatures (needs %d bits)",
			ErrUnsupportedAlgorithm, k.Bits, HashName(k.Digest), need)
	}
	return nil
}

// pkcs1DigestInfoLen is the DER DigestInfo prefix length for the SHA-2 family.
const pkcs1DigestInfoLen = 19

// Validate checks the curve and the digest.
func (k ECDSAKey) Validate() error {
	if k.Curve.DefaultHash() == 0 {
		return fmt.Errorf("%w: curve %q", ErrUnsupportedAlgorithm, string(k.Curve))
	}
	if !isSupportedHash(k.Digest) {
		return fmt.Errorf("%w: hash %v for ECDSA", ErrUnsupportedAlgorithm, k.Digest)
	}
	return nil
}

func (k RSAKey) String() string {
	return fmt.Sprintf("rsa-%d/%s", k.Bits, HashName(k.Digest))
}

func (k ECDSAKey) String() string {
	return fmt.Sprintf("ecdsa-%s/%s", curveSlug(k.Curve), HashName(k.Digest))
}

func isSupportedHash(h crypto.Hash) bool {
	return h == crypto.SHA256 || h == crypto.SHA384 || h == crypto.SHA512
}

// Hashes lists the digests an operator may pick, in menu order.
func Hashes() []crypto.Hash {
	return []crypto.Hash{crypto.SHA256, crypto.SHA384, crypto.SHA512}
}

// HashName returns the lowercase name of a supported digest.
func HashName(h crypto.Hash) string {
	switch h {
	case crypto.SHA1:
		return "sha1"
	case crypto.SHA256:
		return "sha256"
	case crypto.SHA384:
		return "sha384"
	case crypto.SHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// ParseHash parses "sha256", "SHA-384", ... into a crypto.Hash.
func ParseHash(s string) (crypto.Hash, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "") {
	case "sha256":
		return crypto.SHA256, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: hash %q", ErrUnsupportedAlgorithm, s)
	}
}

func curveSlug(c Curve) string {
	return strings.ToLower(strings.ReplaceAll(string(c), "-", ""))
}

// ParseCurve accepts "P-256", "p256", "ecdsa-p256", ...
func ParseCurve(s string) (Curve, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "ecdsa-")
	for _, c := range Curves() {
		if s == curveSlug(c) || s == strings.ToLower(string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: curve %q", ErrUnsupportedAlgorithm, s)
}

// ParseKeyAlgorithm parses an identifier such as "rsa-2048", "rsa-3072" or
// "ecdsa-p384". When hash is empty, RSA keys get SHA-256 and ECDSA keys get
// the digest matching their curve.
func ParseKeyAlgorithm(id, hash string) (KeyAlgorithm, error) {
	id = strings.ToLower(strings.TrimSpace(id))

	var alg KeyAlgorithm
	switch {
	case strings.HasPrefix(id, "rsa-"):
		bits, err := strconv.Atoi(strings.TrimPrefix(id, "rsa-"))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, id)
		}
		alg = RSAKey{Bits: bits, Digest: crypto.SHA256}
	case strings.HasPrefix(id, "ecdsa-"):
		c, err := ParseCurve(id)
		if err != nil {
			return nil, err
		}
		alg = ECDSAKey{Curve: c, Digest: c.DefaultHash()}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, id)
	}

	if hash != "" {
		h, err := ParseHash(hash)
		if err != nil {
			return nil, err
		}
		switch a := alg.(type) {
		case RSAKey:
			a.Digest = h
			alg = a
		case ECDSAKey:
			a.Digest = h
			alg = a
		}
	}

	if err := alg.Validate(); err != nil {
		return nil, err
	}
	return alg, nil
}

// SizeWarning flags an RSA modulus size that is valid but questionable.
type SizeWarning int

const (
	// WarnWeakSize marks sizes below 2048 bits.
	WarnWeakSize SizeWarning = iota + 1
	// WarnUnusualSize marks sizes that are not a multiple of 1024 or exceed
	// 4096 bits, which some software refuses.
	WarnUnusualSize
)

// RSASizeWarnings returns the warnings that apply to an RSA modulus size.
// Each warning is confirmed by the operator on its own.
func RSASizeWarnings(bits int) []SizeWarning {
	var warnings []SizeWarning
	if bits < 2048 {
		warnings = append(warnings, WarnWeakSize)
	}
	if bits%1024 != 0 || bits > 4096 {
		warnings = append(warnings, WarnUnusualSize)
	}
	return warnings
}
