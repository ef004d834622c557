package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// ErrKeyDestroyed is returned when a KeyPair is used after Destroy.
var ErrKeyDestroyed = errors.New("key pair has been destroyed")

// KeyPair is an opaque handle on a freshly generated key pair.
//
// The private key is owned by the handle. Call Destroy once the key has been
// exported; it zeroes the private scalar material in place. The Go runtime
// may still hold copies (for example precomputed values inside crypto/ecdsa),
// so zeroing is best effort.
type KeyPair struct {
	alg  KeyAlgorithm
	priv crypto.Signer
}

// GenerateKeyPair generates a new key pair for the given algorithm.
//
// Example:
//
//	kp, err := crypto.GenerateKeyPair(crypto.ECDSAP256SHA256)
//	if err != nil {
//	    return err
//	}
//	defer kp.Destroy()
func GenerateKeyPair(alg KeyAlgorithm) (*KeyPair, error) {
	return GenerateKeyPairWithRand(rand.Reader, alg)
}

// GenerateKeyPairWithRand generates a key pair using the provided random source.
func GenerateKeyPairWithRand(random io.Reader, alg KeyAlgorithm) (*KeyPair, error) {
	if alg == nil {
		return nil, fmt.Errorf("%w: no algorithm", ErrUnsupportedAlgorithm)
	}
	if err := alg.Validate(); err != nil {
		return nil, err
	}

	var priv crypto.Signer
	var err error

	switch a := alg.(type) {
	case RSAKey:
		priv, err = rsa.GenerateKey(random, a.Bits)
	case ECDSAKey:
		priv, err = generateECDSA(random, a.Curve)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", alg, err)
	}

	return &KeyPair{alg: alg, priv: priv}, nil
}

func generateECDSA(random io.Reader, c Curve) (*ecdsa.PrivateKey, error) {
	var curve elliptic.Curve
	switch c {
	case CurveP256:
		curve = elliptic.P256()
	case CurveP384:
		curve = elliptic.P384()
	case CurveP521:
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("%w: curve %q", ErrUnsupportedAlgorithm, string(c))
	}
	return ecdsa.GenerateKey(curve, random)
}

// Algorithm returns the description the key pair was generated from.
func (k *KeyPair) Algorithm() KeyAlgorithm {
	return k.alg
}

// Public returns the public key, or nil after Destroy.
func (k *KeyPair) Public() crypto.PublicKey {
	if k.priv == nil {
		return nil
	}
	return k.priv.Public()
}

// Signer returns the private key as a crypto.Signer.
func (k *KeyPair) Signer() (crypto.Signer, error) {
	if k.priv == nil {
		return nil, ErrKeyDestroyed
	}
	return k.priv, nil
}

// PrivateKey returns the private key value for encoders that need the
// concrete key (*rsa.PrivateKey or *ecdsa.PrivateKey).
func (k *KeyPair) PrivateKey() (crypto.PrivateKey, error) {
	if k.priv == nil {
		return nil, ErrKeyDestroyed
	}
	return k.priv, nil
}

// PublicKeyDER returns the DER SubjectPublicKeyInfo of the key.
func (k *KeyPair) PublicKeyDER() ([]byte, error) {
	if k.priv == nil {
		return nil, ErrKeyDestroyed
	}
	return x509.MarshalPKIXPublicKey(k.priv.Public())
}

// PrivateKeyDER returns the unencrypted PKCS#8 PrivateKeyInfo. The caller
// owns the returned buffer and should Zero it when done.
func (k *KeyPair) PrivateKeyDER() ([]byte, error) {
	if k.priv == nil {
		return nil, ErrKeyDestroyed
	}
	der, err := x509.MarshalPKCS8PrivateKey(k.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return der, nil
}

// Destroy zeroes the private key material and releases the handle.
// It is safe to call more than once.
func (k *KeyPair) Destroy() {
	switch priv := k.priv.(type) {
	case *rsa.PrivateKey:
		zeroInt(priv.D)
		for _, p := range priv.Primes {
			zeroInt(p)
		}
		zeroInt(priv.Precomputed.Dp)
		zeroInt(priv.Precomputed.Dq)
		zeroInt(priv.Precomputed.Qinv)
		for i := range priv.Precomputed.CRTValues {
			zeroInt(priv.Precomputed.CRTValues[i].Exp)
			zeroInt(priv.Precomputed.CRTValues[i].Coeff)
		}
	case *ecdsa.PrivateKey:
		zeroInt(priv.D)
	}
	k.priv = nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
}

func zeroInt(n *big.Int) {
	if n == nil {
		return
	}
	words := n.Bits()
	clear(words)
	n.SetInt64(0)
}
