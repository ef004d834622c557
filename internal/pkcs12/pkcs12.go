// Package pkcs12 packages a certificate and its private key into a PKCS#12
// (PFX) container, RFC 7292.
//
// The certificate always sits in an unencrypted SafeContents. Without a
// password the key goes in a plain keyBag and the PFX carries no MAC. With a
// password the key is shrouded, its SafeContents is encrypted as well and the
// PFX is sealed with an HMAC keyed from the password.
package pkcs12

import (
	"crypto"
	"crypto/rand"
	"crypto/sha1"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/remiblancher/certgen/internal/pbe"
)

// PKCS#7 content types, PKCS#12 bag types and attributes.
var (
	OIDData          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OIDEncryptedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 6}

	OIDKeyBag              = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 1}
	OIDPKCS8ShroudedKeyBag = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 2}
	OIDCertBag             = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 3}
	OIDCertTypeX509        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 22, 1}

	OIDLocalKeyID = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 21}

	OIDSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	OIDSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
)

// pfxVersion is the only PFX version defined by RFC 7292.
const pfxVersion = 3

var (
	// ErrNoCertificate is returned when Encode is called without a certificate.
	ErrNoCertificate = errors.New("pkcs12: certificate is required")
	// ErrNoPrivateKey is returned when Encode is called without a private key.
	ErrNoPrivateKey = errors.New("pkcs12: private key is required")
)

var (
	tagExplicit0 = cbasn1.Tag(0).Constructed().ContextSpecific()
	tagImplicit0 = cbasn1.Tag(0).ContextSpecific()
)

// random is the source for the MAC salt.
var random io.Reader = rand.Reader

// Encode builds the PFX for the certificate and key under the password policy.
// params configures key encryption and the MAC; they are ignored for
// NoPassword, whose container is written by go-pkcs12.
func Encode(certDER []byte, key crypto.PrivateKey, policy pbe.PasswordPolicy, params pbe.Parameters) ([]byte, error) {
	if len(certDER) == 0 {
		return nil, ErrNoCertificate
	}
	if key == nil {
		return nil, ErrNoPrivateKey
	}

	password, encrypted, err := pbe.Password(policy)
	if err != nil {
		return nil, err
	}
	if !encrypted {
		return encodePasswordless(certDER, key)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	localKeyID := sha1.Sum(certDER)

	certSafe, err := certSafeContents(certDER, localKeyID[:])
	if err != nil {
		return nil, err
	}

	shrouded, err := pbe.EncryptPrivateKey(key, password, params)
	if err != nil {
		return nil, fmt.Errorf("pkcs12: %w", err)
	}
	keySafe, err := safeContents(OIDPKCS8ShroudedKeyBag, shrouded, localKeyID[:])
	if err != nil {
		return nil, err
	}
	keyContentInfo, err := encryptedDataContentInfo(keySafe, password, params)
	if err != nil {
		return nil, err
	}

	certContentInfo, err := dataContentInfo(certSafe)
	if err != nil {
		return nil, err
	}

	// AuthenticatedSafe ::= SEQUENCE OF ContentInfo
	var as cryptobyte.Builder
	as.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(certContentInfo)
		b.AddBytes(keyContentInfo)
	})
	authSafe, err := as.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to build authenticated safe: %w", err)
	}
	defer clear(authSafe)

	macData, err := buildMacData(authSafe, password, params)
	if err != nil {
		return nil, err
	}

	// PFX ::= SEQUENCE { version, authSafe ContentInfo, macData MacData OPTIONAL }
	var pfx cryptobyte.Builder
	pfx.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(pfxVersion)
		addDataContentInfo(b, authSafe)
		b.AddBytes(macData)
	})
	out, err := pfx.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to build PFX: %w", err)
	}
	return out, nil
}

// encodePasswordless writes the certificate and a plain keyBag, both in
// unencrypted safes, with no MAC.
func encodePasswordless(certDER []byte, key crypto.PrivateKey) ([]byte, error) {
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to parse certificate: %w", err)
	}
	pfx, err := gopkcs12.Passwordless.Encode(key, cert, nil, "")
	if err != nil {
		return nil, fmt.Errorf("pkcs12: %w", err)
	}
	return pfx, nil
}

// certSafeContents holds one CertBag with an X.509 certificate.
func certSafeContents(certDER, localKeyID []byte) ([]byte, error) {
	var cb cryptobyte.Builder
	cb.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(OIDCertTypeX509)
		b.AddASN1(tagExplicit0, func(b *cryptobyte.Builder) {
			b.AddASN1OctetString(certDER)
		})
	})
	certBag, err := cb.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to build cert bag: %w", err)
	}
	return safeContents(OIDCertBag, certBag, localKeyID)
}

// safeContents holds a single SafeBag.
//
//	SafeBag ::= SEQUENCE {
//	    bagId          OBJECT IDENTIFIER,
//	    bagValue       [0] EXPLICIT ANY,
//	    bagAttributes  SET OF PKCS12Attribute OPTIONAL }
func safeContents(bagID asn1.ObjectIdentifier, value, localKeyID []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(bagID)
			b.AddASN1(tagExplicit0, func(b *cryptobyte.Builder) {
				b.AddBytes(value)
			})
			b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(OIDLocalKeyID)
					b.AddASN1(cbasn1.SET, func(b *cryptobyte.Builder) {
						b.AddASN1OctetString(localKeyID)
					})
				})
			})
		})
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to build safe contents: %w", err)
	}
	return out, nil
}

func addDataContentInfo(b *cryptobyte.Builder, content []byte) {
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(OIDData)
		b.AddASN1(tagExplicit0, func(b *cryptobyte.Builder) {
			b.AddASN1OctetString(content)
		})
	})
}

func dataContentInfo(content []byte) ([]byte, error) {
	var b cryptobyte.Builder
	addDataContentInfo(&b, content)
	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to build data content: %w", err)
	}
	return out, nil
}

// encryptedDataContentInfo encrypts content under password.
//
//	EncryptedData ::= SEQUENCE {
//	    version               INTEGER (0),
//	    encryptedContentInfo  SEQUENCE {
//	        contentType                 OBJECT IDENTIFIER (data),
//	        contentEncryptionAlgorithm  AlgorithmIdentifier,
//	        encryptedContent            [0] IMPLICIT OCTET STRING } }
func encryptedDataContentInfo(content []byte, password string, params pbe.Parameters) ([]byte, error) {
	algID, ciphertext, err := pbe.Encrypt(params, password, content)
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to encrypt safe contents: %w", err)
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(OIDEncryptedData)
		b.AddASN1(tagExplicit0, func(b *cryptobyte.Builder) {
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1Int64(0)
				b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(OIDData)
					b.AddBytes(algID)
					b.AddASN1(tagImplicit0, func(b *cryptobyte.Builder) {
						b.AddBytes(ciphertext)
					})
				})
			})
		})
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to build encrypted data: %w", err)
	}
	return out, nil
}

// buildMacData computes the integrity MAC over the authenticated safe.
//
//	MacData ::= SEQUENCE {
//	    mac         DigestInfo,
//	    macSalt     OCTET STRING,
//	    iterations  INTEGER DEFAULT 1 }
func buildMacData(authSafe []byte, password string, params pbe.Parameters) ([]byte, error) {
	var digestOID asn1.ObjectIdentifier
	switch params.MACHash {
	case crypto.SHA1:
		digestOID = OIDSHA1
	case crypto.SHA256:
		digestOID = OIDSHA256
	default:
		return nil, fmt.Errorf("%w: MAC hash %v", pbe.ErrInvalidParameters, params.MACHash)
	}

	salt := make([]byte, params.SaltSize)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, fmt.Errorf("pkcs12: failed to generate MAC salt: %w", err)
	}

	mac, err := pbe.PKCS12MAC(params.MACHash, password, salt, params.Iterations, authSafe)
	if err != nil {
		return nil, fmt.Errorf("pkcs12: failed to compute MAC: %w", err)
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(digestOID)
				b.AddASN1NULL()
			})
			b.AddASN1OctetString(mac)
		})
		b.AddASN1OctetString(salt)
		if params.Iterations != 1 {
			b.AddASN1Int64(int64(params.Iterations))
		}
	})
	return b.Bytes()
}
