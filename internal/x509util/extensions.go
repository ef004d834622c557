package x509util

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/profile"
)

// basicConstraints mirrors the RFC 5280 BasicConstraints structure.
//
//	BasicConstraints ::= SEQUENCE {
//	    cA                      BOOLEAN DEFAULT FALSE,
//	    pathLenConstraint       INTEGER (0..MAX) OPTIONAL }
type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// KeyUsageFor returns the Key Usage flags for a generation mode and algorithm:
// digitalSignature always, keyAgreement for RSA keys, keyCertSign for
// self-signed certificates.
func KeyUsageFor(mode GenerateType, alg crypto.KeyAlgorithm) x509.KeyUsage {
	usage := x509.KeyUsageDigitalSignature
	if alg != nil && alg.Type() == crypto.KeyTypeRSA {
		usage |= x509.KeyUsageKeyAgreement
	}
	if mode == SelfSignedCertificate {
		usage |= x509.KeyUsageCertSign
	}
	return usage
}

// AssembleExtensions returns the extensions for the request, in emission order:
//
//  1. Subject Alternative Name, when the profile has DNS names
//  2. Extended Key Usage, when the profile has EKU purposes
//  3. Key Usage (see KeyUsageFor)
//  4. Basic Constraints CA:TRUE, pathlen:0, critical, for self-signed certificates
//
// Only Basic Constraints is marked critical.
func AssembleExtensions(p *profile.CertificateProfile, mode GenerateType, alg crypto.KeyAlgorithm) ([]pkix.Extension, error) {
	if p == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGenerateType, mode)
	}

	var exts []pkix.Extension

	if len(p.DNSNames) > 0 {
		ext, err := EncodeSubjectAltName(p.DNSNames)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if len(p.ExtKeyUsages) > 0 {
		ext, err := EncodeExtKeyUsage(p.ExtKeyUsages)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	ku, err := EncodeKeyUsage(KeyUsageFor(mode, alg))
	if err != nil {
		return nil, err
	}
	exts = append(exts, ku)

	if mode == SelfSignedCertificate {
		bc, err := EncodeBasicConstraints(true, 0)
		if err != nil {
			return nil, err
		}
		exts = append(exts, bc)
	}

	return exts, nil
}

// EncodeSubjectAltName encodes DNS names as a non-critical SAN extension,
// keeping their order.
func EncodeSubjectAltName(dnsNames []string) (pkix.Extension, error) {
	names := make([]asn1.RawValue, 0, len(dnsNames))
	for _, name := range dnsNames {
		// dNSName [2] IA5String
		names = append(names, asn1.RawValue{
			Class: asn1.ClassContextSpecific,
			Tag:   2,
			Bytes: []byte(name),
		})
	}

	value, err := asn1.Marshal(names)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("failed to marshal subjectAltName: %w", err)
	}

	return pkix.Extension{Id: OIDExtSubjectAltName, Critical: false, Value: value}, nil
}

// EncodeExtKeyUsage encodes EKU OIDs as a non-critical extension, keeping their order.
func EncodeExtKeyUsage(oids []asn1.ObjectIdentifier) (pkix.Extension, error) {
	value, err := asn1.Marshal(oids)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("failed to marshal extKeyUsage: %w", err)
	}
	return pkix.Extension{Id: OIDExtExtKeyUsage, Critical: false, Value: value}, nil
}

// EncodeKeyUsage encodes Key Usage flags as a non-critical extension.
func EncodeKeyUsage(usage x509.KeyUsage) (pkix.Extension, error) {
	if usage == 0 {
		return pkix.Extension{}, fmt.Errorf("key usage cannot be empty")
	}

	// KeyUsage bit n is bit (7 - n%8) of byte n/8 in the BIT STRING
	var a [2]byte
	a[0] = reverseBits(byte(usage))
	a[1] = reverseBits(byte(usage >> 8))

	l := 1
	if a[1] != 0 {
		l = 2
	}
	bits := a[:l]

	value, err := asn1.Marshal(asn1.BitString{Bytes: bits, BitLength: bitLength(bits)})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("failed to marshal keyUsage: %w", err)
	}
	return pkix.Extension{Id: OIDExtKeyUsage, Critical: false, Value: value}, nil
}

// EncodeBasicConstraints encodes a critical Basic Constraints extension.
// A negative pathLen omits the constraint.
func EncodeBasicConstraints(isCA bool, pathLen int) (pkix.Extension, error) {
	if pathLen < 0 {
		pathLen = -1
	}
	value, err := asn1.Marshal(basicConstraints{IsCA: isCA, MaxPathLen: pathLen})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("failed to marshal basicConstraints: %w", err)
	}
	return pkix.Extension{Id: OIDExtBasicConstraints, Critical: true, Value: value}, nil
}

func reverseBits(in byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		out <<= 1
		out |= in & 1
		in >>= 1
	}
	return out
}

// bitLength returns the DER bit length with trailing zero bits removed.
func bitLength(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if b[i]&(1<<uint(bit)) != 0 {
				return i*8 + 8 - bit
			}
		}
	}
	return 0
}
