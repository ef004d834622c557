package x509util

import (
	"errors"
	"fmt"
	"strings"
)

// GenerateType selects what the signing step produces.
type GenerateType int

const (
	// CertificateRequest produces a PKCS#10 certificate signing request.
	CertificateRequest GenerateType = iota + 1
	// SelfSignedCertificate produces a certificate signed by its own key.
	SelfSignedCertificate
)

// GenerateTypes lists the generation modes in menu order.
func GenerateTypes() []GenerateType {
	return []GenerateType{CertificateRequest, SelfSignedCertificate}
}

// IsValid reports whether t is a known generation mode.
func (t GenerateType) IsValid() bool {
	return t == CertificateRequest || t == SelfSignedCertificate
}

func (t GenerateType) String() string {
	switch t {
	case CertificateRequest:
		return "csr"
	case SelfSignedCertificate:
		return "self-signed"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseGenerateType parses "csr" or "self-signed".
func ParseGenerateType(s string) (GenerateType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csr", "request", "certificate-request":
		return CertificateRequest, nil
	case "self-signed", "selfsigned", "certificate":
		return SelfSignedCertificate, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGenerateType, s)
	}
}

var (
	// ErrUnknownGenerateType indicates a generation mode outside GenerateTypes.
	ErrUnknownGenerateType = errors.New("unknown generate type")

	// ErrInvalidValidity indicates a non-positive validity period.
	ErrInvalidValidity = errors.New("validity must be at least one day")

	// ErrModeMismatch indicates a signing call that does not match the draft's mode.
	ErrModeMismatch = errors.New("signing call does not match generate type")

	// ErrAlreadySigned indicates a draft that has already produced an artifact.
	ErrAlreadySigned = errors.New("draft has already been signed")
)
