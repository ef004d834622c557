// Package profile builds the certificate subject profile: the common name,
// the DNS names to list as Subject Alternative Names and the Extended Key
// Usage purposes.
package profile

import (
	"encoding/asn1"
	"fmt"
	"strings"
)

// Kind is a preset certificate profile.
type Kind int

const (
	KindHTTPS Kind = iota + 1
	KindCodeSigning
	KindCustom
)

// Kinds lists the presets in menu order.
func Kinds() []Kind {
	return []Kind{KindHTTPS, KindCodeSigning, KindCustom}
}

// String returns the identifier used on the command line.
func (k Kind) String() string {
	switch k {
	case KindHTTPS:
		return "https"
	case KindCodeSigning:
		return "code-signing"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseKind parses a profile identifier.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "https", "tls", "tls-server":
		return KindHTTPS, nil
	case "code-signing", "codesigning":
		return KindCodeSigning, nil
	case "custom":
		return KindCustom, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrProfileNotFound, s)
	}
}

// CertificateProfile is the subject side of a certificate: who it is for and
// what it may be used for.
type CertificateProfile struct {
	// CommonName is placed in the subject as CN=<CommonName>.
	CommonName string

	// DNSNames are unique (case-insensitive) and kept in entry order.
	DNSNames []string

	// ExtKeyUsages are the EKU purposes, in entry order.
	ExtKeyUsages []asn1.ObjectIdentifier
}

// DefaultWildcardPolicy allows a leftmost wildcard but never on a public suffix.
var DefaultWildcardPolicy = &WildcardPolicy{Allowed: true, ForbidPublicSuffix: true}

// NewHTTPSProfile returns a TLS server profile for the given DNS names.
// The common name is the first entered name and the EKUs are serverAuth and
// clientAuth.
func NewHTTPSProfile(dnsNames []string) (*CertificateProfile, error) {
	names := UniqueNames(dnsNames)
	if len(names) == 0 {
		return nil, NewValidationError("dns", "", "at least one DNS name is required")
	}

	p := &CertificateProfile{
		CommonName:   names[0],
		DNSNames:     names,
		ExtKeyUsages: []asn1.ObjectIdentifier{OIDExtKeyUsageServerAuth, OIDExtKeyUsageClientAuth},
	}
	if err := p.Validate(); err != nil {
		return nil, NewProfileError(KindHTTPS.String(), err)
	}
	return p, nil
}

// NewCodeSigningProfile returns a code signing profile. It carries no SANs.
func NewCodeSigningProfile(commonName string) (*CertificateProfile, error) {
	p := &CertificateProfile{
		CommonName:   strings.TrimSpace(commonName),
		ExtKeyUsages: []asn1.ObjectIdentifier{OIDExtKeyUsageCodeSigning},
	}
	if err := p.Validate(); err != nil {
		return nil, NewProfileError(KindCodeSigning.String(), err)
	}
	return p, nil
}

// NewCustomProfile returns a profile with an operator chosen common name,
// optional DNS names and EKU purposes.
func NewCustomProfile(commonName string, dnsNames []string, ekus []asn1.ObjectIdentifier) (*CertificateProfile, error) {
	p := &CertificateProfile{
		CommonName:   strings.TrimSpace(commonName),
		DNSNames:     UniqueNames(dnsNames),
		ExtKeyUsages: uniqueOIDs(ekus),
	}
	if err := p.Validate(); err != nil {
		return nil, NewProfileError(KindCustom.String(), err)
	}
	return p, nil
}

// Validate checks the common name and every DNS name.
func (p *CertificateProfile) Validate() error {
	if p.CommonName == "" {
		return NewValidationError("cn", "", "common name cannot be empty")
	}
	for _, name := range p.DNSNames {
		if err := ValidateDNSName(name); err != nil {
			return NewValidationError("dns", name, err.Error())
		}
		if err := ValidateWildcard(name, DefaultWildcardPolicy); err != nil {
			return NewValidationError("dns", name, err.Error())
		}
	}
	return nil
}

// UniqueNames trims the names, drops empty entries and removes names that
// repeat an earlier one case-insensitively. The first spelling wins and
// entry order is kept.
func UniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := NormalizeDNSName(n)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

func uniqueOIDs(oids []asn1.ObjectIdentifier) []asn1.ObjectIdentifier {
	out := make([]asn1.ObjectIdentifier, 0, len(oids))
	for _, oid := range oids {
		dup := false
		for _, have := range out {
			if have.Equal(oid) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, oid)
		}
	}
	return out
}
