// Package certgen runs the generate, sign and export pipeline that turns a
// key description and a subject profile into a CSR or self-signed
// certificate file.
package certgen

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/profile"
	"github.com/remiblancher/certgen/internal/x509util"
)

// ExportType is the container format of the output file.
type ExportType int

const (
	ExportPEM ExportType = iota + 1
	ExportPKCS12
)

// ExportTypes lists the export types in menu order.
func ExportTypes() []ExportType {
	return []ExportType{ExportPEM, ExportPKCS12}
}

func (e ExportType) String() string {
	switch e {
	case ExportPEM:
		return "pem"
	case ExportPKCS12:
		return "pkcs12"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// ParseExportType parses "pem" or "pkcs12" ("pfx" and "p12" are accepted).
func ParseExportType(s string) (ExportType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pem":
		return ExportPEM, nil
	case "pkcs12", "pfx", "p12":
		return ExportPKCS12, nil
	default:
		return 0, fmt.Errorf("unknown export type %q", s)
	}
}

// ExportTypeFor returns the export type a generate type allows when the
// operator asked for want. Requests are always written as PEM.
func ExportTypeFor(mode x509util.GenerateType, want ExportType) ExportType {
	if mode == x509util.CertificateRequest {
		return ExportPEM
	}
	return want
}

// Request is a fully specified generation run.
type Request struct {
	GenerateType x509util.GenerateType
	ProfileKind  profile.Kind
	Profile      *profile.CertificateProfile
	Algorithm    crypto.KeyAlgorithm

	// ValidityDays is required for self-signed certificates and ignored for requests.
	ValidityDays int

	ExportType ExportType
	Password   pbe.PasswordPolicy

	// PBE protects the private key when Password is a Secret.
	// The zero value selects pbe.Default().
	PBE pbe.Parameters

	// Destination must not exist. It is created with mode 0600.
	Destination string

	// SkipExportCheck disables decoding the encoded output again before it
	// is written.
	SkipExportCheck bool
}

// Parameters returns the effective PBE parameters.
func (r *Request) Parameters() pbe.Parameters {
	if r.PBE == (pbe.Parameters{}) {
		return pbe.Default()
	}
	return r.PBE
}

// validate returns an *Error classified as unsupported algorithm or
// configuration error. now is the signing clock, used to check that the
// validity window can be encoded.
func (r *Request) validate(now time.Time) error {
	if r.Algorithm == nil {
		return &Error{Op: "validate", Err: fmt.Errorf("%w: no key algorithm", ErrUnsupportedAlgorithm)}
	}
	if err := r.Algorithm.Validate(); err != nil {
		return &Error{Op: "validate", Err: err}
	}

	if !r.GenerateType.IsValid() {
		return configurationError("validate", x509util.ErrUnknownGenerateType)
	}
	if r.Profile == nil {
		return configurationError("validate", errors.New("no certificate profile"))
	}
	if err := r.Profile.Validate(); err != nil {
		return configurationError("validate", err)
	}

	switch r.ExportType {
	case ExportPEM:
	case ExportPKCS12:
		if r.GenerateType == x509util.CertificateRequest {
			return configurationError("validate", errors.New("a certificate request can only be exported as PEM"))
		}
	default:
		return configurationError("validate", fmt.Errorf("unknown export type %s", r.ExportType))
	}

	if r.GenerateType == x509util.SelfSignedCertificate {
		if _, _, err := x509util.ValidityWindow(now, r.ValidityDays); err != nil {
			return configurationError("validate", err)
		}
	}

	_, encrypted, err := pbe.Password(r.Password)
	if err != nil {
		return configurationError("validate", err)
	}
	if encrypted {
		if err := r.Parameters().Validate(); err != nil {
			return configurationError("validate", err)
		}
	}

	if strings.TrimSpace(r.Destination) == "" {
		return configurationError("validate", errors.New("no destination path"))
	}
	return nil
}
