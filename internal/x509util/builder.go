package x509util

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/profile"
)

// PEM block labels for the signed artifacts.
const (
	PEMLabelCertificateRequest = "CERTIFICATE REQUEST"
	PEMLabelCertificate        = "CERTIFICATE"
)

// Artifact is the output of signing a Draft. It is either a *SignedRequest
// or a *SignedCertificate.
type Artifact interface {
	// DER returns the signed structure.
	DER() []byte
	// PEMLabel returns the label of the artifact's PEM block.
	PEMLabel() string
	// KeyPair returns the key the artifact was signed with.
	KeyPair() *crypto.KeyPair

	isArtifact()
}

// SignedRequest is a signed PKCS#10 certificate signing request.
type SignedRequest struct {
	Raw     []byte
	Request *x509.CertificateRequest
	Key     *crypto.KeyPair
}

// SignedCertificate is a self-signed X.509 certificate.
type SignedCertificate struct {
	Raw         []byte
	Certificate *x509.Certificate
	Key         *crypto.KeyPair
	NotBefore   time.Time
	NotAfter    time.Time
}

func (*SignedRequest) isArtifact()     {}
func (*SignedCertificate) isArtifact() {}

func (r *SignedRequest) DER() []byte                  { return r.Raw }
func (r *SignedRequest) PEMLabel() string             { return PEMLabelCertificateRequest }
func (r *SignedRequest) KeyPair() *crypto.KeyPair     { return r.Key }
func (c *SignedCertificate) DER() []byte              { return c.Raw }
func (c *SignedCertificate) PEMLabel() string         { return PEMLabelCertificate }
func (c *SignedCertificate) KeyPair() *crypto.KeyPair { return c.Key }

// Draft is the to-be-signed structure: subject, public key and extensions.
// A draft is signed exactly once, into the artifact its mode selects.
type Draft struct {
	Mode               GenerateType
	Subject            pkix.Name
	Extensions         []pkix.Extension
	SignatureAlgorithm x509.SignatureAlgorithm

	key    *crypto.KeyPair
	random io.Reader
	signed bool
}

// NewDraft assembles the to-be-signed structure for the profile and key.
func NewDraft(p *profile.CertificateProfile, mode GenerateType, key *crypto.KeyPair) (*Draft, error) {
	if key == nil {
		return nil, fmt.Errorf("key pair is required")
	}
	alg := key.Algorithm()

	exts, err := AssembleExtensions(p, mode, alg)
	if err != nil {
		return nil, err
	}

	sigAlg := alg.SignatureAlgorithm()
	if sigAlg == x509.UnknownSignatureAlgorithm {
		return nil, fmt.Errorf("%w: no signature algorithm for %s", crypto.ErrUnsupportedAlgorithm, alg)
	}

	return &Draft{
		Mode:               mode,
		Subject:            pkix.Name{CommonName: p.CommonName},
		Extensions:         exts,
		SignatureAlgorithm: sigAlg,
		key:                key,
		random:             rand.Reader,
	}, nil
}

// Sign produces the artifact for the draft's mode. validityDays is only
// used for self-signed certificates.
func (d *Draft) Sign(now time.Time, validityDays int) (Artifact, error) {
	switch d.Mode {
	case CertificateRequest:
		return d.SignRequest()
	case SelfSignedCertificate:
		return d.SelfSign(now, validityDays)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownGenerateType, d.Mode)
	}
}

// SignRequest signs the draft as a certificate signing request. The
// extensions are carried in the extensionRequest attribute.
func (d *Draft) SignRequest() (*SignedRequest, error) {
	if d.Mode != CertificateRequest {
		return nil, fmt.Errorf("%w: draft is %s", ErrModeMismatch, d.Mode)
	}
	if d.signed {
		return nil, ErrAlreadySigned
	}

	signer, err := d.key.Signer()
	if err != nil {
		return nil, err
	}

	template := &x509.CertificateRequest{
		Subject:            d.Subject,
		SignatureAlgorithm: d.SignatureAlgorithm,
		ExtraExtensions:    d.Extensions,
	}

	der, err := x509.CreateCertificateRequest(d.random, template, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate request: %w", err)
	}
	d.signed = true

	return &SignedRequest{Raw: der, Request: csr, Key: d.key}, nil
}

// SelfSign signs the draft with its own key. The certificate is valid from
// now (UTC, truncated to the second) for validityDays whole days.
func (d *Draft) SelfSign(now time.Time, validityDays int) (*SignedCertificate, error) {
	if d.Mode != SelfSignedCertificate {
		return nil, fmt.Errorf("%w: draft is %s", ErrModeMismatch, d.Mode)
	}
	notBefore, notAfter, err := ValidityWindow(now, validityDays)
	if err != nil {
		return nil, err
	}
	if d.signed {
		return nil, ErrAlreadySigned
	}

	signer, err := d.key.Signer()
	if err != nil {
		return nil, err
	}

	serial, err := generateSerialNumber(d.random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	// Key usage, basic constraints and SANs are left out of the template
	// fields so that only ExtraExtensions are emitted, in their order.
	template := &x509.Certificate{
		SerialNumber:       serial,
		Subject:            d.Subject,
		NotBefore:          notBefore,
		NotAfter:           notAfter,
		SignatureAlgorithm: d.SignatureAlgorithm,
		ExtraExtensions:    d.Extensions,
	}

	der, err := x509.CreateCertificate(d.random, template, template, signer.Public(), signer)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	d.signed = true

	return &SignedCertificate{
		Raw:         der,
		Certificate: cert,
		Key:         d.key,
		NotBefore:   notBefore,
		NotAfter:    notAfter,
	}, nil
}

// maxNotAfter is the last instant a GeneralizedTime can carry.
var maxNotAfter = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// ValidityWindow returns notBefore = now in UTC truncated to the second and
// notAfter = notBefore plus days calendar days. A window that is empty or
// ends after 9999-12-31 is rejected with ErrInvalidValidity.
func ValidityWindow(now time.Time, days int) (time.Time, time.Time, error) {
	if days <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: got %d", ErrInvalidValidity, days)
	}
	notBefore := now.UTC().Truncate(time.Second)

	// compare whole days on Unix seconds so that huge counts never reach AddDate
	if int64(days) > (maxNotAfter.Unix()-notBefore.Unix())/secondsPerDay {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d days from %s ends after %s",
			ErrInvalidValidity, days, notBefore.Format(time.DateOnly), maxNotAfter.Format(time.DateOnly))
	}
	notAfter := notBefore.AddDate(0, 0, days)
	if !notAfter.After(notBefore) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: not after %s precedes not before %s",
			ErrInvalidValidity, notAfter, notBefore)
	}
	return notBefore, notAfter, nil
}

const secondsPerDay = 24 * 60 * 60

// generateSerialNumber returns a random positive 127-bit serial.
func generateSerialNumber(random io.Reader) (*big.Int, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 127)
	serial, err := rand.Int(random, serialNumberLimit)
	if err != nil {
		return nil, err
	}
	return serial.Add(serial, big.NewInt(1)), nil
}
