package certgen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/remiblancher/certgen/internal/audit"
	"github.com/remiblancher/certgen/internal/credential"
	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/pkcs12"
	"github.com/remiblancher/certgen/internal/x509util"
)

// Generator runs requests. The zero value is ready to use.
type Generator struct {
	// Logger receives technical logs. Nil discards them.
	Logger *zap.Logger

	// Now is the signing clock. Nil means time.Now.
	Now func() time.Time

	// Rand is the key generation randomness. Nil means crypto/rand.
	Rand io.Reader
}

// Result summarizes a written artifact. It holds no key material.
type Result struct {
	Path         string
	GenerateType x509util.GenerateType
	ExportType   ExportType
	Subject      string
	DNSNames     []string
	Algorithm    string

	// Serial, NotBefore and NotAfter are set for self-signed certificates.
	Serial    string
	NotBefore time.Time
	NotAfter  time.Time

	Encrypted bool
	PBE       pbe.Parameters
	Size      int
}

// CompatibilityDefault reports whether the key was protected with the
// default, interoperable PBE parameters.
func (r *Result) CompatibilityDefault() bool {
	return r.Encrypted && r.PBE.IsCompatibilityDefault()
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *Generator) generateKey(alg crypto.KeyAlgorithm) (*crypto.KeyPair, error) {
	if g.Rand == nil {
		return crypto.GenerateKeyPair(alg)
	}
	return crypto.GenerateKeyPairWithRand(g.Rand, alg)
}

// Run generates a key, signs the artifact, encodes it and writes it to
// req.Destination. The private key is destroyed on every return path.
func (g *Generator) Run(req *Request) (*Result, error) {
	log := g.logger()
	now := g.now()

	if err := req.validate(now); err != nil {
		return nil, err
	}
	params := req.Parameters()
	password, encrypted, _ := pbe.Password(req.Password)

	log.Debug("generating key pair", zap.Stringer("algorithm", req.Algorithm))
	kp, err := g.generateKey(req.Algorithm)
	if auditErr := audit.LogKeyGenerated(req.Algorithm.String(), err); auditErr != nil {
		if kp != nil {
			kp.Destroy()
		}
		return nil, &Error{Op: "audit", Err: auditErr}
	}
	if err != nil {
		return nil, &Error{Op: "generate-key", Err: err}
	}
	defer kp.Destroy()

	artifact, err := g.sign(req, kp, now)
	if err != nil {
		return nil, err
	}

	data, err := g.encode(req, artifact, params)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(data)

	if !req.SkipExportCheck {
		if err := verifyEncoded(req.ExportType, data, artifact, password); err != nil {
			return nil, exportError(fmt.Errorf("self-check: %w", err))
		}
		log.Debug("export self-check passed", zap.Stringer("format", req.ExportType))
	}

	result := &Result{
		Path:         req.Destination,
		GenerateType: req.GenerateType,
		ExportType:   req.ExportType,
		Subject:      "CN=" + req.Profile.CommonName,
		DNSNames:     req.Profile.DNSNames,
		Algorithm:    req.Algorithm.String(),
		Encrypted:    encrypted,
		Size:         len(data),
	}
	if encrypted {
		result.PBE = params
	}
	if cert, ok := artifact.(*x509util.SignedCertificate); ok {
		result.Serial = fmt.Sprintf("%x", cert.Certificate.SerialNumber)
		result.NotBefore = cert.NotBefore
		result.NotAfter = cert.NotAfter
	}

	writeErr := writeCreateOnly(req.Destination, data)
	pbeDesc := ""
	if encrypted {
		pbeDesc = params.String()
	}
	if auditErr := audit.LogArtifactExported(req.Destination, result.Subject, req.ExportType.String(), encrypted, pbeDesc, writeErr); auditErr != nil {
		return nil, &Error{Op: "audit", Err: auditErr}
	}
	if writeErr != nil {
		return nil, &Error{Op: "write", Err: writeErr}
	}

	log.Info("artifact written",
		zap.String("path", result.Path),
		zap.Stringer("type", req.GenerateType),
		zap.Stringer("format", req.ExportType),
		zap.String("subject", result.Subject),
		zap.Bool("encrypted", encrypted),
		zap.Int("bytes", result.Size))
	return result, nil
}

func (g *Generator) sign(req *Request, kp *crypto.KeyPair, now time.Time) (x509util.Artifact, error) {
	draft, err := x509util.NewDraft(req.Profile, req.GenerateType, kp)
	if err != nil {
		return nil, configurationError("sign", err)
	}

	artifact, err := draft.Sign(now, req.ValidityDays)
	subject := "CN=" + req.Profile.CommonName
	kind := ""
	if req.ProfileKind != 0 {
		kind = req.ProfileKind.String()
	}
	alg := req.Algorithm.String()

	var auditErr error
	switch {
	case err != nil && req.GenerateType == x509util.SelfSignedCertificate:
		auditErr = audit.LogCertSelfSigned("", subject, kind, alg, "", req.Profile.DNSNames, err)
	case err != nil:
		auditErr = audit.LogCSRCreated(subject, kind, alg, req.Profile.DNSNames, err)
	default:
		switch a := artifact.(type) {
		case *x509util.SignedCertificate:
			auditErr = audit.LogCertSelfSigned(fmt.Sprintf("%x", a.Certificate.SerialNumber), subject, kind,
				alg, a.NotAfter.Format(time.RFC3339), req.Profile.DNSNames, nil)
		case *x509util.SignedRequest:
			auditErr = audit.LogCSRCreated(subject, kind, alg, req.Profile.DNSNames, nil)
		}
	}
	if auditErr != nil {
		return nil, &Error{Op: "audit", Err: auditErr}
	}

	if err != nil {
		if errors.Is(err, x509util.ErrInvalidValidity) || errors.Is(err, x509util.ErrModeMismatch) {
			return nil, configurationError("sign", err)
		}
		return nil, &Error{Op: "sign", Err: err}
	}

	g.logger().Debug("artifact signed",
		zap.Stringer("type", req.GenerateType),
		zap.String("subject", subject),
		zap.Strings("dns_names", req.Profile.DNSNames))
	return artifact, nil
}

func (g *Generator) encode(req *Request, artifact x509util.Artifact, params pbe.Parameters) ([]byte, error) {
	switch req.ExportType {
	case ExportPEM:
		data, err := credential.EncodeArtifactPEM(artifact, req.Password, params)
		if err != nil {
			return nil, exportError(err)
		}
		return data, nil

	case ExportPKCS12:
		cert, ok := artifact.(*x509util.SignedCertificate)
		if !ok {
			return nil, exportError(errors.New("only a certificate can be exported as PKCS#12"))
		}
		priv, err := cert.Key.PrivateKey()
		if err != nil {
			return nil, exportError(err)
		}
		data, err := pkcs12.Encode(cert.Raw, priv, req.Password, params)
		if err != nil {
			return nil, exportError(err)
		}
		return data, nil

	default:
		return nil, exportError(fmt.Errorf("unknown export type %s", req.ExportType))
	}
}

// verifyEncoded decodes data again and checks it carries artifact and its key.
func verifyEncoded(format ExportType, data []byte, artifact x509util.Artifact, password string) error {
	switch format {
	case ExportPEM:
		return credential.VerifyArtifactPEM(data, artifact, password)
	case ExportPKCS12:
		priv, cert, err := pkcs12.Decode(data, password)
		if err != nil {
			return err
		}
		if !bytes.Equal(cert.Raw, artifact.DER()) {
			return errors.New("decoded certificate differs")
		}
		return credential.MatchPublicKey(priv, artifact.KeyPair().Public())
	default:
		return fmt.Errorf("unknown export type %s", format)
	}
}

// writeCreateOnly writes data to a new file. An existing path is never
// overwritten and a partially written file is left in place.
func writeCreateOnly(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
