package cli

import (
	"bytes"
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/remiblancher/certgen/internal/credential"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/pkcs12"
	"github.com/remiblancher/certgen/internal/profile"
	"github.com/remiblancher/certgen/internal/x509util"
)

// keyUsageNames maps KeyUsage bits to their string names.
var keyUsageNames = []struct {
	bit  x509.KeyUsage
	name string
}{
	{x509.KeyUsageDigitalSignature, "digitalSignature"},
	{x509.KeyUsageContentCommitment, "contentCommitment"},
	{x509.KeyUsageKeyEncipherment, "keyEncipherment"},
	{x509.KeyUsageDataEncipherment, "dataEncipherment"},
	{x509.KeyUsageKeyAgreement, "keyAgreement"},
	{x509.KeyUsageCertSign, "keyCertSign"},
	{x509.KeyUsageCRLSign, "cRLSign"},
	{x509.KeyUsageEncipherOnly, "encipherOnly"},
	{x509.KeyUsageDecipherOnly, "decipherOnly"},
}

// KeyUsageNames converts KeyUsage flags to a list of string names.
func KeyUsageNames(ku x509.KeyUsage) []string {
	var result []string
	for _, item := range keyUsageNames {
		if ku&item.bit != 0 {
			result = append(result, item.name)
		}
	}
	return result
}

// extKeyUsageNames maps ExtKeyUsage values to their string names.
var extKeyUsageNames = map[x509.ExtKeyUsage]string{
	x509.ExtKeyUsageServerAuth:      "serverAuth",
	x509.ExtKeyUsageClientAuth:      "clientAuth",
	x509.ExtKeyUsageCodeSigning:     "codeSigning",
	x509.ExtKeyUsageEmailProtection: "emailProtection",
	x509.ExtKeyUsageTimeStamping:    "timeStamping",
	x509.ExtKeyUsageOCSPSigning:     "OCSPSigning",
}

// extKeyUsageOIDs maps the EKU OIDs a request can carry to x509 values.
var extKeyUsageOIDs = []struct {
	oid asn1.ObjectIdentifier
	eku x509.ExtKeyUsage
}{
	{profile.OIDExtKeyUsageServerAuth, x509.ExtKeyUsageServerAuth},
	{profile.OIDExtKeyUsageClientAuth, x509.ExtKeyUsageClientAuth},
	{profile.OIDExtKeyUsageCodeSigning, x509.ExtKeyUsageCodeSigning},
	{profile.OIDExtKeyUsageEmailProtection, x509.ExtKeyUsageEmailProtection},
	{profile.OIDExtKeyUsageTimeStamping, x509.ExtKeyUsageTimeStamping},
	{profile.OIDExtKeyUsageOCSPSigning, x509.ExtKeyUsageOCSPSigning},
}

// splitExtKeyUsages separates known EKU OIDs from unknown ones.
func splitExtKeyUsages(oids []asn1.ObjectIdentifier) ([]x509.ExtKeyUsage, []asn1.ObjectIdentifier) {
	var (
		known   []x509.ExtKeyUsage
		unknown []asn1.ObjectIdentifier
	)
next:
	for _, oid := range oids {
		for _, item := range extKeyUsageOIDs {
			if oid.Equal(item.oid) {
				known = append(known, item.eku)
				continue next
			}
		}
		unknown = append(unknown, oid)
	}
	return known, unknown
}

// ExtKeyUsageNames converts ExtKeyUsage values to a list of string names.
func ExtKeyUsageNames(ekus []x509.ExtKeyUsage, unknown []asn1.ObjectIdentifier) []string {
	var result []string
	for _, eku := range ekus {
		if name, ok := extKeyUsageNames[eku]; ok {
			result = append(result, name)
		}
	}
	for _, oid := range unknown {
		result = append(result, oid.String())
	}
	return result
}

// PublicKeyLabel describes a public key as "RSA 2048 bit" or "ECDSA P-256".
func PublicKeyLabel(pub stdcrypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("RSA %d bit", k.N.BitLen())
	case *ecdsa.PublicKey:
		return "ECDSA " + k.Curve.Params().Name
	default:
		return fmt.Sprintf("%T", pub)
	}
}

// requestExtensions decodes the key usages carried by a CSR.
func requestExtensions(csr *x509.CertificateRequest) (x509.KeyUsage, []asn1.ObjectIdentifier, bool) {
	var (
		usage x509.KeyUsage
		ekus  []asn1.ObjectIdentifier
		isCA  bool
	)
	for _, ext := range csr.Extensions {
		switch {
		case ext.Id.Equal(x509util.OIDExtKeyUsage):
			var bits asn1.BitString
			if _, err := asn1.Unmarshal(ext.Value, &bits); err == nil {
				for i := 0; i < 9; i++ {
					if bits.At(i) != 0 {
						usage |= 1 << uint(i)
					}
				}
			}
		case ext.Id.Equal(x509util.OIDExtExtKeyUsage):
			_, _ = asn1.Unmarshal(ext.Value, &ekus)
		case ext.Id.Equal(x509util.OIDExtBasicConstraints):
			isCA = true
		}
	}
	return usage, ekus, isCA
}

func writeField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %-18s %s\n", name+":", value)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// DescribeCertificate writes a summary of a certificate.
func DescribeCertificate(w io.Writer, cert *x509.Certificate) {
	fmt.Fprintln(w, "Certificate:")
	writeField(w, "Subject", cert.Subject.String())
	writeField(w, "Issuer", cert.Issuer.String())
	writeField(w, "Serial", fmt.Sprintf("%x", cert.SerialNumber))
	writeField(w, "Not Before", cert.NotBefore.UTC().Format(time.RFC3339))
	writeField(w, "Not After", cert.NotAfter.UTC().Format(time.RFC3339))
	writeField(w, "Signature", cert.SignatureAlgorithm.String())
	writeField(w, "Public Key", PublicKeyLabel(cert.PublicKey))
	writeField(w, "DNS Names", joinOrNone(cert.DNSNames))
	writeField(w, "Key Usage", joinOrNone(KeyUsageNames(cert.KeyUsage)))
	writeField(w, "Ext Key Usage", joinOrNone(ExtKeyUsageNames(cert.ExtKeyUsage, cert.UnknownExtKeyUsage)))
	if cert.BasicConstraintsValid {
		writeField(w, "CA", fmt.Sprintf("%t (path length %s)", cert.IsCA, formatPathLen(cert)))
	}

	status := "valid"
	now := time.Now()
	if now.After(cert.NotAfter) || now.Before(cert.NotBefore) {
		status = "expired"
	}
	writeField(w, "Status", FormatStatus(status))
}

// formatPathLen formats the path length constraint for display.
func formatPathLen(cert *x509.Certificate) string {
	if !cert.IsCA {
		return ""
	}
	if cert.MaxPathLen >= 0 && cert.MaxPathLenZero {
		return "0"
	}
	if cert.MaxPathLen >= 0 {
		return fmt.Sprintf("%d", cert.MaxPathLen)
	}
	return "unlimited"
}

// DescribeRequest writes a summary of a certificate signing request.
func DescribeRequest(w io.Writer, csr *x509.CertificateRequest) {
	usage, ekus, isCA := requestExtensions(csr)
	ekuNames := ExtKeyUsageNames(splitExtKeyUsages(ekus))

	signature := "valid"
	if err := csr.CheckSignature(); err != nil {
		signature = "invalid"
	}

	fmt.Fprintln(w, "Certificate Request:")
	writeField(w, "Subject", csr.Subject.String())
	writeField(w, "Signature", fmt.Sprintf("%s (%s)", csr.SignatureAlgorithm, FormatStatus(signature)))
	writeField(w, "Public Key", PublicKeyLabel(csr.PublicKey))
	writeField(w, "DNS Names", joinOrNone(csr.DNSNames))
	writeField(w, "Key Usage", joinOrNone(KeyUsageNames(usage)))
	writeField(w, "Ext Key Usage", joinOrNone(ekuNames))
	if isCA {
		writeField(w, "CA", "true")
	}
}

// pkcs12OIDNames names the algorithms and bag types found in a PFX.
var pkcs12OIDNames = []struct {
	oid  asn1.ObjectIdentifier
	name string
}{
	{pkcs12.OIDSHA1, "sha1"},
	{pkcs12.OIDSHA256, "sha256"},
	{pkcs12.OIDKeyBag, "keyBag"},
	{pkcs12.OIDPKCS8ShroudedKeyBag, "pkcs8ShroudedKeyBag"},
	{pkcs12.OIDCertBag, "certBag"},
	{pbe.OIDPBEWithSHAAnd3KeyTripleDESCBC, "pbeWithSHAAnd3-KeyTripleDES-CBC"},
	{pbe.OIDPBES2, "PBES2"},
}

func pkcs12OIDName(oid asn1.ObjectIdentifier) string {
	for _, item := range pkcs12OIDNames {
		if oid.Equal(item.oid) {
			return item.name
		}
	}
	return oid.String()
}

func describeKey(w io.Writer, label string, priv stdcrypto.PrivateKey) {
	fmt.Fprintln(w, "Private Key:")
	writeField(w, "Format", label)
	if signer, ok := priv.(stdcrypto.Signer); ok {
		writeField(w, "Algorithm", PublicKeyLabel(signer.Public()))
	}
}

// Describe decodes a PEM or PKCS#12 file and writes a summary of its content.
// Encrypted keys are only decrypted when password is not empty.
func Describe(w io.Writer, data []byte, password string) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		return describePEM(w, data, password)
	}
	return describePKCS12(w, data, password)
}

func describePEM(w io.Writer, data []byte, password string) error {
	blocks, err := credential.DecodePEM(data)
	if err != nil {
		return err
	}

	for i, block := range blocks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		switch block.Type {
		case x509util.PEMLabelCertificate:
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return fmt.Errorf("failed to parse certificate: %w", err)
			}
			DescribeCertificate(w, cert)
		case x509util.PEMLabelCertificateRequest:
			csr, err := x509.ParseCertificateRequest(block.Bytes)
			if err != nil {
				return fmt.Errorf("failed to parse certificate request: %w", err)
			}
			DescribeRequest(w, csr)
		case credential.PEMTypePrivateKey, credential.PEMTypeEncryptedPrivateKey:
			if block.Type == credential.PEMTypeEncryptedPrivateKey && password == "" {
				fmt.Fprintln(w, "Private Key:")
				writeField(w, "Format", "PKCS#8, encrypted (password required)")
				continue
			}
			priv, err := credential.ParsePrivateKeyBlock(block, password)
			if err != nil {
				return fmt.Errorf("failed to read private key: %w", err)
			}
			format := "PKCS#8"
			if block.Type == credential.PEMTypeEncryptedPrivateKey {
				format = "PKCS#8, encrypted"
			}
			describeKey(w, format, priv)
		default:
			fmt.Fprintf(w, "Unsupported PEM block %q\n", block.Type)
		}
	}
	return nil
}

func describePKCS12(w io.Writer, data []byte, password string) error {
	info, err := pkcs12.Inspect(data)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "PKCS#12:")
	writeField(w, "Version", fmt.Sprintf("%d", info.Version))
	if info.HasMAC {
		writeField(w, "MAC", fmt.Sprintf("%s, %d iterations", pkcs12OIDName(info.MACAlgorithm), info.MACIterations))
	} else {
		writeField(w, "MAC", "(none)")
	}
	for i, safe := range info.Safes {
		desc := "unencrypted"
		if safe.Encrypted {
			desc = "encrypted with " + pkcs12OIDName(safe.Algorithm)
		} else if len(safe.Bags) > 0 {
			names := make([]string, len(safe.Bags))
			for j, b := range safe.Bags {
				names[j] = pkcs12OIDName(b)
			}
			desc += ", " + strings.Join(names, ", ")
		}
		writeField(w, fmt.Sprintf("Safe %d", i+1), desc)
	}

	if info.HasMAC && password == "" {
		fmt.Fprintln(w, "\nContent is protected, a password is required to show it.")
		return nil
	}

	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	DescribeCertificate(w, cert)
	fmt.Fprintln(w)
	describeKey(w, "PKCS#12 key bag", priv)
	return nil
}
