package cli

import (
	stdcrypto "crypto"
	"fmt"
	"strings"

	"github.com/remiblancher/certgen/internal/certgen"
	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/profile"
	"github.com/remiblancher/certgen/internal/x509util"
)

// Display labels for the choices offered by the wizard.
var (
	generateTypeLabels = map[x509util.GenerateType]string{
		x509util.CertificateRequest:    "Certificate Signing Request (CSR)",
		x509util.SelfSignedCertificate: "Self Signed Certificate",
	}

	profileLabels = map[profile.Kind]string{
		profile.KindHTTPS:       "HTTPS Web Server Certificate",
		profile.KindCodeSigning: "Code Signing",
		profile.KindCustom:      "Custom",
	}

	exportTypeLabels = map[certgen.ExportType]string{
		certgen.ExportPKCS12: "PFX / PKCS12",
		certgen.ExportPEM:    "PEM / Text",
	}

	keyChoiceLabels = map[KeyChoice]string{
		KeyRSA2048:     "RSA (2048 bit) + SHA256",
		KeyECDSAP256:   "ECDSA (P-256) + SHA256",
		KeyRSACustom:   "RSA Custom",
		KeyECDSACustom: "ECDSA Custom",
	}

	sizeWarningLabels = map[crypto.SizeWarning]string{
		crypto.WarnWeakSize:    "You chose an RSA key size less than 2048, which is too small. Are you certain?",
		crypto.WarnUnusualSize: "You chose an unusual RSA key size which may not be supported by all software. Are you certain?",
	}
)

// KeyChoice is an entry of the key type menu.
type KeyChoice int

const (
	KeyRSA2048 KeyChoice = iota + 1
	KeyECDSAP256
	KeyRSACustom
	KeyECDSACustom
)

// KeyChoices lists the key type menu in order.
func KeyChoices() []KeyChoice {
	return []KeyChoice{KeyRSA2048, KeyECDSAP256, KeyRSACustom, KeyECDSACustom}
}

func lookup[K comparable](labels map[K]string, k K) string {
	if l, ok := labels[k]; ok {
		return l
	}
	return fmt.Sprintf("%v", k)
}

// GenerateTypeLabel returns the menu label of a generate type.
func GenerateTypeLabel(t x509util.GenerateType) string { return lookup(generateTypeLabels, t) }

// ProfileLabel returns the menu label of a profile kind.
func ProfileLabel(k profile.Kind) string { return lookup(profileLabels, k) }

// ExportTypeLabel returns the menu label of an export type.
func ExportTypeLabel(e certgen.ExportType) string { return lookup(exportTypeLabels, e) }

// KeyChoiceLabel returns the menu label of a key choice.
func KeyChoiceLabel(c KeyChoice) string { return lookup(keyChoiceLabels, c) }

// SizeWarningLabel returns the confirmation question for a size warning.
func SizeWarningLabel(w crypto.SizeWarning) string { return lookup(sizeWarningLabels, w) }

// HashLabel returns "SHA256", "SHA384", ...
func HashLabel(h stdcrypto.Hash) string {
	return strings.ToUpper(crypto.HashName(h))
}

// AlgorithmLabel describes a key algorithm the way the key menu does.
func AlgorithmLabel(alg crypto.KeyAlgorithm) string {
	switch a := alg.(type) {
	case crypto.RSAKey:
		return fmt.Sprintf("RSA (%d bit) + %s", a.Bits, HashLabel(a.Digest))
	case crypto.ECDSAKey:
		return fmt.Sprintf("ECDSA (%s) + %s", a.Curve, HashLabel(a.Digest))
	case nil:
		return "none"
	default:
		return alg.String()
	}
}

func labelsOf[T any](items []T, label func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = label(it)
	}
	return out
}
