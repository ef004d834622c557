package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/remiblancher/certgen/internal/certgen"
	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/profile"
	"github.com/remiblancher/certgen/internal/x509util"
)

// DefaultValidityDays is offered by the validity prompt.
const DefaultValidityDays = 365

// Wizard collects a certgen.Request interactively. Every answer is
// validated before the next question, so the request it returns only
// fails in the pipeline for reasons outside the operator's input.
type Wizard struct {
	Prompt Prompter
	Out    io.Writer
}

// Run asks every question in order.
func (w *Wizard) Run() (*certgen.Request, error) {
	mode, err := w.AskGenerateType()
	if err != nil {
		return nil, err
	}
	kind, p, err := w.AskProfile()
	if err != nil {
		return nil, err
	}
	alg, err := w.AskKeyAlgorithm()
	if err != nil {
		return nil, err
	}

	req := &certgen.Request{
		GenerateType: mode,
		ProfileKind:  kind,
		Profile:      p,
		Algorithm:    alg,
		ExportType:   certgen.ExportPEM,
	}

	if mode == x509util.SelfSignedCertificate {
		if req.ValidityDays, err = w.AskValidityDays(); err != nil {
			return nil, err
		}
		if req.ExportType, err = w.AskExportType(); err != nil {
			return nil, err
		}
	}

	if req.Password, err = w.AskPassword(); err != nil {
		return nil, err
	}
	if req.Destination, err = w.AskDestination(DefaultFileName(p, req.ExportType)); err != nil {
		return nil, err
	}
	return req, nil
}

// AskGenerateType asks what to create.
func (w *Wizard) AskGenerateType() (x509util.GenerateType, error) {
	types := x509util.GenerateTypes()
	i, err := w.Prompt.Select("What would you like to create?", labelsOf(types, GenerateTypeLabel), 0)
	if err != nil {
		return 0, err
	}
	return types[i], nil
}

// AskProfile asks what the certificate is for and collects its subject.
func (w *Wizard) AskProfile() (profile.Kind, *profile.CertificateProfile, error) {
	kinds := profile.Kinds()
	i, err := w.Prompt.Select("What kind of certificate is this?", labelsOf(kinds, ProfileLabel), 0)
	if err != nil {
		return 0, nil, err
	}
	kind := kinds[i]

	var p *profile.CertificateProfile
	switch kind {
	case profile.KindHTTPS:
		names, err := w.askDNSNames("What domains is this HTTPS certificate valid for? (use a blank entry to indicate you're done)", true)
		if err != nil {
			return 0, nil, err
		}
		p, err = profile.NewHTTPSProfile(names)
		if err != nil {
			return 0, nil, err
		}

	case profile.KindCodeSigning:
		cn, err := w.askCommonName()
		if err != nil {
			return 0, nil, err
		}
		p, err = profile.NewCodeSigningProfile(cn)
		if err != nil {
			return 0, nil, err
		}

	case profile.KindCustom:
		cn, err := w.askCommonName()
		if err != nil {
			return 0, nil, err
		}
		names, err := w.askDNSNames("What DNS names should the certificate carry? (use a blank entry to indicate you're done)", false)
		if err != nil {
			return 0, nil, err
		}
		ekuNames := profile.ExtKeyUsageNames()
		picked, err := w.Prompt.MultiSelect("Which extended key usages?", ekuNames)
		if err != nil {
			return 0, nil, err
		}
		chosen := make([]string, len(picked))
		for j, idx := range picked {
			chosen[j] = ekuNames[idx]
		}
		ekus, err := profile.ParseExtKeyUsages(chosen)
		if err != nil {
			return 0, nil, err
		}
		p, err = profile.NewCustomProfile(cn, names, ekus)
		if err != nil {
			return 0, nil, err
		}

	default:
		return 0, nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, kind)
	}
	return kind, p, nil
}

func (w *Wizard) askCommonName() (string, error) {
	cn, err := w.Prompt.Input("What is the Common Name of your certificate?", "", func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("a common name is required")
		}
		return nil
	})
	return strings.TrimSpace(cn), err
}

// askDNSNames reads one name per prompt until a blank entry. Case-insensitive
// duplicates are dropped.
func (w *Wizard) askDNSNames(message string, required bool) ([]string, error) {
	fmt.Fprintln(w.Out, message)

	var names []string
	for {
		name, err := w.Prompt.Input(">", "", func(s string) error {
			s = strings.TrimSpace(s)
			if s == "" {
				if required && len(names) == 0 {
					return errors.New("at least one is required")
				}
				return nil
			}
			if err := profile.ValidateDNSName(s); err != nil {
				return err
			}
			if strings.HasPrefix(s, "*") {
				return profile.ValidateWildcard(s, profile.DefaultWildcardPolicy)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return profile.UniqueNames(names), nil
		}
		names = append(names, name)
	}
}

// AskKeyAlgorithm asks for the key type. Custom sizes and curves loop until
// valid and every size warning has been confirmed.
func (w *Wizard) AskKeyAlgorithm() (crypto.KeyAlgorithm, error) {
	choices := KeyChoices()
	i, err := w.Prompt.Select("What kind of key?", labelsOf(choices, KeyChoiceLabel), 0)
	if err != nil {
		return nil, err
	}

	switch choices[i] {
	case KeyRSA2048:
		return crypto.RSA2048SHA256, nil
	case KeyECDSAP256:
		return crypto.ECDSAP256SHA256, nil
	case KeyRSACustom:
		return w.askCustomRSA()
	case KeyECDSACustom:
		curves := crypto.Curves()
		j, err := w.Prompt.Select("Choose a curve", labelsOf(curves, func(c crypto.Curve) string { return string(c) }), 0)
		if err != nil {
			return nil, err
		}
		return crypto.NewECDSAKey(curves[j])
	default:
		return nil, fmt.Errorf("%w: unknown key choice %d", crypto.ErrUnsupportedAlgorithm, choices[i])
	}
}

func (w *Wizard) askCustomRSA() (crypto.KeyAlgorithm, error) {
	hashes := crypto.Hashes()
	for {
		raw, err := w.Prompt.Input("How many bits (Greater than or equal to 2048)?", "", func(s string) error {
			bits, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return errors.New("enter a whole number of bits")
			}
			return crypto.RSAKey{Bits: bits, Digest: hashes[0]}.Validate()
		})
		if err != nil {
			return nil, err
		}
		bits, _ := strconv.Atoi(strings.TrimSpace(raw))

		accepted, err := w.ConfirmSizeWarnings(bits)
		if err != nil {
			return nil, err
		}
		if !accepted {
			continue
		}

		j, err := w.Prompt.Select("Choose a hash algorithm", labelsOf(hashes, HashLabel), 0)
		if err != nil {
			return nil, err
		}
		alg := crypto.RSAKey{Bits: bits, Digest: hashes[j]}
		if err := alg.Validate(); err != nil {
			fmt.Fprintln(w.Out, FormatWarning(true, err.Error()))
			continue
		}
		return alg, nil
	}
}

// ConfirmSizeWarnings asks to confirm each warning for an RSA size and
// reports whether all were accepted.
func (w *Wizard) ConfirmSizeWarnings(bits int) (bool, error) {
	for _, warning := range crypto.RSASizeWarnings(bits) {
		ok, err := w.Prompt.Confirm(FormatWarning(warning == crypto.WarnWeakSize, SizeWarningLabel(warning)), false)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// AskValidityDays asks how long a self-signed certificate is valid.
func (w *Wizard) AskValidityDays() (int, error) {
	raw, err := w.Prompt.Input("How many days should the certificate be valid for?", strconv.Itoa(DefaultValidityDays), ValidateDays)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

// ValidateDays accepts a positive whole number of days that ends before
// the year 10000.
func ValidateDays(s string) error {
	days, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || days <= 0 {
		return errors.New("enter a number of days greater than zero")
	}
	if _, _, err := x509util.ValidityWindow(time.Now(), days); err != nil {
		return errors.New("enter a validity that ends before the year 10000")
	}
	return nil
}

// AskExportType asks for the container format.
func (w *Wizard) AskExportType() (certgen.ExportType, error) {
	types := certgen.ExportTypes()
	i, err := w.Prompt.Select("What format would you like to export it?", labelsOf(types, ExportTypeLabel), 0)
	if err != nil {
		return 0, err
	}
	return types[i], nil
}

// AskPassword asks whether to protect the key and reads the password twice.
func (w *Wizard) AskPassword() (pbe.PasswordPolicy, error) {
	protect, err := w.Prompt.Confirm("Would you like to password protect your key?", true)
	if err != nil {
		return nil, err
	}
	if !protect {
		return pbe.NoPassword{}, nil
	}

	for {
		pw, err := w.Prompt.Password("Password:")
		if err != nil {
			return nil, err
		}
		if pw == "" {
			fmt.Fprintln(w.Out, FormatWarning(true, "The password must not be empty."))
			continue
		}
		again, err := w.Prompt.Password("Confirm password:")
		if err != nil {
			return nil, err
		}
		if pw != again {
			fmt.Fprintln(w.Out, FormatWarning(true, "The passwords do not match."))
			continue
		}
		return pbe.PolicyFor(pw), nil
	}
}

// AskDestination asks where to save the file.
func (w *Wizard) AskDestination(defaultPath string) (string, error) {
	path, err := w.Prompt.Input("Where do you want to save your file?", defaultPath, ValidateDestination)
	return strings.TrimSpace(path), err
}

// ValidateDestination accepts a path that does not exist yet.
func ValidateDestination(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("a destination is required")
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return errors.New("destination is a directory")
	case err == nil:
		return errors.New("file already exists")
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	return nil
}

// DefaultFileName suggests a file name from the common name.
func DefaultFileName(p *profile.CertificateProfile, e certgen.ExportType) string {
	base := "certificate"
	if p != nil && p.CommonName != "" {
		base = strings.NewReplacer("*", "wildcard", " ", "-", "/", "-", "\\", "-").Replace(strings.ToLower(p.CommonName))
	}
	if e == certgen.ExportPKCS12 {
		return base + ".pfx"
	}
	return base + ".pem"
}

// ErrSizeNotConfirmed is returned by CheckSizeWarnings when a size warning
// applies and was not accepted up front.
var ErrSizeNotConfirmed = errors.New("key size warning not confirmed")

// CheckSizeWarnings is the non-interactive counterpart of ConfirmSizeWarnings.
// It fails on the first warning for alg unless assumeYes is set.
func CheckSizeWarnings(alg crypto.KeyAlgorithm, assumeYes bool) error {
	rsaKey, ok := alg.(crypto.RSAKey)
	if !ok || assumeYes {
		return nil
	}
	if warnings := crypto.RSASizeWarnings(rsaKey.Bits); len(warnings) > 0 {
		return fmt.Errorf("%w: %s (pass --yes to accept)", ErrSizeNotConfirmed, SizeWarningLabel(warnings[0]))
	}
	return nil
}
