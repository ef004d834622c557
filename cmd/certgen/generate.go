package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/remiblancher/certgen/internal/certgen"
	"github.com/remiblancher/certgen/internal/cli"
	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/logging"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/profile"
	"github.com/remiblancher/certgen/internal/x509util"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a key and a CSR or self-signed certificate without prompts",
	Long: `Generate a key pair and a certificate signing request or self-signed
certificate from flags, then write them to a new file.

Unset flags fall back to the defaults section of the configuration file,
then to an RSA 2048 bit key, SHA-256, 365 days and PEM.

Key algorithms:
  rsa-<bits>    512 to 8192 bits in steps of 64
  ecdsa-p256, ecdsa-p384, ecdsa-p521

Key sizes below 2048 bits, or not a multiple of 1024, or above 4096 bits
need --yes.

The password is read from the first line of --password-file. Without it
the private key is written unencrypted.

Examples:
  # HTTPS, the first DNS name is the common name
  certgen generate --dns www.example.com --dns example.com --out www.pem

  # Custom profile exported as PKCS#12
  certgen generate --profile custom --cn device-42 --dns device-42.local \
    --eku client-auth --format pkcs12 --password-file pw.txt --out device.pfx

  # Small RSA key for a legacy device
  certgen generate --dns example.com --key rsa-1536 --yes --out legacy.pem`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	genType         string
	genProfile      string
	genCN           string
	genDNS          []string
	genEKU          []string
	genKey          string
	genHash         string
	genDays         int
	genFormat       string
	genPasswordFile string
	genOut          string
	genYes          bool
)

func init() {
	flags := generateCmd.Flags()
	flags.StringVar(&genType, "type", "self-signed", "What to create: csr or self-signed")
	flags.StringVar(&genProfile, "profile", "https", "Certificate profile: https, code-signing or custom")
	flags.StringVar(&genCN, "cn", "", "Common name (code-signing and custom profiles)")
	flags.StringSliceVar(&genDNS, "dns", nil, "DNS names (https and custom profiles, repeatable)")
	flags.StringSliceVar(&genEKU, "eku", nil, "Extended key usages for the custom profile (name or OID, repeatable)")
	flags.StringVar(&genKey, "key", "", "Key algorithm (default rsa-2048)")
	flags.StringVar(&genHash, "hash", "", "Signature digest: sha256, sha384 or sha512")
	flags.IntVar(&genDays, "days", 0, "Validity of a self-signed certificate in days (default 365)")
	flags.StringVar(&genFormat, "format", "", "Export format: pem or pkcs12 (default pem)")
	flags.StringVar(&genPasswordFile, "password-file", "", "File containing the password protecting the key")
	flags.StringVarP(&genOut, "out", "o", "", "Destination file, must not exist (required)")
	flags.BoolVarP(&genYes, "yes", "y", false, "Accept key size warnings")
	_ = generateCmd.MarkFlagRequired("out")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := buildGenerateRequest()
	if err != nil {
		return err
	}
	return generate(cmd.OutOrStdout(), req)
}

// buildGenerateRequest assembles a request from the generate flags and the
// configuration defaults.
func buildGenerateRequest() (*certgen.Request, error) {
	mode, err := x509util.ParseGenerateType(genType)
	if err != nil {
		return nil, err
	}
	kind, err := profile.ParseKind(genProfile)
	if err != nil {
		return nil, err
	}
	p, err := buildProfile(kind)
	if err != nil {
		return nil, err
	}

	keyID := firstNonEmpty(genKey, cfg.Defaults.Key, "rsa-2048")
	alg, err := crypto.ParseKeyAlgorithm(keyID, firstNonEmpty(genHash, cfg.Defaults.Hash))
	if err != nil {
		return nil, &certgen.Error{Op: "validate", Err: err}
	}
	if err := cli.CheckSizeWarnings(alg, genYes); err != nil {
		return nil, err
	}

	days := genDays
	if days == 0 {
		days = cfg.Defaults.Days
	}
	if days == 0 {
		days = cli.DefaultValidityDays
	}

	exportType := certgen.ExportPEM
	if genFormat != "" {
		if exportType, err = certgen.ParseExportType(genFormat); err != nil {
			return nil, err
		}
	} else if cfg.Defaults.Format != "" {
		if exportType, err = certgen.ParseExportType(cfg.Defaults.Format); err != nil {
			return nil, err
		}
		exportType = certgen.ExportTypeFor(mode, exportType)
	}

	var password pbe.PasswordPolicy = pbe.NoPassword{}
	if genPasswordFile != "" {
		pw, err := readPasswordFile(genPasswordFile)
		if err != nil {
			return nil, err
		}
		password = pbe.Secret{Password: pw}
	}

	return &certgen.Request{
		GenerateType: mode,
		ProfileKind:  kind,
		Profile:      p,
		Algorithm:    alg,
		ValidityDays: days,
		ExportType:   exportType,
		Password:     password,
		Destination:  genOut,
	}, nil
}

func buildProfile(kind profile.Kind) (*profile.CertificateProfile, error) {
	switch kind {
	case profile.KindHTTPS:
		if genCN != "" {
			logging.L.Warn("--cn is ignored by the https profile, the first DNS name is the common name",
				zap.String("cn", genCN))
		}
		return profile.NewHTTPSProfile(genDNS)
	case profile.KindCodeSigning:
		if len(genDNS) > 0 {
			logging.L.Warn("--dns is ignored by the code-signing profile", zap.Strings("dns", genDNS))
		}
		return profile.NewCodeSigningProfile(genCN)
	case profile.KindCustom:
		ekus, err := profile.ParseExtKeyUsages(genEKU)
		if err != nil {
			return nil, err
		}
		return profile.NewCustomProfile(genCN, genDNS, ekus)
	default:
		return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, kind)
	}
}

// readPasswordFile returns the first line of path.
func readPasswordFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read password file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return "", errors.New("password file is empty")
	}
	return line, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
