// Command certgen generates a key pair and a certificate signing request or
// self-signed certificate, and exports them as PEM or PKCS#12.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/remiblancher/certgen/internal/audit"
	"github.com/remiblancher/certgen/internal/config"
	"github.com/remiblancher/certgen/internal/logging"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	auditLogPath string
	configPath   string
	verbosity    int
)

// cfg is the loaded configuration file, or config.Default().
var cfg = config.Default()

// skipAudit marks commands that read artifacts and never open the audit log.
const skipAudit = "skip-audit"

func main() {
	err := rootCmd.Execute()
	_ = audit.Close()
	logging.Sync()

	if err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			logging.L.Debug("user interrupted the process")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "certgen",
	Short: "Generate a key with a certificate request or self-signed certificate",
	Long: `certgen creates an RSA or ECDSA key pair together with a certificate signing
request (CSR) or a self-signed certificate, and writes both to a new file.

Run without a subcommand to answer a few questions interactively.

Profiles:
  HTTPS         serverAuth + clientAuth, one or more DNS names
  Code signing  codeSigning, a common name
  Custom        your common name, DNS names and extended key usages

Export formats:
  PEM           certificate or CSR followed by the PKCS#8 private key
  PKCS#12       .pfx container (self-signed certificates only)

Examples:
  # Interactive
  certgen

  # Self-signed HTTPS certificate, unencrypted PEM
  certgen generate --dns www.example.com --dns example.com --out www.pem

  # Code signing CSR, key protected by a password
  certgen generate --type csr --profile code-signing --cn "ACME Releases" \
    --key ecdsa-p384 --password-file pw.txt --out signing.pem

  # Show what a file contains
  certgen inspect www.pem`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := logging.Initialize(verbosity); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		if configPath == "" {
			configPath = os.Getenv("CERTGEN_CONFIG")
		}
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			logging.L.Debug("configuration loaded", zap.String("path", configPath))
		}

		if cmd.Annotations[skipAudit] != "" {
			return nil
		}

		// Check for audit log path from environment if not set via flag
		if auditLogPath == "" {
			auditLogPath = os.Getenv("CERTGEN_AUDIT_LOG")
		}
		if auditLogPath == "" {
			auditLogPath = cfg.AuditLog
		}
		if auditLogPath != "" {
			if err := audit.InitFile(auditLogPath); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
	RunE: runWizard,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set CERTGEN_AUDIT_LOG env var)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to configuration file (or set CERTGEN_CONFIG env var)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase log verbosity (repeat for more)")

	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(auditCmd)
}
