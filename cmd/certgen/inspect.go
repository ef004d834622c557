package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/certgen/internal/cli"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the content of a PEM or PKCS#12 file",
	Long: `Describe the certificate, certificate request and private key in a file
written by certgen.

Encrypted keys and password protected PKCS#12 content are only shown when
--password-file is given.

Examples:
  certgen inspect www.pem
  certgen inspect device.pfx --password-file pw.txt`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipAudit: "true"},
	RunE:        runInspect,
}

var inspectPasswordFile string

func init() {
	inspectCmd.Flags().StringVar(&inspectPasswordFile, "password-file", "", "File containing the password")
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var password string
	if inspectPasswordFile != "" {
		if password, err = readPasswordFile(inspectPasswordFile); err != nil {
			return err
		}
	}

	return cli.Describe(cmd.OutOrStdout(), data, password)
}
