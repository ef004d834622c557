package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/remiblancher/certgen/internal/certgen"
	"github.com/remiblancher/certgen/internal/cli"
	"github.com/remiblancher/certgen/internal/logging"
	"github.com/remiblancher/certgen/internal/x509util"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Answer questions to generate a key and certificate",
	Long: `Asks for the generation mode, profile, key, validity, export format,
password and destination, then generates the file.

Running certgen without a subcommand does the same.`,
	Args: cobra.NoArgs,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	w := &cli.Wizard{
		Prompt: cli.NewSurveyPrompter(os.Stdin, os.Stdout, os.Stderr),
		Out:    cmd.OutOrStdout(),
	}
	req, err := w.Run()
	if err != nil {
		return err
	}
	return generate(cmd.OutOrStdout(), req)
}

// generate applies the configured PBE parameters, runs req and prints a
// summary of the result.
func generate(out io.Writer, req *certgen.Request) error {
	params, err := cfg.Parameters()
	if err != nil {
		return err
	}
	req.PBE = params
	req.SkipExportCheck = !cfg.ShouldVerifyExport()

	res, err := (&certgen.Generator{Logger: logging.L}).Run(req)
	if err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

func printResult(out io.Writer, res *certgen.Result) {
	fmt.Fprintln(out)
	if res.GenerateType == x509util.CertificateRequest {
		fmt.Fprintln(out, "Certificate request created")
	} else {
		fmt.Fprintln(out, "Self-signed certificate created")
	}
	fmt.Fprintf(out, "  Subject:    %s\n", res.Subject)
	if len(res.DNSNames) > 0 {
		fmt.Fprintf(out, "  DNS names:  %v\n", res.DNSNames)
	}
	fmt.Fprintf(out, "  Algorithm:  %s\n", res.Algorithm)
	if res.Serial != "" {
		fmt.Fprintf(out, "  Serial:     %s\n", res.Serial)
		fmt.Fprintf(out, "  Valid:      %s to %s\n",
			res.NotBefore.Format("2006-01-02 15:04:05 MST"), res.NotAfter.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(out, "  Format:     %s\n", cli.ExportTypeLabel(res.ExportType))
	protection := "none"
	if res.Encrypted {
		protection = res.PBE.String()
	}
	fmt.Fprintf(out, "  Protection: %s\n", protection)
	fmt.Fprintf(out, "  File:       %s (%d bytes)\n", res.Path, res.Size)

	if res.CompatibilityDefault() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, cli.FormatWarning(false,
			"The key is protected with triple-DES and a SHA-1 MAC for compatibility. "+
				"Set pbe.algorithm: aes256-pbes2 in the configuration file for AES-256."))
	}
}
