package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remiblancher/certgen/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log management",
	Long: `Commands for verifying and reading audit logs.

The audit log records every key generation, signature and export.
Each event is cryptographically chained using SHA-256 hashes.

Examples:
  # Verify audit log integrity
  certgen audit verify /var/log/certgen/audit.jsonl

  # Show last 10 events
  certgen audit tail /var/log/certgen/audit.jsonl -n 10`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <log>",
	Short: "Verify audit log integrity",
	Long: `Verify the cryptographic hash chain of an audit log file.

Each event in the log contains:
  - hash_prev: SHA-256 hash of the previous event
  - hash: SHA-256 hash of the current event

The chain starts with hash_prev="sha256:genesis" for the first event.

If the chain is broken (events modified, deleted, or inserted),
this command will report the location and nature of the tampering.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipAudit: "true"},
	RunE:        runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:         "tail <log>",
	Short:       "Show recent audit events",
	Long:        `Display the most recent audit events from the log file.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipAudit: "true"},
	RunE:        runAuditTail,
}

var (
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verifying audit log: %s\n\n", args[0])

	count, err := audit.VerifyChain(args[0])
	if err != nil {
		fmt.Fprintf(out, "VERIFICATION FAILED\n")
		fmt.Fprintf(out, "  Valid events: %d\n", count)
		fmt.Fprintf(out, "  Error: %s\n", err)
		return fmt.Errorf("audit log verification failed: %w", err)
	}

	fmt.Fprintf(out, "VERIFICATION PASSED\n")
	fmt.Fprintf(out, "  Total events: %d\n", count)
	fmt.Fprintf(out, "  Hash chain: VALID\n")
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(lines) == 0 {
		fmt.Fprintln(out, "Audit log is empty")
		return nil
	}

	if len(lines) > auditTailNum {
		lines = lines[len(lines)-auditTailNum:]
	}

	if auditShowJSON {
		fmt.Fprintln(out, "[")
		for i, line := range lines {
			if i > 0 {
				fmt.Fprintln(out, ",")
			}
			fmt.Fprint(out, line)
		}
		fmt.Fprintln(out, "\n]")
		return nil
	}

	for _, line := range lines {
		var event audit.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			fmt.Fprintf(out, "  [ERROR] %s\n", err)
			continue
		}
		printEvent(out, &event)
	}
	return nil
}

func printEvent(out io.Writer, e *audit.Event) {
	resultIcon := "✓"
	if e.Result == audit.ResultFailure {
		resultIcon = "✗"
	}

	fmt.Fprintf(out, "[%s] %s %s\n", e.Timestamp, resultIcon, e.EventType)
	fmt.Fprintf(out, "    Actor:  %s@%s\n", e.Actor.ID, e.Actor.Host)

	if e.Object.Type != "" {
		fmt.Fprintf(out, "    Object: %s", e.Object.Type)
		if e.Object.Serial != "" {
			fmt.Fprintf(out, " serial=%s", e.Object.Serial)
		}
		if e.Object.Subject != "" {
			fmt.Fprintf(out, " subject=%s", e.Object.Subject)
		}
		if e.Object.Path != "" {
			fmt.Fprintf(out, " path=%s", e.Object.Path)
		}
		fmt.Fprintln(out)
	}

	if e.Context.Profile != "" || e.Context.Algorithm != "" || e.Context.Format != "" || e.Context.Reason != "" {
		fmt.Fprint(out, "    Context:")
		if e.Context.Profile != "" {
			fmt.Fprintf(out, " profile=%s", e.Context.Profile)
		}
		if e.Context.Algorithm != "" {
			fmt.Fprintf(out, " algorithm=%s", e.Context.Algorithm)
		}
		if e.Context.Format != "" {
			fmt.Fprintf(out, " format=%s encrypted=%t", e.Context.Format, e.Context.Encrypted)
		}
		if e.Context.Reason != "" {
			fmt.Fprintf(out, " reason=%s", e.Context.Reason)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out)
}
