package cli

// ANSI color codes for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
)

// FormatWarning colors a message for the operator: red when severe (weak
// key sizes, rejected input), yellow otherwise (unusual sizes, notices).
func FormatWarning(severe bool, msg string) string {
	if severe {
		return ColorRed + msg + ColorReset
	}
	return ColorYellow + msg + ColorReset
}

// FormatStatus returns a colored status string.
func FormatStatus(status string) string {
	switch status {
	case "valid", "passed":
		return ColorGreen + status + ColorReset
	case "expired", "invalid", "failed":
		return ColorRed + status + ColorReset
	case "notice":
		return ColorYellow + status + ColorReset
	default:
		return status
	}
}
