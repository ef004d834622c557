package profile

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// WildcardPolicy controls which wildcard DNS names are accepted.
type WildcardPolicy struct {
	Allowed            bool
	ForbidPublicSuffix bool
}

// NormalizeDNSName lowercases a name (RFC 4343) and strips the trailing dot.
func NormalizeDNSName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// ValidateDNSName validates a DNS name according to RFC 1035/1123:
//   - Total length ≤ 253 characters once normalized
//   - Each label ≤ 63 characters, none empty
//   - Labels hold letters, digits and hyphens, never a leading or trailing hyphen
//   - A "*" label only in leftmost position (the policy is checked by ValidateWildcard)
//
// Single-label names such as "localhost" or an intranet host are accepted:
// a self-signed certificate is often issued for exactly that name.
func ValidateDNSName(name string) error {
	if name == "" {
		return fmt.Errorf("DNS name cannot be empty")
	}

	// Compare lengths on the form that ends up in the SAN
	name = NormalizeDNSName(name)

	// RFC 1035: total DNS name ≤ 253 characters
	if len(name) > 253 {
		return fmt.Errorf("DNS name too long: %d > 253 characters", len(name))
	}

	for i, label := range strings.Split(name, ".") {
		// Double dot, or a leading dot left after normalization
		if label == "" {
			return fmt.Errorf("empty label in DNS name (double dot or leading dot)")
		}

		// RFC 1035: label ≤ 63 characters
		if len(label) > 63 {
			return fmt.Errorf("label too long: %q (%d > 63 characters)", label, len(label))
		}

		if label == "*" {
			if i != 0 {
				return fmt.Errorf("wildcard (*) must be leftmost label")
			}
			continue
		}

		if !isValidDNSLabel(label) {
			return fmt.Errorf("invalid DNS label %q: must contain only alphanumeric characters and hyphens, and not start or end with a hyphen", label)
		}
	}

	return nil
}

// isValidDNSLabel checks a label per RFC 1123. Names are normalized to lower
// case first, so only a-z, 0-9 and '-' can appear in a valid label.
func isValidDNSLabel(label string) bool {
	if label == "" || label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}

	// Bytes rather than runes: any non-ASCII byte is rejected, IDNs must
	// arrive as A-labels (xn--...)
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// ValidateWildcard validates a DNS name against a wildcard policy (RFC 6125).
// A nil policy rejects every wildcard.
func ValidateWildcard(name string, policy *WildcardPolicy) error {
	labels := strings.Split(NormalizeDNSName(name), ".")

	// Find the wildcard label, if any
	wildcardPos := -1
	for i, label := range labels {
		if label == "*" {
			if wildcardPos >= 0 {
				return fmt.Errorf("multiple wildcards not allowed: %q", name)
			}
			wildcardPos = i
		}
	}
	if wildcardPos < 0 {
		return nil
	}

	if policy == nil || !policy.Allowed {
		return fmt.Errorf("wildcards not allowed: %q", name)
	}

	// RFC 6125: wildcard must be leftmost label
	if wildcardPos != 0 {
		return fmt.Errorf("wildcard must be leftmost label: %q", name)
	}

	// At least *.domain.tld, so *.com and *.localhost are refused
	if len(labels) < 3 {
		return fmt.Errorf("wildcard requires at least 3 labels (*.domain.tld): %q has only %d", name, len(labels))
	}

	if policy.ForbidPublicSuffix {
		// *.co.uk leaves base domain "co.uk", which is itself the public suffix
		baseDomain := strings.Join(labels[1:], ".")
		suffix, icann := publicsuffix.PublicSuffix(baseDomain)
		if icann && suffix == baseDomain {
			return fmt.Errorf("wildcard on public suffix not allowed: %q (public suffix: %q)", name, suffix)
		}
	}

	return nil
}
