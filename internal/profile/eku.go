package profile

import (
	"encoding/asn1"
	"fmt"
	"strconv"
	"strings"
)

// Extended Key Usage OIDs (RFC 5280 4.2.1.12).
var (
	OIDExtKeyUsageServerAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	OIDExtKeyUsageClientAuth      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	OIDExtKeyUsageCodeSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 3}
	OIDExtKeyUsageEmailProtection = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 4}
	OIDExtKeyUsageTimeStamping    = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}
	OIDExtKeyUsageOCSPSigning     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
)

// ExtKeyUsageNames lists the purposes a custom profile may choose, in menu order.
func ExtKeyUsageNames() []string {
	return []string{"server-auth", "client-auth", "code-signing", "email-protection", "time-stamping", "ocsp-signing"}
}

// ParseExtKeyUsage converts a purpose name or a dotted OID into an OID.
func ParseExtKeyUsage(s string) (asn1.ObjectIdentifier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serverauth", "server-auth":
		return OIDExtKeyUsageServerAuth, nil
	case "clientauth", "client-auth":
		return OIDExtKeyUsageClientAuth, nil
	case "codesigning", "code-signing":
		return OIDExtKeyUsageCodeSigning, nil
	case "emailprotection", "email-protection":
		return OIDExtKeyUsageEmailProtection, nil
	case "timestamping", "time-stamping":
		return OIDExtKeyUsageTimeStamping, nil
	case "ocspsigning", "ocsp-signing":
		return OIDExtKeyUsageOCSPSigning, nil
	}
	return parseOID(s)
}

// ParseExtKeyUsages converts a list of purpose names or OIDs.
func ParseExtKeyUsages(values []string) ([]asn1.ObjectIdentifier, error) {
	oids := make([]asn1.ObjectIdentifier, 0, len(values))
	for _, v := range values {
		oid, err := ParseExtKeyUsage(v)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

func parseOID(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: unknown extended key usage %q", ErrExtKeyUsageInvalid, s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strconv.Itoa(n) != part {
			return nil, fmt.Errorf("%w: invalid OID component %q in %q", ErrExtKeyUsageInvalid, part, s)
		}
		oid[i] = n
	}
	return oid, nil
}
