// Package x509util assembles the X.509 extensions for a certificate request
// or self-signed certificate and signs the result.
package x509util

import (
	"encoding/asn1"
)

// Standard X.509 extension OIDs.
var (
	OIDExtSubjectAltName   = asn1.ObjectIdentifier{2, 5, 29, 17}
	OIDExtKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtExtKeyUsage      = asn1.ObjectIdentifier{2, 5, 29, 37}
	OIDExtBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
)

// OIDName returns a short name for the extension OIDs this package emits,
// or the dotted form for anything else.
func OIDName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(OIDExtSubjectAltName):
		return "subjectAltName"
	case oid.Equal(OIDExtKeyUsage):
		return "keyUsage"
	case oid.Equal(OIDExtExtKeyUsage):
		return "extKeyUsage"
	case oid.Equal(OIDExtBasicConstraints):
		return "basicConstraints"
	default:
		return oid.String()
	}
}
