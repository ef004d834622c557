package pkcs12

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Decode parses a PFX and returns its private key and certificate. A PFX
// without a MAC only decodes with the empty password.
func Decode(pfx []byte, password string) (crypto.PrivateKey, *x509.Certificate, error) {
	key, cert, caCerts, err := gopkcs12.DecodeChain(pfx, password)
	if err != nil {
		return nil, nil, err
	}
	if len(caCerts) != 0 {
		return nil, nil, fmt.Errorf("pkcs12: unexpected %d additional certificates", len(caCerts))
	}
	return key, cert, nil
}

// SafeInfo describes one ContentInfo of the authenticated safe.
type SafeInfo struct {
	// Encrypted is true for an encryptedData ContentInfo.
	Encrypted bool
	// Algorithm is the content encryption algorithm, for encrypted safes.
	Algorithm asn1.ObjectIdentifier
	// Bags lists the bag types, for unencrypted safes.
	Bags []asn1.ObjectIdentifier
}

// Info describes the structure of a PFX without decrypting it.
type Info struct {
	Version       int
	Safes         []SafeInfo
	HasMAC        bool
	MACAlgorithm  asn1.ObjectIdentifier
	MACIterations int
}

// Inspect walks the outer structure of a PFX.
func Inspect(pfx []byte) (*Info, error) {
	input := cryptobyte.String(pfx)
	var seq cryptobyte.String
	info := &Info{}

	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Integer(&info.Version) {
		return nil, fmt.Errorf("pkcs12: malformed PFX")
	}

	authSafe, err := readDataContentInfo(&seq)
	if err != nil {
		return nil, err
	}

	var contentInfos cryptobyte.String
	if !authSafe.ReadASN1(&contentInfos, cbasn1.SEQUENCE) {
		return nil, fmt.Errorf("pkcs12: malformed authenticated safe")
	}
	for !contentInfos.Empty() {
		safe, err := inspectContentInfo(&contentInfos)
		if err != nil {
			return nil, err
		}
		info.Safes = append(info.Safes, safe)
	}

	if !seq.Empty() {
		var macData, digestInfo, alg cryptobyte.String
		var digest, salt []byte
		if !seq.ReadASN1(&macData, cbasn1.SEQUENCE) ||
			!macData.ReadASN1(&digestInfo, cbasn1.SEQUENCE) ||
			!digestInfo.ReadASN1(&alg, cbasn1.SEQUENCE) ||
			!alg.ReadASN1ObjectIdentifier(&info.MACAlgorithm) ||
			!digestInfo.ReadASN1Bytes(&digest, cbasn1.OCTET_STRING) ||
			!macData.ReadASN1Bytes(&salt, cbasn1.OCTET_STRING) {
			return nil, fmt.Errorf("pkcs12: malformed MAC data")
		}
		info.HasMAC = true
		info.MACIterations = 1
		if !macData.Empty() && !macData.ReadASN1Integer(&info.MACIterations) {
			return nil, fmt.Errorf("pkcs12: malformed MAC iterations")
		}
	}

	return info, nil
}

// readDataContentInfo reads a data ContentInfo and returns its octets.
func readDataContentInfo(s *cryptobyte.String) (cryptobyte.String, error) {
	var ci, explicit cryptobyte.String
	var oid asn1.ObjectIdentifier
	var content []byte
	if !s.ReadASN1(&ci, cbasn1.SEQUENCE) ||
		!ci.ReadASN1ObjectIdentifier(&oid) ||
		!ci.ReadASN1(&explicit, tagExplicit0) ||
		!explicit.ReadASN1Bytes(&content, cbasn1.OCTET_STRING) {
		return nil, fmt.Errorf("pkcs12: malformed content info")
	}
	if !oid.Equal(OIDData) {
		return nil, fmt.Errorf("pkcs12: expected data content, got %s", oid)
	}
	return cryptobyte.String(content), nil
}

func inspectContentInfo(s *cryptobyte.String) (SafeInfo, error) {
	var element cryptobyte.String
	if !s.ReadASN1Element(&element, cbasn1.SEQUENCE) {
		return SafeInfo{}, fmt.Errorf("pkcs12: malformed content info")
	}

	peek := element
	var ci cryptobyte.String
	var oid asn1.ObjectIdentifier
	if !peek.ReadASN1(&ci, cbasn1.SEQUENCE) || !ci.ReadASN1ObjectIdentifier(&oid) {
		return SafeInfo{}, fmt.Errorf("pkcs12: malformed content info")
	}

	switch {
	case oid.Equal(OIDData):
		content, err := readDataContentInfo(&element)
		if err != nil {
			return SafeInfo{}, err
		}
		var bags cryptobyte.String
		if !content.ReadASN1(&bags, cbasn1.SEQUENCE) {
			return SafeInfo{}, fmt.Errorf("pkcs12: malformed safe contents")
		}
		var safe SafeInfo
		for !bags.Empty() {
			var bag cryptobyte.String
			var bagID asn1.ObjectIdentifier
			if !bags.ReadASN1(&bag, cbasn1.SEQUENCE) || !bag.ReadASN1ObjectIdentifier(&bagID) {
				return SafeInfo{}, fmt.Errorf("pkcs12: malformed safe bag")
			}
			safe.Bags = append(safe.Bags, bagID)
		}
		return safe, nil

	case oid.Equal(OIDEncryptedData):
		var explicit, ed, eci, alg cryptobyte.String
		var version int
		var contentType, algOID asn1.ObjectIdentifier
		if !ci.ReadASN1(&explicit, tagExplicit0) ||
			!explicit.ReadASN1(&ed, cbasn1.SEQUENCE) ||
			!ed.ReadASN1Integer(&version) ||
			!ed.ReadASN1(&eci, cbasn1.SEQUENCE) ||
			!eci.ReadASN1ObjectIdentifier(&contentType) ||
			!eci.ReadASN1(&alg, cbasn1.SEQUENCE) ||
			!alg.ReadASN1ObjectIdentifier(&algOID) {
			return SafeInfo{}, fmt.Errorf("pkcs12: malformed encrypted data")
		}
		return SafeInfo{Encrypted: true, Algorithm: algOID}, nil

	default:
		return SafeInfo{}, fmt.Errorf("pkcs12: unsupported content type %s", oid)
	}
}
