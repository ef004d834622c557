package pbe

import (
	"crypto"
	"crypto/x509"
	"fmt"

	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// EncryptPrivateKey returns key as a DER PKCS#8 EncryptedPrivateKeyInfo
// protected by password.
//
//	EncryptedPrivateKeyInfo ::= SEQUENCE {
//	    encryptionAlgorithm  AlgorithmIdentifier,
//	    encryptedData        OCTET STRING }
func EncryptPrivateKey(key crypto.PrivateKey, password string, params Parameters) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	switch params.Algorithm {
	case AES256PBES2:
		der, err := pkcs8.MarshalPrivateKey(key, []byte(password), &pkcs8.Opts{
			Cipher: pkcs8.AES256CBC,
			KDFOpts: pkcs8.PBKDF2Opts{
				SaltSize:       params.SaltSize,
				IterationCount: params.Iterations,
				HMACHash:       crypto.SHA256,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt private key: %w", err)
		}
		return der, nil

	case TripleDES3KeyPKCS12:
		plain, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal private key: %w", err)
		}
		defer clear(plain)
		return EncryptPKCS8(plain, password, params)

	default:
		return nil, fmt.Errorf("%w: algorithm %s", ErrInvalidParameters, params.Algorithm)
	}
}

// EncryptPKCS8 encrypts an already marshalled PKCS#8 PrivateKeyInfo.
func EncryptPKCS8(privateKeyInfo []byte, password string, params Parameters) ([]byte, error) {
	algID, ciphertext, err := Encrypt(params, password, privateKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(algID)
		b.AddASN1OctetString(ciphertext)
	})
	return b.Bytes()
}

// DecryptPrivateKey parses a DER EncryptedPrivateKeyInfo produced by
// EncryptPrivateKey and returns the private key.
func DecryptPrivateKey(der []byte, password string) (crypto.PrivateKey, error) {
	algID, ciphertext, err := parseEncryptedPrivateKeyInfo(der)
	if err != nil {
		return nil, err
	}
	oid, _, err := parseAlgorithmIdentifier(algID)
	if err != nil {
		return nil, err
	}

	if oid.Equal(OIDPBES2) {
		key, err := pkcs8.ParsePKCS8PrivateKey(der, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
		}
		return key, nil
	}

	plain, err := Decrypt(algID, password, ciphertext)
	if err != nil {
		return nil, err
	}
	defer clear(plain)

	key, err := x509.ParsePKCS8PrivateKey(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return key, nil
}

func parseEncryptedPrivateKeyInfo(der []byte) (algID, ciphertext []byte, err error) {
	input := cryptobyte.String(der)
	var seq, alg cryptobyte.String
	var tag cbasn1.Tag
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadAnyASN1Element(&alg, &tag) || tag != cbasn1.SEQUENCE ||
		!seq.ReadASN1Bytes(&ciphertext, cbasn1.OCTET_STRING) {
		return nil, nil, fmt.Errorf("malformed encrypted private key")
	}
	return alg, ciphertext, nil
}
