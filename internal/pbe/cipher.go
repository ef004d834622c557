package pbe

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/crypto/pbkdf2"
)

// Algorithm identifier OIDs.
var (
	OIDPBEWithSHAAnd3KeyTripleDESCBC = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1, 3}
	OIDPBES2                         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 13}
	OIDPBKDF2                        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 12}
	OIDHMACWithSHA256                = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 9}
	OIDAES256CBC                     = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
)

// ErrDecryption is returned when a ciphertext cannot be decrypted, which
// usually means a wrong password.
var ErrDecryption = errors.New("decryption failed")

// random is the source for salts and IVs.
var random io.Reader = rand.Reader

// Encrypt encrypts plaintext under password and returns the DER
// AlgorithmIdentifier that describes the scheme and its parameters.
func Encrypt(params Parameters, password string, plaintext []byte) (algID, ciphertext []byte, err error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	salt := make([]byte, params.SaltSize)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	switch params.Algorithm {
	case TripleDES3KeyPKCS12:
		block, iv, err := tripleDESCipher(password, salt, params.Iterations)
		if err != nil {
			return nil, nil, err
		}
		algID, err = marshalPKCS12PBEAlgorithm(OIDPBEWithSHAAnd3KeyTripleDESCBC, salt, params.Iterations)
		if err != nil {
			return nil, nil, err
		}
		return algID, cbcEncrypt(block, iv, plaintext), nil

	case AES256PBES2:
		iv := make([]byte, aes.BlockSize)
		if _, err := io.ReadFull(random, iv); err != nil {
			return nil, nil, fmt.Errorf("failed to generate IV: %w", err)
		}
		key := pbkdf2.Key([]byte(password), salt, params.Iterations, 32, sha256.New)
		defer clear(key)
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, nil, err
		}
		algID, err = marshalPBES2Algorithm(salt, params.Iterations, iv)
		if err != nil {
			return nil, nil, err
		}
		return algID, cbcEncrypt(block, iv, plaintext), nil

	default:
		return nil, nil, fmt.Errorf("%w: algorithm %s", ErrInvalidParameters, params.Algorithm)
	}
}

// Decrypt reverses Encrypt given the DER AlgorithmIdentifier.
func Decrypt(algID []byte, password string, ciphertext []byte) ([]byte, error) {
	oid, params, err := parseAlgorithmIdentifier(algID)
	if err != nil {
		return nil, err
	}

	var block cipher.Block
	var iv []byte

	switch {
	case oid.Equal(OIDPBEWithSHAAnd3KeyTripleDESCBC):
		salt, iterations, err := parsePKCS12PBEParams(params)
		if err != nil {
			return nil, err
		}
		block, iv, err = tripleDESCipher(password, salt, iterations)
		if err != nil {
			return nil, err
		}

	case oid.Equal(OIDPBES2):
		salt, iterations, aesIV, err := parsePBES2Params(params)
		if err != nil {
			return nil, err
		}
		key := pbkdf2.Key([]byte(password), salt, iterations, 32, sha256.New)
		defer clear(key)
		if block, err = aes.NewCipher(key); err != nil {
			return nil, err
		}
		iv = aesIV

	default:
		return nil, fmt.Errorf("unsupported encryption algorithm %s", oid)
	}

	return cbcDecrypt(block, iv, ciphertext)
}

func tripleDESCipher(password string, salt []byte, iterations int) (cipher.Block, []byte, error) {
	bmp, err := BMPPassword(password)
	if err != nil {
		return nil, nil, err
	}
	defer clear(bmp)

	key := pkcs12KDF(sha1.New, bmp, salt, iterations, kdfIDKey, 24)
	defer clear(key)
	iv := pkcs12KDF(sha1.New, bmp, salt, iterations, kdfIDIV, des.BlockSize)

	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, nil, err
	}
	return block, iv, nil
}

func cbcEncrypt(block cipher.Block, iv, plaintext []byte) []byte {
	bs := block.BlockSize()
	pad := bs - len(plaintext)%bs
	buf := make([]byte, len(plaintext)+pad)
	copy(buf, plaintext)
	copy(buf[len(plaintext):], bytes.Repeat([]byte{byte(pad)}, pad))

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	return buf
}

func cbcDecrypt(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 || len(iv) != bs {
		return nil, fmt.Errorf("%w: bad ciphertext length", ErrDecryption)
	}
	buf := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf, ciphertext)

	pad := int(buf[len(buf)-1])
	if pad == 0 || pad > bs {
		clear(buf)
		return nil, ErrDecryption
	}
	for _, b := range buf[len(buf)-pad:] {
		if int(b) != pad {
			clear(buf)
			return nil, ErrDecryption
		}
	}
	return buf[:len(buf)-pad], nil
}

// marshalPKCS12PBEAlgorithm encodes
//
//	SEQUENCE { oid, SEQUENCE { salt OCTET STRING, iterations INTEGER } }
func marshalPKCS12PBEAlgorithm(oid asn1.ObjectIdentifier, salt []byte, iterations int) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1OctetString(salt)
			b.AddASN1Int64(int64(iterations))
		})
	})
	return b.Bytes()
}

// marshalPBES2Algorithm encodes the RFC 8018 PBES2 AlgorithmIdentifier with
// PBKDF2-HMAC-SHA256 and AES-256-CBC.
func marshalPBES2Algorithm(salt []byte, iterations int, iv []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(OIDPBES2)
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			// keyDerivationFunc
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(OIDPBKDF2)
				b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1OctetString(salt)
					b.AddASN1Int64(int64(iterations))
					b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
						b.AddASN1ObjectIdentifier(OIDHMACWithSHA256)
						b.AddASN1NULL()
					})
				})
			})
			// encryptionScheme
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(OIDAES256CBC)
				b.AddASN1OctetString(iv)
			})
		})
	})
	return b.Bytes()
}

// parseAlgorithmIdentifier splits an AlgorithmIdentifier into its OID and
// the raw parameters element.
func parseAlgorithmIdentifier(der []byte) (asn1.ObjectIdentifier, cryptobyte.String, error) {
	input := cryptobyte.String(der)
	var seq, params cryptobyte.String
	var oid asn1.ObjectIdentifier
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1ObjectIdentifier(&oid) {
		return nil, nil, fmt.Errorf("malformed algorithm identifier")
	}
	var tag cbasn1.Tag
	if !seq.Empty() && !seq.ReadAnyASN1Element(&params, &tag) {
		return nil, nil, fmt.Errorf("malformed algorithm parameters")
	}
	return oid, params, nil
}

func parsePKCS12PBEParams(params cryptobyte.String) (salt []byte, iterations int, err error) {
	var seq cryptobyte.String
	if !params.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1Bytes(&salt, cbasn1.OCTET_STRING) ||
		!seq.ReadASN1Integer(&iterations) {
		return nil, 0, fmt.Errorf("malformed PKCS#12 PBE parameters")
	}
	if iterations < 1 || iterations > MaxIterations {
		return nil, 0, fmt.Errorf("PBE iteration count %d out of range", iterations)
	}
	return salt, iterations, nil
}

func parsePBES2Params(params cryptobyte.String) (salt []byte, iterations int, iv []byte, err error) {
	var seq, kdf, kdfParams, scheme, prf cryptobyte.String
	var kdfOID, schemeOID, prfOID asn1.ObjectIdentifier
	if !params.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.ReadASN1(&kdf, cbasn1.SEQUENCE) ||
		!kdf.ReadASN1ObjectIdentifier(&kdfOID) ||
		!kdf.ReadASN1(&kdfParams, cbasn1.SEQUENCE) ||
		!kdfParams.ReadASN1Bytes(&salt, cbasn1.OCTET_STRING) ||
		!kdfParams.ReadASN1Integer(&iterations) {
		return nil, 0, nil, fmt.Errorf("malformed PBES2 parameters")
	}
	if !kdfOID.Equal(OIDPBKDF2) {
		return nil, 0, nil, fmt.Errorf("unsupported PBES2 key derivation %s", kdfOID)
	}
	if iterations < 1 || iterations > MaxIterations {
		return nil, 0, nil, fmt.Errorf("PBKDF2 iteration count %d out of range", iterations)
	}

	// optional keyLength
	var keyLength int
	if kdfParams.PeekASN1Tag(cbasn1.INTEGER) && (!kdfParams.ReadASN1Integer(&keyLength) || keyLength != 32) {
		return nil, 0, nil, fmt.Errorf("unsupported PBKDF2 key length")
	}
	// prf defaults to hmacWithSHA1, which is not supported here
	if !kdfParams.ReadASN1(&prf, cbasn1.SEQUENCE) || !prf.ReadASN1ObjectIdentifier(&prfOID) || !prfOID.Equal(OIDHMACWithSHA256) {
		return nil, 0, nil, fmt.Errorf("unsupported PBKDF2 pseudo random function")
	}

	if !seq.ReadASN1(&scheme, cbasn1.SEQUENCE) ||
		!scheme.ReadASN1ObjectIdentifier(&schemeOID) ||
		!scheme.ReadASN1Bytes(&iv, cbasn1.OCTET_STRING) {
		return nil, 0, nil, fmt.Errorf("malformed PBES2 encryption scheme")
	}
	if !schemeOID.Equal(OIDAES256CBC) {
		return nil, 0, nil, fmt.Errorf("unsupported PBES2 encryption scheme %s", schemeOID)
	}
	return salt, iterations, iv, nil
}
