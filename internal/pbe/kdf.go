package pbe

import (
	"crypto"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// PKCS#12 KDF diversifiers (RFC 7292 B.3).
const (
	kdfIDKey byte = 1
	kdfIDIV  byte = 2
	kdfIDMAC byte = 3
)

// BMPPassword encodes a password as a null terminated big-endian BMPString,
// the form the PKCS#12 KDF expects. The empty password encodes as two zero
// bytes. Characters outside the Basic Multilingual Plane are rejected.
func BMPPassword(password string) ([]byte, error) {
	if !utf8.ValidString(password) {
		return nil, fmt.Errorf("password is not valid UTF-8")
	}
	for _, r := range password {
		if r > 0xFFFF {
			return nil, fmt.Errorf("password contains a character outside the Basic Multilingual Plane")
		}
	}

	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder()
	b, err := enc.Bytes([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to encode password: %w", err)
	}
	return append(b, 0, 0), nil
}

func hashFunc(h crypto.Hash) (func() hash.Hash, error) {
	switch h {
	case crypto.SHA1:
		return sha1.New, nil
	case crypto.SHA256:
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("%w: unsupported KDF hash %v", ErrInvalidParameters, h)
	}
}

// pkcs12KDF derives size bytes from a BMP password and salt following
// RFC 7292 Appendix B.2.
func pkcs12KDF(newHash func() hash.Hash, bmpPassword, salt []byte, iterations int, id byte, size int) []byte {
	h := newHash()
	u := h.Size()
	v := h.BlockSize()

	// D: v copies of the diversifier
	D := make([]byte, v)
	for i := range D {
		D[i] = id
	}

	// I = S || P, each repeated to a multiple of v
	S := fillTo(salt, v)
	P := fillTo(bmpPassword, v)
	I := append(S, P...)

	out := make([]byte, 0, size+u)
	B := make([]byte, v)
	for len(out) < size {
		h.Reset()
		h.Write(D)
		h.Write(I)
		A := h.Sum(nil)
		for j := 1; j < iterations; j++ {
			h.Reset()
			h.Write(A)
			A = h.Sum(A[:0])
		}
		out = append(out, A...)
		if len(out) >= size {
			break
		}

		for k := range B {
			B[k] = A[k%u]
		}
		// Ij = (Ij + B + 1) mod 2^(8v) for every v-byte block of I
		for j := 0; j < len(I); j += v {
			carry := 1
			for k := v - 1; k >= 0; k-- {
				sum := int(I[j+k]) + int(B[k]) + carry
				I[j+k] = byte(sum)
				carry = sum >> 8
			}
		}
	}
	return out[:size]
}

// fillTo repeats b to the smallest multiple of v that holds it.
func fillTo(b []byte, v int) []byte {
	if len(b) == 0 {
		return nil
	}
	n := v * ((len(b) + v - 1) / v)
	out := make([]byte, n)
	for i := range out {
		out[i] = b[i%len(b)]
	}
	return out
}
