package pbe

import (
	"crypto"
	"crypto/hmac"
	"fmt"
)

// PKCS12MAC computes the PKCS#12 integrity HMAC over data. The HMAC key is
// derived from the BMP password with the PKCS#12 KDF (ID 3) using the same
// hash, salt and iteration count.
func PKCS12MAC(h crypto.Hash, password string, salt []byte, iterations int, data []byte) ([]byte, error) {
	newHash, err := hashFunc(h)
	if err != nil {
		return nil, err
	}
	bmp, err := BMPPassword(password)
	if err != nil {
		return nil, err
	}
	defer clear(bmp)

	key := pkcs12KDF(newHash, bmp, salt, iterations, kdfIDMAC, h.Size())
	defer clear(key)

	mac := hmac.New(newHash, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyPKCS12MAC recomputes the MAC and compares it in constant time.
func VerifyPKCS12MAC(h crypto.Hash, password string, salt []byte, iterations int, data, expected []byte) error {
	got, err := PKCS12MAC(h, password, salt, iterations, data)
	if err != nil {
		return err
	}
	if !hmac.Equal(got, expected) {
		return fmt.Errorf("%w: MAC mismatch", ErrDecryption)
	}
	return nil
}
