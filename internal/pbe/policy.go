// Package pbe implements the password based encryption used to protect
// exported private keys: the PKCS#12 triple-DES scheme (RFC 7292 Appendix B)
// and PBES2 with PBKDF2-HMAC-SHA256 and AES-256-CBC (RFC 8018).
package pbe

import (
	"errors"
	"fmt"
)

// ErrUnknownPasswordPolicy is returned for a PasswordPolicy that is neither
// NoPassword nor Secret.
var ErrUnknownPasswordPolicy = errors.New("unknown password policy")

// PasswordPolicy decides whether exported key material is encrypted.
// It is implemented only by NoPassword and Secret.
type PasswordPolicy interface {
	isPasswordPolicy()
}

// NoPassword exports the private key unencrypted.
type NoPassword struct{}

// Secret encrypts the private key under Password.
type Secret struct {
	Password string
}

func (NoPassword) isPasswordPolicy() {}
func (Secret) isPasswordPolicy()     {}

func (NoPassword) String() string { return "none" }

// String never prints the password.
func (Secret) String() string { return "secret" }

// GoString keeps %#v from printing the password.
func (Secret) GoString() string { return "pbe.Secret{Password:\"***\"}" }

// Password returns the password of a Secret policy, or ok=false for
// NoPassword.
func Password(p PasswordPolicy) (password string, ok bool, err error) {
	switch v := p.(type) {
	case NoPassword:
		return "", false, nil
	case Secret:
		return v.Password, true, nil
	case *Secret:
		if v == nil {
			return "", false, fmt.Errorf("%w: nil secret", ErrUnknownPasswordPolicy)
		}
		return v.Password, true, nil
	default:
		return "", false, fmt.Errorf("%w: %T", ErrUnknownPasswordPolicy, p)
	}
}

// PolicyFor returns Secret for a non-empty password and NoPassword otherwise.
func PolicyFor(password string) PasswordPolicy {
	if password == "" {
		return NoPassword{}
	}
	return Secret{Password: password}
}
