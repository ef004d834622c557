// Package credential renders signed artifacts and their private keys as PEM.
package credential

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	pkicrypto "github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/pbe"
	"github.com/remiblancher/certgen/internal/x509util"
)

// PEM labels for private keys.
const (
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

var (
	// ErrPEMMismatch is returned when decoded PEM content differs from what was encoded.
	ErrPEMMismatch = errors.New("PEM content does not match the exported artifact")

	// ErrKeyMismatch is returned when a private key is not the pair of a public key.
	ErrKeyMismatch = errors.New("private key does not match public key")
)

// EncodePEM renders the blocks in order. Every block ends with a newline, so
// consecutive blocks are separated by one.
func EncodePEM(blocks ...*pem.Block) ([]byte, error) {
	var buf bytes.Buffer
	for _, block := range blocks {
		if block == nil || block.Type == "" {
			return nil, fmt.Errorf("PEM block without a label")
		}
		if err := pem.Encode(&buf, block); err != nil {
			return nil, fmt.Errorf("failed to encode %s block: %w", block.Type, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodePEM returns every PEM block in data, in order.
func DecodePEM(data []byte) ([]*pem.Block, error) {
	var blocks []*pem.Block
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			if len(bytes.TrimSpace(rest)) != 0 {
				return nil, fmt.Errorf("trailing data after %d PEM blocks", len(blocks))
			}
			break
		}
		blocks = append(blocks, block)
		data = rest
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("no PEM blocks found")
	}
	return blocks, nil
}

// PrivateKeyBlock returns the key as a PKCS#8 PEM block. Under a Secret
// policy the block is an ENCRYPTED PRIVATE KEY protected with params.
func PrivateKeyBlock(kp *pkicrypto.KeyPair, policy pbe.PasswordPolicy, params pbe.Parameters) (*pem.Block, error) {
	password, encrypted, err := pbe.Password(policy)
	if err != nil {
		return nil, err
	}

	if !encrypted {
		der, err := kp.PrivateKeyDER()
		if err != nil {
			return nil, err
		}
		return &pem.Block{Type: PEMTypePrivateKey, Bytes: der}, nil
	}

	priv, err := kp.PrivateKey()
	if err != nil {
		return nil, err
	}
	der, err := pbe.EncryptPrivateKey(priv, password, params)
	if err != nil {
		return nil, err
	}
	return &pem.Block{Type: PEMTypeEncryptedPrivateKey, Bytes: der}, nil
}

// ParsePrivateKeyBlock parses a PRIVATE KEY or ENCRYPTED PRIVATE KEY block.
func ParsePrivateKeyBlock(block *pem.Block, password string) (crypto.PrivateKey, error) {
	switch block.Type {
	case PEMTypePrivateKey:
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	case PEMTypeEncryptedPrivateKey:
		return pbe.DecryptPrivateKey(block.Bytes, password)
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

// EncodeArtifactPEM renders the artifact block followed by its private key block.
func EncodeArtifactPEM(a x509util.Artifact, policy pbe.PasswordPolicy, params pbe.Parameters) ([]byte, error) {
	keyBlock, err := PrivateKeyBlock(a.KeyPair(), policy, params)
	if err != nil {
		return nil, err
	}
	defer pkicrypto.Zero(keyBlock.Bytes)

	return EncodePEM(
		&pem.Block{Type: a.PEMLabel(), Bytes: a.DER()},
		keyBlock,
	)
}

// VerifyArtifactPEM decodes data and checks that it holds exactly the
// artifact followed by a private key matching the artifact's public key.
func VerifyArtifactPEM(data []byte, a x509util.Artifact, password string) error {
	blocks, err := DecodePEM(data)
	if err != nil {
		return err
	}
	if len(blocks) != 2 {
		return fmt.Errorf("%w: expected 2 PEM blocks, got %d", ErrPEMMismatch, len(blocks))
	}
	if blocks[0].Type != a.PEMLabel() || !bytes.Equal(blocks[0].Bytes, a.DER()) {
		return fmt.Errorf("%w: %s block", ErrPEMMismatch, a.PEMLabel())
	}

	priv, err := ParsePrivateKeyBlock(blocks[1], password)
	if err != nil {
		return fmt.Errorf("failed to read back private key: %w", err)
	}
	return MatchPublicKey(priv, a.KeyPair().Public())
}

// MatchPublicKey checks that priv is the private half of pub.
func MatchPublicKey(priv crypto.PrivateKey, pub crypto.PublicKey) error {
	signer, ok := priv.(crypto.Signer)
	if !ok {
		return fmt.Errorf("%w: %T is not a signing key", ErrKeyMismatch, priv)
	}
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	got, ok := signer.Public().(equaler)
	if !ok || !got.Equal(pub) {
		return ErrKeyMismatch
	}
	return nil
}
