// Package config loads the optional certgen YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/remiblancher/certgen/internal/crypto"
	"github.com/remiblancher/certgen/internal/pbe"
)

// ErrInvalidConfig is returned when a configuration file fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the certgen configuration file.
type Config struct {
	PBE          PBESettings `yaml:"pbe"`
	AuditLog     string      `yaml:"audit_log"`
	VerifyExport *bool       `yaml:"verify_export"`
	Defaults     Defaults    `yaml:"defaults"`
}

// PBESettings selects the password based encryption of exported keys.
// Zero values fall back to the defaults of the selected algorithm.
type PBESettings struct {
	Algorithm  string `yaml:"algorithm"`
	Hash       string `yaml:"hash"`
	Iterations int    `yaml:"iterations"`
	SaltSize   int    `yaml:"salt_size"`
}

// Defaults pre-fill the non-interactive generate command.
type Defaults struct {
	Key    string `yaml:"key"`
	Hash   string `yaml:"hash"`
	Days   int    `yaml:"days"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{}
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration from YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every configured value.
func (c *Config) Validate() error {
	if _, err := c.Parameters(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Defaults.Key != "" {
		if _, err := crypto.ParseKeyAlgorithm(c.Defaults.Key, c.Defaults.Hash); err != nil {
			return fmt.Errorf("%w: defaults.key: %v", ErrInvalidConfig, err)
		}
	} else if c.Defaults.Hash != "" {
		if _, err := crypto.ParseHash(c.Defaults.Hash); err != nil {
			return fmt.Errorf("%w: defaults.hash: %v", ErrInvalidConfig, err)
		}
	}
	if c.Defaults.Days < 0 {
		return fmt.Errorf("%w: defaults.days must not be negative", ErrInvalidConfig)
	}
	switch c.Defaults.Format {
	case "", "pem", "pkcs12":
	default:
		return fmt.Errorf("%w: defaults.format must be pem or pkcs12, got %q", ErrInvalidConfig, c.Defaults.Format)
	}
	return nil
}

// Parameters converts the pbe section into encryption parameters.
func (c *Config) Parameters() (pbe.Parameters, error) {
	params := pbe.Default()
	if c.PBE.Algorithm != "" {
		alg, err := pbe.ParseAlgorithm(c.PBE.Algorithm)
		if err != nil {
			return pbe.Parameters{}, err
		}
		if alg == pbe.AES256PBES2 {
			params = pbe.Modern()
		}
	}

	if c.PBE.Hash != "" {
		h, err := pbe.ParseMACHash(c.PBE.Hash)
		if err != nil {
			return pbe.Parameters{}, err
		}
		params.MACHash = h
	}
	if c.PBE.Iterations != 0 {
		params.Iterations = c.PBE.Iterations
	}
	if c.PBE.SaltSize != 0 {
		params.SaltSize = c.PBE.SaltSize
	}

	if err := params.Validate(); err != nil {
		return pbe.Parameters{}, err
	}
	return params, nil
}

// ShouldVerifyExport reports whether exports are decoded again before being
// written. Defaults to true.
func (c *Config) ShouldVerifyExport() bool {
	return c.VerifyExport == nil || *c.VerifyExport
}
