package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a contract spec from YAML (or JSON, which YAML subsumes),
// applies defaults for optional knobs, and validates eagerly.
func Parse(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse contract spec: %w", err)
	}
	if err := Finalize(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Finalize applies defaults and validates a programmatically constructed
// spec. Parse and Load call it on every decoded spec.
func Finalize(s *Spec) error {
	s.applyDefaults()
	return s.Validate()
}

// Load reads a contract spec from a file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract spec: %w", err)
	}
	return Parse(data)
}

// LoadWithHash loads a contract spec and returns the SHA-256 of the raw
// bytes on disk, for change detection across hot reloads.
func LoadWithHash(path string) (*Spec, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read contract spec: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, "", err
	}
	h := sha256.Sum256(data)
	return spec, "sha256:" + hex.EncodeToString(h[:]), nil
}
