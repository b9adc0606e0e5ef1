// Package fingerprint hashes generated DDL so repeated builds over an
// unchanged corpus can be checked for byte-identical output.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
)

// Fingerprint represents a fingerprint of one generated DDL build
type Fingerprint struct {
	Hash string `json:"hash"` // SHA256 of the emitted SQL
}

// Compute generates a fingerprint for the given SQL text
func Compute(sql string) *Fingerprint {
	hash := sha256.Sum256([]byte(sql))
	return &Fingerprint{Hash: fmt.Sprintf("%x", hash)}
}

// Compare compares two build fingerprints and returns an error if they don't match
func Compare(expected, actual *Fingerprint) error {
	if expected.Hash == actual.Hash {
		return nil
	}

	expectedPreview := expected.Hash
	if len(expectedPreview) > 16 {
		expectedPreview = expectedPreview[:16]
	}

	actualPreview := actual.Hash
	if len(actualPreview) > 16 {
		actualPreview = actualPreview[:16]
	}

	return fmt.Errorf("build fingerprint mismatch - expected: %s, actual: %s",
		expectedPreview, actualPreview)
}

// String returns a human-readable representation of the fingerprint
func (f *Fingerprint) String() string {
	if len(f.Hash) >= 8 {
		return fmt.Sprintf("DDL fingerprint: %s", f.Hash[:8])
	}
	return fmt.Sprintf("DDL fingerprint: %s", f.Hash)
}
