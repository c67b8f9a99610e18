package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainModule is the domain prefix for module content hashes.
// The version suffix allows a future algorithm migration.
const DomainModule = "modkit/module/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonical returns the canonical bytes of the module.
func Canonical(m *Module) ([]byte, error) {
	data, err := MarshalCanonical(m.Value())
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", m.Name, err)
	}
	return data, nil
}

// ModuleHash computes the content hash of a module. Two modules with the same
// hash are isomorphic.
func ModuleHash(m *Module) (string, error) {
	data, err := Canonical(m)
	if err != nil {
		return "", fmt.Errorf("ModuleHash: %w", err)
	}
	return hashWithDomain(DomainModule, data), nil
}

// MustModuleHash is like ModuleHash but panics on error.
// Use only in tests.
func MustModuleHash(m *Module) string {
	h, err := ModuleHash(m)
	if err != nil {
		panic(err)
	}
	return h
}

// Equal reports whether two modules have identical canonical forms.
func Equal(a, b *Module) bool {
	da, err := Canonical(a)
	if err != nil {
		return false
	}
	db, err := Canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
