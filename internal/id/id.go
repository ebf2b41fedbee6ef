// Package id generates local identifiers and validates collaborator UUIDs.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for locally minted identifiers.
const (
	PrefixNotification = "ntf"
	PrefixSubscription = "sub"
	PrefixClient       = "sse"
	PrefixToken        = "tok"
)

// Generator mints prefixed identifiers. The store takes one so tests can
// substitute a deterministic sequence.
type Generator interface {
	Generate(prefix string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(prefix string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(prefix string) (string, error) { return f(prefix) }

// Default is the NanoID-backed generator.
var Default Generator = GeneratorFunc(Generate)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "ntf-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewUUID returns a random (version 4) UUID string, the identifier shape
// the collaborator uses for rows.
func NewUUID() string {
	return uuid.NewString()
}

// IsValidUUID reports whether s is a canonical random (version 4) UUID,
// the only shape the collaborator mints for row ids. Ids are checked with
// this before a query is issued.
func IsValidUUID(s string) bool {
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return u.Version() == 4 && u.Variant() == uuid.RFC4122
}
