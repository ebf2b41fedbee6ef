// Package auth issues and checks the credentials of the embedded backend:
// argon2id password hashes, PASETO v4.local access tokens and opaque
// refresh tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	keyLength    = 32 // PASETO v4 symmetric key
	keyHexLength = keyLength * 2
)

// LoadOrGenerateKey returns the hex token key stored at {dir}/token.key,
// creating one when the file is missing.
func LoadOrGenerateKey(dir string) (string, error) {
	path := filepath.Join(dir, "token.key")

	//#nosec G304 -- path is under the configured state dir
	if raw, err := os.ReadFile(path); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != keyHexLength {
			return "", fmt.Errorf("token key %s: expected %d hex chars, got %d", path, keyHexLength, len(keyHex))
		}
		if _, err := hex.DecodeString(keyHex); err != nil {
			return "", fmt.Errorf("token key %s: %w", path, err)
		}
		return keyHex, nil
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("save token key: %w", err)
	}
	return keyHex, nil
}
