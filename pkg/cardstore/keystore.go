package cardstore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// KeyMaterial is the fixed-length secret used to obfuscate on-disk records.
// It is not a cryptographic boundary: the record transform is a reversible
// repeating-key stream cipher, and losing the key file is equivalent to
// losing the records themselves.
type KeyMaterial [keyLength]byte

// ensureKey loads the key file, generating and persisting a fresh key on
// first run. The key is read once at store construction; a changed key file
// is not observed until the next start.
func ensureKey(path string) (KeyMaterial, error) {
	var key KeyMaterial
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return generateKey(path)
	}
	if err != nil {
		return key, fmt.Errorf("%w: read %s: %v", ErrKeyUnavailable, path, err)
	}
	if len(raw) != keyLength {
		return key, fmt.Errorf("%w: %s holds %d bytes, want %d", ErrKeyUnavailable, path, len(raw), keyLength)
	}
	copy(key[:], raw)
	return key, nil
}

func generateKey(path string) (KeyMaterial, error) {
	var key KeyMaterial
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("%w: generate: %v", ErrKeyUnavailable, err)
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return key, fmt.Errorf("%w: write %s: %v", ErrKeyUnavailable, path, err)
	}
	return key, nil
}
