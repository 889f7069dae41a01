package cardstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureKeyGeneratesOnFirstRun(test *testing.T) {
	test.Parallel()
	path := filepath.Join(test.TempDir(), keyFileName)

	key, err := ensureKey(path)
	if err != nil {
		test.Fatalf("ensure: %v", err)
	}
	persisted, err := os.ReadFile(path)
	if err != nil {
		test.Fatalf("read key file: %v", err)
	}
	if len(persisted) != keyLength {
		test.Fatalf("expected %d key bytes on disk, got %d", keyLength, len(persisted))
	}
	if string(persisted) != string(key[:]) {
		test.Fatalf("key file must hold the generated bytes verbatim")
	}
}

func TestEnsureKeyLoadsExistingKey(test *testing.T) {
	test.Parallel()
	path := filepath.Join(test.TempDir(), keyFileName)

	first, err := ensureKey(path)
	if err != nil {
		test.Fatalf("first ensure: %v", err)
	}
	second, err := ensureKey(path)
	if err != nil {
		test.Fatalf("second ensure: %v", err)
	}
	if first != second {
		test.Fatalf("existing key must load unchanged")
	}
}

func TestEnsureKeyRejectsWrongSize(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name string
		raw  []byte
	}{
		{name: "truncated", raw: make([]byte, keyLength-1)},
		{name: "oversized", raw: make([]byte, keyLength+1)},
		{name: "empty", raw: nil},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			path := filepath.Join(test.TempDir(), keyFileName)
			if err := os.WriteFile(path, testCase.raw, 0o600); err != nil {
				test.Fatalf("seed key file: %v", err)
			}
			if _, err := ensureKey(path); !errors.Is(err, ErrKeyUnavailable) {
				test.Fatalf("expected ErrKeyUnavailable, got %v", err)
			}
		})
	}
}

func TestEnsureKeyUnwritablePath(test *testing.T) {
	test.Parallel()
	path := filepath.Join(test.TempDir(), "missing", keyFileName)
	if _, err := ensureKey(path); !errors.Is(err, ErrKeyUnavailable) {
		test.Fatalf("expected ErrKeyUnavailable, got %v", err)
	}
}
