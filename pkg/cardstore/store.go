package cardstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store is the account persistence engine: one encrypted file per account
// under <dir>/Card, fronted by an in-memory lookup cache. Writes go to disk
// first, then update the cache, so the cache never holds a value a failed
// write did not persist. The store performs no balance policy; callers
// enforce non-negativity and the zero-balance-before-close rule.
//
// A Store assumes a single active goroutine and a single process per
// backing directory. There is no internal locking.
type Store struct {
	cardDirectory string
	key           KeyMaterial
	cache         *accountTable
}

// NewStore opens (or initializes) the backing directory, ensures the key
// material, and warms the cache from every readable record so the first
// request for any existing account is a cache hit. Key trouble is fatal;
// individual unreadable records are skipped.
func NewStore(baseDirectory string) (*Store, error) {
	if strings.TrimSpace(baseDirectory) == "" {
		return nil, fmt.Errorf("%w: base directory is empty", ErrInvalidStoreConfig)
	}
	cardDirectory := filepath.Join(baseDirectory, cardDirectoryName)
	if err := os.MkdirAll(cardDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrInvalidStoreConfig, cardDirectory, err)
	}
	key, err := ensureKey(filepath.Join(baseDirectory, keyFileName))
	if err != nil {
		return nil, err
	}
	store := &Store{
		cardDirectory: cardDirectory,
		key:           key,
		cache:         newAccountTable(),
	}
	if err := store.warm(); err != nil {
		return nil, err
	}
	return store, nil
}

// Create persists a fresh account with a generated identifier and zero
// balance.
func (store *Store) Create(password Password) (Account, error) {
	account := Account{
		ID:       GenerateAccountID(),
		Password: password,
		Balance:  0,
	}
	if err := store.Save(account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Save writes the record through the codec to disk, then upserts the cache.
// On a write failure the cache is left untouched so it never diverges from
// disk.
func (store *Store) Save(account Account) error {
	if account.ID.IsZero() {
		return fmt.Errorf("%w: empty identifier", ErrPersistFailed)
	}
	encoded := encodeRecord(account, store.key)
	if err := os.WriteFile(store.recordPath(account.ID), encoded, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	store.cache.insert(account)
	return nil
}

// Load returns the account for an identifier, from cache when warm and from
// disk otherwise. A disk hit populates the cache. A missing record is
// ErrNotFound, a normal negative result.
func (store *Store) Load(id AccountID) (Account, error) {
	if account, found := store.cache.find(id.String()); found {
		return account, nil
	}
	account, err := store.readRecord(id)
	if err != nil {
		return Account{}, err
	}
	store.cache.insert(account)
	return account, nil
}

// Delete removes the backing file, then the cache entry. If the file
// removal fails the cache is left untouched so cache and disk cannot
// diverge on a failed delete.
func (store *Store) Delete(id AccountID) error {
	err := os.Remove(store.recordPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	store.cache.remove(id.String())
	return nil
}

// List enumerates every readable account in directory order. The order is
// whatever the filesystem yields; callers must not depend on it. Unreadable
// records are skipped, never fatal to the listing.
func (store *Store) List() ([]Account, error) {
	entries, err := os.ReadDir(store.cardDirectory)
	if err != nil {
		return nil, WrapError("store", "list", "scan", err)
	}
	accounts := make([]Account, 0, len(entries))
	for _, entry := range entries {
		id, ok := recordFileID(entry.Name())
		if !ok {
			continue
		}
		account, err := store.Load(id)
		if err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (store *Store) warm() error {
	entries, err := os.ReadDir(store.cardDirectory)
	if err != nil {
		return WrapError("store", "warm", "scan", err)
	}
	for _, entry := range entries {
		id, ok := recordFileID(entry.Name())
		if !ok {
			continue
		}
		account, err := store.readRecord(id)
		if err != nil {
			continue
		}
		store.cache.insert(account)
	}
	return nil
}

func (store *Store) readRecord(id AccountID) (Account, error) {
	raw, err := os.ReadFile(store.recordPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, id.String())
	}
	if err != nil {
		return Account{}, WrapError("store", "record", "read", err)
	}
	return decodeRecord(raw, store.key)
}

func (store *Store) recordPath(id AccountID) string {
	return filepath.Join(store.cardDirectory, id.String()+cardFileExtension)
}

func recordFileID(fileName string) (AccountID, bool) {
	if !strings.HasSuffix(fileName, cardFileExtension) {
		return AccountID{}, false
	}
	id, err := NewAccountID(strings.TrimSuffix(fileName, cardFileExtension))
	if err != nil {
		return AccountID{}, false
	}
	return id, true
}
