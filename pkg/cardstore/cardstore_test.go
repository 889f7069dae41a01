package cardstore

import (
	"context"
	"testing"
)

const (
	accountIDPrimary   = "3b241101-e2bb-4255-8caf-4136c566a962"
	accountIDSecondary = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	accountIDTertiary  = "550e8400-e29b-41d4-a716-446655440000"
	passwordPrimary    = 7_000_000
	passwordSecondary  = 1_234_567
)

func mustAccountID(test *testing.T, raw string) AccountID {
	test.Helper()
	id, err := NewAccountID(raw)
	if err != nil {
		test.Fatalf("account id %q: %v", raw, err)
	}
	return id
}

func mustPassword(test *testing.T, raw uint64) Password {
	test.Helper()
	password, err := NewPassword(raw)
	if err != nil {
		test.Fatalf("password %d: %v", raw, err)
	}
	return password
}

func mustAmount(test *testing.T, raw uint64) BalanceCents {
	test.Helper()
	amount, err := NewAmountCents(raw)
	if err != nil {
		test.Fatalf("amount %d: %v", raw, err)
	}
	return amount
}

func newTestStore(test *testing.T) *Store {
	test.Helper()
	store, err := NewStore(test.TempDir())
	if err != nil {
		test.Fatalf("store init: %v", err)
	}
	return store
}

func mustSave(test *testing.T, store *Store, account Account) {
	test.Helper()
	if err := store.Save(account); err != nil {
		test.Fatalf("save %s: %v", account.ID.String(), err)
	}
}

func mustNewService(test *testing.T, store *Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, options...)
	if err != nil {
		test.Fatalf("service init: %v", err)
	}
	return service
}

// stubRemoteLedger records pushes and serves a canned snapshot, with
// injectable failures.
type stubRemoteLedger struct {
	pushed     []Account
	snapshot   []RemoteAccount
	pushErr    error
	pushErrFor map[string]error
	fetchErr   error
}

func (remote *stubRemoteLedger) Push(_ context.Context, account Account) error {
	if remote.pushErr != nil {
		return remote.pushErr
	}
	if err, found := remote.pushErrFor[account.ID.String()]; found {
		return err
	}
	remote.pushed = append(remote.pushed, account)
	return nil
}

func (remote *stubRemoteLedger) FetchAll(_ context.Context) ([]RemoteAccount, error) {
	if remote.fetchErr != nil {
		return nil, remote.fetchErr
	}
	return remote.snapshot, nil
}
