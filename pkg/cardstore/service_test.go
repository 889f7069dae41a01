package cardstore

import (
	"context"
	"errors"
	"testing"
)

func TestNewServiceRequiresStore(test *testing.T) {
	test.Parallel()
	if _, err := NewService(nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig, got %v", err)
	}
}

func TestDepositIncreasesBalance(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustNewService(test, store)
	account, err := service.CreateAccount(context.Background(), mustPassword(test, passwordPrimary))
	if err != nil {
		test.Fatalf("create: %v", err)
	}

	balance, err := service.Deposit(context.Background(), account.ID, account.Password, mustAmount(test, 2_500))
	if err != nil {
		test.Fatalf("deposit: %v", err)
	}
	if balance != 2_500 {
		test.Fatalf("expected balance 2500, got %d", balance)
	}
	persisted, err := store.Load(account.ID)
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if persisted.Balance != 2_500 {
		test.Fatalf("expected persisted balance 2500, got %d", persisted.Balance)
	}
}

func TestWithdrawEnforcesNonNegativeBalance(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustNewService(test, store)
	account := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 100}
	mustSave(test, store, account)

	if _, err := service.Withdraw(context.Background(), account.ID, account.Password, mustAmount(test, 101)); !errors.Is(err, ErrInsufficientFunds) {
		test.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	balance, err := service.Withdraw(context.Background(), account.ID, account.Password, mustAmount(test, 100))
	if err != nil {
		test.Fatalf("withdraw: %v", err)
	}
	if balance != 0 {
		test.Fatalf("expected zero balance, got %d", balance)
	}
}

func TestOperationsRejectWrongPassword(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustNewService(test, store)
	account := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 100}
	mustSave(test, store, account)
	wrongPassword := mustPassword(test, passwordSecondary)

	testCases := []struct {
		name    string
		operate func() error
	}{
		{
			name: "balance",
			operate: func() error {
				_, err := service.Balance(context.Background(), account.ID, wrongPassword)
				return err
			},
		},
		{
			name: "deposit",
			operate: func() error {
				_, err := service.Deposit(context.Background(), account.ID, wrongPassword, mustAmount(test, 10))
				return err
			},
		},
		{
			name: "withdraw",
			operate: func() error {
				_, err := service.Withdraw(context.Background(), account.ID, wrongPassword, mustAmount(test, 10))
				return err
			},
		},
		{
			name: "close",
			operate: func() error {
				return service.Close(context.Background(), account.ID, wrongPassword)
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			if err := testCase.operate(); !errors.Is(err, ErrWrongPassword) {
				test.Fatalf("expected ErrWrongPassword, got %v", err)
			}
		})
	}
}

func TestTransferMovesFunds(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustNewService(test, store)
	source := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 1_000}
	destination := Account{ID: mustAccountID(test, accountIDSecondary), Password: passwordSecondary, Balance: 50}
	mustSave(test, store, source)
	mustSave(test, store, destination)

	if err := service.Transfer(context.Background(), source.ID, source.Password, destination.ID, mustAmount(test, 400)); err != nil {
		test.Fatalf("transfer: %v", err)
	}
	movedFrom, _ := store.Load(source.ID)
	movedTo, _ := store.Load(destination.ID)
	if movedFrom.Balance != 600 {
		test.Fatalf("expected source balance 600, got %d", movedFrom.Balance)
	}
	if movedTo.Balance != 450 {
		test.Fatalf("expected destination balance 450, got %d", movedTo.Balance)
	}
}

func TestTransferValidation(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustNewService(test, store)
	source := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 100}
	mustSave(test, store, source)

	testCases := []struct {
		name    string
		to      string
		amount  uint64
		wantErr error
	}{
		{name: "self transfer", to: accountIDPrimary, amount: 10, wantErr: ErrSameAccount},
		{name: "unknown destination", to: accountIDTertiary, amount: 10, wantErr: ErrNotFound},
		{name: "insufficient funds", to: accountIDSecondary, amount: 101, wantErr: ErrInsufficientFunds},
	}
	destination := Account{ID: mustAccountID(test, accountIDSecondary), Password: passwordSecondary, Balance: 0}
	mustSave(test, store, destination)

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			err := service.Transfer(context.Background(), source.ID, source.Password, mustAccountID(test, testCase.to), mustAmount(test, testCase.amount))
			if !errors.Is(err, testCase.wantErr) {
				test.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
		})
	}
}

// The store deletes whatever it is told to; the zero-balance rule lives in
// the service.
func TestCloseRequiresZeroBalance(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustNewService(test, store)
	funded := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 5}
	mustSave(test, store, funded)

	if err := service.Close(context.Background(), funded.ID, funded.Password); !errors.Is(err, ErrBalanceNotZero) {
		test.Fatalf("expected ErrBalanceNotZero, got %v", err)
	}
	if err := store.Delete(funded.ID); err != nil {
		test.Fatalf("store delete carries no balance policy: %v", err)
	}
}

func TestCloseDeletesZeroBalanceAccount(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustNewService(test, store)
	empty := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 0}
	mustSave(test, store, empty)

	if err := service.Close(context.Background(), empty.ID, empty.Password); err != nil {
		test.Fatalf("close: %v", err)
	}
	if _, err := store.Load(empty.ID); !errors.Is(err, ErrNotFound) {
		test.Fatalf("expected ErrNotFound after close, got %v", err)
	}
}

func TestMutationsPushToRemote(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	remote := &stubRemoteLedger{}
	service := mustNewService(test, store, WithRemoteLedger(remote))

	account, err := service.CreateAccount(context.Background(), mustPassword(test, passwordPrimary))
	if err != nil {
		test.Fatalf("create: %v", err)
	}
	if _, err := service.Deposit(context.Background(), account.ID, account.Password, mustAmount(test, 100)); err != nil {
		test.Fatalf("deposit: %v", err)
	}
	if len(remote.pushed) != 2 {
		test.Fatalf("expected create and deposit pushed, got %d pushes", len(remote.pushed))
	}
	if remote.pushed[1].Balance != 100 {
		test.Fatalf("expected pushed balance 100, got %d", remote.pushed[1].Balance)
	}
}

// A remote push failure must never fail the local operation; the next full
// push or pull reconciles the difference.
func TestPushFailureDoesNotFailLocalOperation(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	remote := &stubRemoteLedger{pushErr: ErrRemoteUnavailable}
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithRemoteLedger(remote), WithOperationLogger(logger))
	account := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 0}
	mustSave(test, store, account)

	balance, err := service.Deposit(context.Background(), account.ID, account.Password, mustAmount(test, 300))
	if err != nil {
		test.Fatalf("deposit must succeed locally: %v", err)
	}
	if balance != 300 {
		test.Fatalf("expected balance 300, got %d", balance)
	}

	var sawDegradedPush bool
	for _, entry := range logger.entries {
		if entry.Operation == operationPush && entry.Status == operationStatusError {
			sawDegradedPush = true
		}
	}
	if !sawDegradedPush {
		test.Fatalf("expected a degraded push log entry, got %+v", logger.entries)
	}
}
