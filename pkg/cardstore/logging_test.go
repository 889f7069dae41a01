package cardstore

import (
	"context"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsDepositOperation(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))
	account := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 0}
	mustSave(test, store, account)

	if _, err := service.Deposit(context.Background(), account.ID, account.Password, mustAmount(test, 100)); err != nil {
		test.Fatalf("deposit: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationDeposit || entry.AccountID != account.ID || entry.Amount != 100 {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Error != nil || entry.Status != operationStatusOK {
		test.Fatalf("expected successful log entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	logger := &recorderLogger{}
	service := mustNewService(test, store, WithOperationLogger(logger))
	account := Account{ID: mustAccountID(test, accountIDPrimary), Password: passwordPrimary, Balance: 10}
	mustSave(test, store, account)

	if _, err := service.Withdraw(context.Background(), account.ID, account.Password, mustAmount(test, 100)); err == nil {
		test.Fatalf("expected error")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}
