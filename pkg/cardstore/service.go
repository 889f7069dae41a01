package cardstore

import (
	"context"
	"fmt"
)

// Service contains the ledger operations over a Store: thin callers that
// authenticate, enforce balance policy, persist, and optionally mirror the
// result to a remote counterpart. The store itself carries none of these
// rules.
type Service struct {
	store  *Store
	remote RemoteLedger
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store *Store, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateAccount opens a fresh account with a zero balance.
func (service *Service) CreateAccount(ctx context.Context, password Password) (Account, error) {
	account, err := service.store.Create(password)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationCreate, Error: err})
		return Account{}, err
	}
	service.pushBestEffort(ctx, account)
	service.logOperation(ctx, OperationLog{Operation: operationCreate, AccountID: account.ID})
	return account, nil
}

// Balance authenticates and returns the current balance.
func (service *Service) Balance(ctx context.Context, id AccountID, password Password) (BalanceCents, error) {
	account, err := service.authenticate(id, password)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Deposit adds amount to the balance and returns the new balance.
func (service *Service) Deposit(ctx context.Context, id AccountID, password Password, amount BalanceCents) (BalanceCents, error) {
	account, err := service.authenticate(id, password)
	if err == nil {
		account.Balance += amount
		err = service.store.Save(account)
	}
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationDeposit, AccountID: id, Amount: amount, Error: err})
		return 0, err
	}
	service.pushBestEffort(ctx, account)
	service.logOperation(ctx, OperationLog{Operation: operationDeposit, AccountID: id, Amount: amount})
	return account.Balance, nil
}

// Withdraw subtracts amount from the balance and returns the new balance.
// The balance never goes negative.
func (service *Service) Withdraw(ctx context.Context, id AccountID, password Password, amount BalanceCents) (BalanceCents, error) {
	account, err := service.authenticate(id, password)
	if err == nil && account.Balance < amount {
		err = ErrInsufficientFunds
	}
	if err == nil {
		account.Balance -= amount
		err = service.store.Save(account)
	}
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationWithdraw, AccountID: id, Amount: amount, Error: err})
		return 0, err
	}
	service.pushBestEffort(ctx, account)
	service.logOperation(ctx, OperationLog{Operation: operationWithdraw, AccountID: id, Amount: amount})
	return account.Balance, nil
}

// Transfer moves amount between two accounts. Both records are written
// individually; there is no multi-record transaction, so a failure after
// the first write leaves the debit persisted (single-process store, no
// write-ahead log).
func (service *Service) Transfer(ctx context.Context, from AccountID, password Password, to AccountID, amount BalanceCents) error {
	operationError := service.transfer(ctx, from, password, to, amount)
	service.logOperation(ctx, OperationLog{Operation: operationTransfer, AccountID: from, Amount: amount, Error: operationError})
	return operationError
}

func (service *Service) transfer(ctx context.Context, from AccountID, password Password, to AccountID, amount BalanceCents) error {
	if from.String() == to.String() {
		return ErrSameAccount
	}
	source, err := service.authenticate(from, password)
	if err != nil {
		return err
	}
	destination, err := service.store.Load(to)
	if err != nil {
		return err
	}
	if source.Balance < amount {
		return ErrInsufficientFunds
	}
	source.Balance -= amount
	destination.Balance += amount
	if err := service.store.Save(source); err != nil {
		return err
	}
	if err := service.store.Save(destination); err != nil {
		return err
	}
	service.pushBestEffort(ctx, source)
	service.pushBestEffort(ctx, destination)
	return nil
}

// Close authenticates and deletes an account. Only a zero balance may be
// closed; that policy lives here, not in the store's delete.
func (service *Service) Close(ctx context.Context, id AccountID, password Password) error {
	operationError := service.close(id, password)
	service.logOperation(ctx, OperationLog{Operation: operationClose, AccountID: id, Error: operationError})
	return operationError
}

func (service *Service) close(id AccountID, password Password) error {
	account, err := service.authenticate(id, password)
	if err != nil {
		return err
	}
	if account.Balance != 0 {
		return fmt.Errorf("%w: %d cents remain", ErrBalanceNotZero, account.Balance.Uint64())
	}
	return service.store.Delete(id)
}

// ListAccounts enumerates the local accounts.
func (service *Service) ListAccounts() ([]Account, error) {
	return service.store.List()
}

func (service *Service) authenticate(id AccountID, password Password) (Account, error) {
	account, err := service.store.Load(id)
	if err != nil {
		return Account{}, err
	}
	if account.Password != password {
		return Account{}, ErrWrongPassword
	}
	return account, nil
}

// pushBestEffort mirrors a record to the remote when one is configured. A
// push failure is logged and swallowed: the local write already succeeded
// and the next full push or pull reconciles the difference.
func (service *Service) pushBestEffort(ctx context.Context, account Account) {
	if service.remote == nil {
		return
	}
	if err := service.remote.Push(ctx, account); err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationPush, AccountID: account.ID, Error: err})
	}
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
