package gormstore

import (
	"context"
	"errors"

	"github.com/MarkoPoloResearchLab/cardbank/pkg/cardstore"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectAccount   = "account"
	errorCodeCreate       = "create"
	errorCodeDelete       = "delete"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodeSync         = "sync"
	errorCodeUpdate       = "update"
)

// ErrAccountExists marks an insert that collided with an existing UUID.
var ErrAccountExists = errors.New("account already exists")

// Store keeps the authoritative account table behind GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateAccount inserts a new account row. A zero id lets the database assign
// one; the stored row is returned so callers see the assigned UUID.
func (store *Store) CreateAccount(ctx context.Context, id cardstore.AccountID, balanceCents uint64) (Account, error) {
	account := Account{UUID: id.String(), BalanceCents: balanceCents}
	err := store.db.WithContext(ctx).Create(&account).Error
	if isUniqueViolation(err) {
		return Account{}, wrapStoreError(errorCodeDuplicate, ErrAccountExists)
	}
	if err != nil {
		return Account{}, wrapStoreError(errorCodeCreate, err)
	}
	return account, nil
}

// Get fetches a single account by id.
func (store *Store) Get(ctx context.Context, id cardstore.AccountID) (Account, error) {
	var account Account
	err := store.db.WithContext(ctx).Where("uuid = ?", id.String()).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, wrapStoreError(errorCodeGet, cardstore.ErrNotFound)
	}
	if err != nil {
		return Account{}, wrapStoreError(errorCodeGet, err)
	}
	return account, nil
}

// Deposit adds amountCents to the account balance and returns the new balance.
// The addition happens in a single UPDATE so concurrent deposits never lose
// increments.
func (store *Store) Deposit(ctx context.Context, id cardstore.AccountID, amountCents uint64) (uint64, error) {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("uuid = ?", id.String()).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amountCents))
	if result.Error != nil {
		return 0, wrapStoreError(errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, wrapStoreError(errorCodeUpdate, cardstore.ErrNotFound)
	}
	account, err := store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

// Withdraw subtracts amountCents, failing when the balance would go negative.
// The guard rides inside the UPDATE predicate so two concurrent withdrawals
// cannot both drain the same funds.
func (store *Store) Withdraw(ctx context.Context, id cardstore.AccountID, amountCents uint64) (uint64, error) {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("uuid = ? AND balance_cents >= ?", id.String(), amountCents).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
	if result.Error != nil {
		return 0, wrapStoreError(errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := store.Get(ctx, id); err != nil {
			return 0, err
		}
		return 0, wrapStoreError(errorCodeUpdate, cardstore.ErrInsufficientFunds)
	}
	account, err := store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

// Transfer moves amountCents between two accounts in one transaction. Either
// both rows change or neither does.
func (store *Store) Transfer(ctx context.Context, from cardstore.AccountID, to cardstore.AccountID, amountCents uint64) error {
	if from == to {
		return wrapStoreError(errorCodeInvalid, cardstore.ErrSameAccount)
	}
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		txStore := &Store{db: transaction}
		if _, err := txStore.Get(ctx, to); err != nil {
			return err
		}
		if _, err := txStore.Withdraw(ctx, from, amountCents); err != nil {
			return err
		}
		if _, err := txStore.Deposit(ctx, to, amountCents); err != nil {
			return err
		}
		return nil
	})
}

// Delete removes an account row.
func (store *Store) Delete(ctx context.Context, id cardstore.AccountID) error {
	result := store.db.WithContext(ctx).Where("uuid = ?", id.String()).Delete(&Account{})
	if result.Error != nil {
		return wrapStoreError(errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorCodeDelete, cardstore.ErrNotFound)
	}
	return nil
}

// Sync upserts the balance a client pushed. Unknown accounts are created,
// known ones take the pushed balance.
func (store *Store) Sync(ctx context.Context, id cardstore.AccountID, balanceCents uint64) error {
	account := Account{UUID: id.String(), BalanceCents: balanceCents}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uuid"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"balance_cents": balanceCents}),
		}).
		Create(&account).Error
	if err != nil {
		return wrapStoreError(errorCodeSync, err)
	}
	return nil
}

// ListAll returns every account row ordered by creation time.
func (store *Store) ListAll(ctx context.Context) ([]Account, error) {
	var rows []Account
	err := store.db.WithContext(ctx).Order("created_at ASC, uuid ASC").Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorCodeList, err)
	}
	return rows, nil
}

func wrapStoreError(code string, err error) error {
	return cardstore.WrapError(errorOperationStore, errorSubjectAccount, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
