package cardstore

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountID is the 36-character dashed lowercase identifier of an account.
type AccountID struct {
	value string
}

// Password is the numeric account secret, seven digits at creation time.
type Password uint64

// BalanceCents is an account balance in minor currency units.
type BalanceCents uint64

// Account is one persisted ledger record.
type Account struct {
	ID       AccountID
	Password Password
	Balance  BalanceCents
}

// RemoteAccount is one entry of a remote snapshot. Passwords are local-only
// secrets and never appear here.
type RemoteAccount struct {
	ID      AccountID
	Balance BalanceCents
}

// NewAccountID validates and normalizes an identifier to canonical dashed
// lowercase form.
func NewAccountID(raw string) (AccountID, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if len(normalized) != identifierLength {
		return AccountID{}, fmt.Errorf("%w: must be %d characters", ErrInvalidAccountID, identifierLength)
	}
	parsed, err := uuid.Parse(normalized)
	if err != nil {
		return AccountID{}, fmt.Errorf("%w: %v", ErrInvalidAccountID, err)
	}
	return AccountID{value: parsed.String()}, nil
}

// GenerateAccountID returns a fresh random identifier.
func GenerateAccountID() AccountID {
	return AccountID{value: uuid.NewString()}
}

// String returns the canonical identifier.
func (id AccountID) String() string {
	return id.value
}

// IsZero reports whether the identifier is unset.
func (id AccountID) IsZero() bool {
	return id.value == ""
}

// NewPassword validates a password against the creation-time range. Records
// loaded from disk bypass this check: stored passwords are never
// re-validated, and reconciliation may legitimately persist password 0.
func NewPassword(raw uint64) (Password, error) {
	if raw < passwordMinimum || raw > passwordMaximum {
		return 0, fmt.Errorf("%w: must be in [%d, %d]", ErrInvalidPassword, passwordMinimum, passwordMaximum)
	}
	return Password(raw), nil
}

// NewAmountCents validates a transaction amount and ensures it is strictly
// positive.
func NewAmountCents(raw uint64) (BalanceCents, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return BalanceCents(raw), nil
}

// Uint64 returns the balance as a raw integer.
func (balance BalanceCents) Uint64() uint64 {
	return uint64(balance)
}
